package audit

import "time"

// ActorType identifies who performed an action.
type ActorType string

const (
	ActorUser      ActorType = "user"
	ActorAssistant ActorType = "assistant"
	ActorSystem    ActorType = "system"
)

// Action describes what was done.
type Action string

const (
	ActionRequestHandled      Action = "request_handled"
	ActionRecordCreated       Action = "record_created"
	ActionRecordUpdated       Action = "record_updated"
	ActionRecordDeleted       Action = "record_deleted"
	ActionBulkPlanned         Action = "bulk_planned"
	ActionBulkConfirmed       Action = "bulk_confirmed"
	ActionBulkCancelled       Action = "bulk_cancelled"
	ActionBulkExpired         Action = "bulk_expired"
	ActionClarificationAsked  Action = "clarification_asked"
	ActionClarificationGiven  Action = "clarification_given"
	ActionChainExecuted       Action = "chain_executed"
	ActionIntegrationDegraded Action = "integration_degraded"
)

// Entry is a single audit trail record.
type Entry struct {
	ID        string
	Timestamp time.Time
	ActorType ActorType
	ActorID   string
	Action    Action
	// OperationID links related entries: a bulk plan and its later
	// confirmation, or a chain and the mutations it performed.
	OperationID     string
	Summary         string
	Detail          string
	AffectedRecords []string
}
