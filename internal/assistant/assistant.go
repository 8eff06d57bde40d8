package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/taskwise-ai/taskwise/internal/audit"
	"github.com/taskwise-ai/taskwise/internal/bulkops"
	"github.com/taskwise-ai/taskwise/internal/conversation"
	"github.com/taskwise-ai/taskwise/internal/intent"
	"github.com/taskwise-ai/taskwise/internal/oracle"
	"github.com/taskwise-ai/taskwise/internal/reasoning"
	"github.com/taskwise-ai/taskwise/internal/records"
	"github.com/taskwise-ai/taskwise/internal/recovery"
	"github.com/taskwise-ai/taskwise/internal/sources"
)

// Kind tags what a response is: exactly one of these applies.
type Kind string

const (
	KindSuccess            Kind = "success"
	KindConversational     Kind = "conversational"
	KindNeedsClarification Kind = "needs_clarification"
	KindNeedsConfirmation  Kind = "needs_confirmation"
	KindFailure            Kind = "failure"
)

// Response is the assistant's answer to one query.
type Response struct {
	Kind    Kind             `json:"kind"`
	Message string           `json:"message"`
	Records []records.Record `json:"records,omitempty"`

	// Set when Kind is needs_confirmation.
	PendingOperationID string           `json:"pending_operation_id,omitempty"`
	Preview            []records.Record `json:"preview,omitempty"`
	TotalAffected      int              `json:"total_affected,omitempty"`

	// Set when Kind is needs_clarification.
	ClarificationQuestion string `json:"clarification_question,omitempty"`
}

// Assistant is the front door: one Handle call per user query, routing
// through intent analysis to the right execution path.
type Assistant struct {
	oracle   oracle.Client
	store    records.Store
	conv     *conversation.Manager
	intents  *intent.Resolver
	planner  *reasoning.Planner
	executor *reasoning.Executor
	bulk     *bulkops.Manager
	recovery *recovery.Engine
	health   *sources.Tracker
	trail    *audit.Store
	logger   *zap.Logger
}

// Deps carries the assistant's collaborators. Health, Trail, and
// Logger may be nil.
type Deps struct {
	Oracle   oracle.Client
	Store    records.Store
	Conv     *conversation.Manager
	Intents  *intent.Resolver
	Planner  *reasoning.Planner
	Executor *reasoning.Executor
	Bulk     *bulkops.Manager
	Recovery *recovery.Engine
	Health   *sources.Tracker
	Trail    *audit.Store
	Logger   *zap.Logger
}

// New creates an assistant from its collaborators.
func New(d Deps) *Assistant {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{
		oracle:   d.Oracle,
		store:    d.Store,
		conv:     d.Conv,
		intents:  d.Intents,
		planner:  d.Planner,
		executor: d.Executor,
		bulk:     d.Bulk,
		recovery: d.Recovery,
		health:   d.Health,
		trail:    d.Trail,
		logger:   logger,
	}
}

// Handle answers one user query. It never returns an error to the
// caller for domain failures; those become failure responses with a
// user-facing message.
func (a *Assistant) Handle(ctx context.Context, userID, query string) *Response {
	query = strings.TrimSpace(query)
	if query == "" {
		return &Response{Kind: KindConversational, Message: "What can I do for you?"}
	}

	// An outstanding clarification is answered by whatever comes next;
	// the slot empties either way.
	if pending, ok := a.conv.ConsumeClarification(userID); ok {
		a.log(ctx, audit.Entry{
			ActorType: audit.ActorUser, ActorID: userID,
			Action: audit.ActionClarificationGiven, Summary: query,
		})
		query = pending.OriginalQuery + " " + query
	}

	analysis := a.intents.Analyze(ctx, userID, query)
	a.logger.Debug("query analyzed",
		zap.String("user", userID),
		zap.String("operation", string(analysis.OperationType)),
		zap.String("reasoning", analysis.Reasoning),
		zap.Float64("confidence", analysis.Confidence),
		zap.Float64("ambiguity", analysis.AmbiguityScore))

	if analysis.NeedsClarification {
		a.conv.SetClarification(userID, conversation.Clarification{
			Question:      analysis.ClarificationQuestion,
			OriginalQuery: query,
		})
		a.log(ctx, audit.Entry{
			ActorType: audit.ActorAssistant, ActorID: userID,
			Action: audit.ActionClarificationAsked, Summary: analysis.ClarificationQuestion,
		})
		return &Response{
			Kind:                  KindNeedsClarification,
			Message:               analysis.ClarificationQuestion,
			ClarificationQuestion: analysis.ClarificationQuestion,
		}
	}

	var resp *Response
	switch analysis.OperationType {
	case intent.OpConversational:
		resp = a.converse(ctx, userID, query)
	case intent.OpSearch:
		resp = a.search(ctx, userID, query, analysis)
	case intent.OpCreate:
		resp = a.create(ctx, userID, analysis, records.TypeTask)
	case intent.OpSchedule:
		resp = a.create(ctx, userID, analysis, records.TypeEvent)
	case intent.OpUpdate:
		resp = a.mutate(ctx, userID, query, analysis, false)
	case intent.OpDelete:
		resp = a.mutate(ctx, userID, query, analysis, true)
	case intent.OpComplex:
		resp = a.runChain(ctx, userID, query)
	default:
		resp = a.converse(ctx, userID, query)
	}

	a.conv.RecordInteraction(userID, conversation.Entry{
		Query:     query,
		Intent:    string(analysis.OperationType),
		Response:  resp.Message,
		Sources:   analysis.Sources,
		RecordIDs: recordIDs(resp.Records),
	})
	a.log(ctx, audit.Entry{
		ActorType: audit.ActorUser, ActorID: userID,
		Action:  audit.ActionRequestHandled,
		Summary: query,
		Detail:  string(resp.Kind),
	})
	return resp
}

// Confirm executes a pending bulk operation the user approved.
func (a *Assistant) Confirm(ctx context.Context, userID, opID string) *Response {
	result, err := a.bulk.Confirm(ctx, userID, opID)
	switch {
	case errors.Is(err, bulkops.ErrExpired):
		a.log(ctx, audit.Entry{
			ActorType: audit.ActorSystem, ActorID: userID,
			Action: audit.ActionBulkExpired, OperationID: opID,
		})
		return &Response{Kind: KindFailure, Message: "That confirmation window has passed. Ask me again and I'll re-plan it."}
	case errors.Is(err, bulkops.ErrNotOwner):
		return &Response{Kind: KindFailure, Message: "That operation isn't yours to confirm."}
	case errors.Is(err, bulkops.ErrNotFound):
		return &Response{Kind: KindFailure, Message: "I don't have a pending operation with that ID."}
	case err != nil:
		return &Response{Kind: KindFailure, Message: "I couldn't execute that operation."}
	}

	a.log(ctx, audit.Entry{
		ActorType: audit.ActorAssistant, ActorID: userID,
		Action: audit.ActionBulkConfirmed, OperationID: opID,
		Summary:         fmt.Sprintf("%d updated, %d failed", result.SuccessCount, result.FailureCount),
		AffectedRecords: recordIDs(result.Updated),
	})

	msg := fmt.Sprintf("Done: %d record(s) updated.", result.SuccessCount)
	if result.FailureCount > 0 {
		msg = fmt.Sprintf("Partially done: %d updated, %d failed.", result.SuccessCount, result.FailureCount)
	}
	return &Response{Kind: KindSuccess, Message: msg, Records: result.Updated}
}

// Cancel discards a pending bulk operation.
func (a *Assistant) Cancel(ctx context.Context, userID, opID string) *Response {
	if err := a.bulk.Cancel(userID, opID); err != nil {
		return &Response{Kind: KindFailure, Message: "I don't have that pending operation anymore."}
	}
	a.log(ctx, audit.Entry{
		ActorType: audit.ActorUser, ActorID: userID,
		Action: audit.ActionBulkCancelled, OperationID: opID,
	})
	return &Response{Kind: KindSuccess, Message: "Cancelled; nothing was changed."}
}

// ClearConversation drops the user's conversational state along with
// their cached integration health. Both are scoped to the session, so
// a logout tears down both.
func (a *Assistant) ClearConversation(userID string) {
	a.conv.Clear(userID)
	if a.health != nil {
		a.health.Clear(userID)
	}
}

func (a *Assistant) converse(ctx context.Context, userID, query string) *Response {
	if a.oracle != nil {
		messages := []oracle.Message{{
			Role:    oracle.RoleSystem,
			Content: "You are taskwise, a friendly productivity assistant. Keep replies to a sentence or two.",
		}}
		for _, e := range a.conv.Recent(userID, 5) {
			messages = append(messages,
				oracle.Message{Role: oracle.RoleUser, Content: e.Query},
				oracle.Message{Role: oracle.RoleAssistant, Content: e.Response})
		}
		messages = append(messages, oracle.Message{Role: oracle.RoleUser, Content: query})

		resp, err := a.oracle.Generate(ctx, oracle.Request{Messages: messages, MaxTokens: 256})
		if err == nil {
			return &Response{Kind: KindConversational, Message: strings.TrimSpace(resp.Content)}
		}
		a.logger.Debug("conversational oracle failed", zap.Error(err))
	}
	return &Response{Kind: KindConversational, Message: "I'm here to help with your tasks, events, and notes. What would you like to do?"}
}

func (a *Assistant) search(ctx context.Context, userID, query string, analysis intent.Analysis) *Response {
	needle := analysis.Parameters["query"]
	if needle == "" {
		needle = analysis.Parameters["target"]
	}

	// A referential search with no terms of its own ("show me those
	// again") is answered from the previous exchange, not re-searched.
	if analysis.IsFollowUp && needle == "" {
		if prior := a.priorRecords(ctx, userID); len(prior) > 0 {
			return &Response{
				Kind:    KindSuccess,
				Message: "From before:\n" + bulletList(prior) + a.unhealthyNote(ctx, userID, analysis.Sources),
				Records: prior,
			}
		}
	}
	if needle == "" {
		needle = query
	}

	found, err := a.store.Search(ctx, userID, needle, 20)
	if err != nil {
		return a.failure(err, userID, analysis, "search")
	}
	if len(found) == 0 {
		return &Response{Kind: KindSuccess, Message: "I didn't find anything matching that." + a.unhealthyNote(ctx, userID, analysis.Sources)}
	}

	return &Response{
		Kind:    KindSuccess,
		Message: fmt.Sprintf("Found %d item(s):\n%s%s", len(found), bulletList(found), a.unhealthyNote(ctx, userID, analysis.Sources)),
		Records: found,
	}
}

func (a *Assistant) create(ctx context.Context, userID string, analysis intent.Analysis, recordType records.Type) *Response {
	title := analysis.Parameters["title"]
	if title == "" {
		title = analysis.Parameters["target"]
	}
	if title == "" {
		title = strings.TrimSpace(analysis.RawQuery)
	}

	r := records.Record{
		UserID:      userID,
		Title:       title,
		Description: analysis.Parameters["description"],
		Type:        recordType,
	}
	if p := analysis.Parameters["priority"]; p != "" {
		r.Priority = records.Priority(p)
	}

	created, err := a.store.Create(ctx, r)
	if err != nil {
		return a.failure(err, userID, analysis, "create")
	}

	a.log(ctx, audit.Entry{
		ActorType: audit.ActorAssistant, ActorID: userID,
		Action: audit.ActionRecordCreated, Summary: created.Title,
		AffectedRecords: []string{created.ID},
	})
	noun := "task"
	if recordType == records.TypeEvent {
		noun = "event"
	}
	return &Response{
		Kind:    KindSuccess,
		Message: fmt.Sprintf("Created the %s %q.", noun, created.Title),
		Records: []records.Record{*created},
	}
}

// mutate covers update and delete, both of which flow through the bulk
// planner so the confirmation gate applies uniformly.
func (a *Assistant) mutate(ctx context.Context, userID, query string, analysis intent.Analysis, isDelete bool) *Response {
	patch := records.Patch{}
	if isDelete {
		deleted := records.StatusDeleted
		patch.Status = &deleted
	} else {
		if s := analysis.Parameters["status"]; s != "" {
			status := records.Status(s)
			patch.Status = &status
		}
		if p := analysis.Parameters["priority"]; p != "" {
			priority := records.Priority(p)
			patch.Priority = &priority
		}
	}
	if patch.IsEmpty() {
		done := records.StatusDone
		patch.Status = &done
	}

	var plan *bulkops.Plan
	var err error

	// A follow-up with no target of its own ("mark it as done") points
	// back at the previous exchange: the patch applies to those records
	// only, never to everything the user owns.
	if analysis.IsFollowUp && analysis.Parameters["target"] == "" {
		if prior := a.priorRecords(ctx, userID); len(prior) > 0 {
			plan, err = a.bulk.PlanTargets(ctx, userID, query, prior, patch)
		}
	}
	if plan == nil && err == nil {
		filter := records.Filter{TitleContains: analysis.Parameters["target"]}
		if len(analysis.Sources) == 1 {
			filter.Source = analysis.Sources[0]
		}
		plan, err = a.bulk.PlanUpdate(ctx, userID, query, filter, patch)
	}
	if err != nil {
		if strings.Contains(err.Error(), "no records match") {
			return &Response{Kind: KindFailure, Message: "I couldn't find any matching records to change."}
		}
		return a.failure(err, userID, analysis, "update")
	}

	if plan.NeedsConfirmation {
		a.log(ctx, audit.Entry{
			ActorType: audit.ActorAssistant, ActorID: userID,
			Action: audit.ActionBulkPlanned, OperationID: plan.Operation.ID,
			Summary: plan.Summary,
		})
		return &Response{
			Kind:               KindNeedsConfirmation,
			Message:            fmt.Sprintf("%s. Shall I go ahead?", plan.Summary),
			PendingOperationID: plan.Operation.ID,
			Preview:            plan.Preview,
			TotalAffected:      plan.TotalCount,
		}
	}

	result := a.bulk.Execute(ctx, plan.Operation)
	action := audit.ActionRecordUpdated
	verb := "updated"
	if isDelete {
		action = audit.ActionRecordDeleted
		verb = "deleted"
	}
	a.log(ctx, audit.Entry{
		ActorType: audit.ActorAssistant, ActorID: userID,
		Action: action, AffectedRecords: recordIDs(result.Updated),
		Summary: query,
	})
	if result.SuccessCount == 0 {
		return &Response{Kind: KindFailure, Message: "I couldn't apply that change."}
	}
	return &Response{
		Kind:    KindSuccess,
		Message: fmt.Sprintf("Done: %d record(s) %s.", result.SuccessCount, verb),
		Records: result.Updated,
	}
}

func (a *Assistant) runChain(ctx context.Context, userID, query string) *Response {
	chain := a.planner.BuildChain(ctx, userID, query)
	result := a.executor.Execute(ctx, chain)

	a.log(ctx, audit.Entry{
		ActorType: audit.ActorAssistant, ActorID: userID,
		Action: audit.ActionChainExecuted, OperationID: chain.ID,
		Summary: query,
		Detail:  fmt.Sprintf("%d succeeded, %d failed", result.SuccessCount, result.FailureCount),
	})

	kind := KindSuccess
	if !result.Succeeded() {
		kind = KindFailure
	}
	var touched []records.Record
	for _, sr := range result.StepResults {
		touched = append(touched, sr.Records...)
	}
	return &Response{Kind: kind, Message: result.Summary, Records: touched}
}

func (a *Assistant) failure(err error, userID string, analysis intent.Analysis, operation string) *Response {
	source := ""
	if len(analysis.Sources) > 0 {
		source = analysis.Sources[0]
	}
	if a.recovery != nil {
		plan := a.recovery.Handle(err, recovery.SourceContext{
			Source: source, Operation: operation, UserID: userID,
		})
		return &Response{Kind: KindFailure, Message: plan.UserMessage}
	}
	return &Response{Kind: KindFailure, Message: "Something went wrong with that request."}
}

func (a *Assistant) log(ctx context.Context, entry audit.Entry) {
	if a.trail == nil {
		return
	}
	if err := a.trail.Log(ctx, entry); err != nil {
		a.logger.Warn("audit log failed", zap.Error(err))
	}
}

// priorRecords resolves the records of the most recent exchange that
// touched any, looking back at most three entries. Records that have
// since disappeared are skipped.
func (a *Assistant) priorRecords(ctx context.Context, userID string) []records.Record {
	recent := a.conv.Recent(userID, 3)
	for i := len(recent) - 1; i >= 0; i-- {
		if len(recent[i].RecordIDs) == 0 {
			continue
		}
		var out []records.Record
		for _, id := range recent[i].RecordIDs {
			r, err := a.store.Get(ctx, userID, id)
			if err != nil {
				continue
			}
			out = append(out, *r)
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// unhealthyNote appends a caveat when any of the named sources is
// known to be down, so search results are not presented as complete.
func (a *Assistant) unhealthyNote(ctx context.Context, userID string, srcs []string) string {
	if a.health == nil {
		return ""
	}
	var down []string
	for _, src := range srcs {
		if src == sources.Native {
			continue
		}
		if h := a.health.Status(ctx, userID, src); !h.Available {
			down = append(down, sources.DisplayName(src))
		}
	}
	if len(down) == 0 {
		return ""
	}
	return fmt.Sprintf("\n(%s is currently unreachable, so results from it may be missing or stale.)", strings.Join(down, " and "))
}

func bulletList(rs []records.Record) string {
	var lines []string
	for _, r := range rs {
		lines = append(lines, "- "+r.Title)
	}
	return strings.Join(lines, "\n")
}

func recordIDs(rs []records.Record) []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
	}
	return ids
}
