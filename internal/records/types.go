package records

import "time"

// Type classifies what kind of item a record is.
type Type string

const (
	TypeTask  Type = "task"
	TypeEvent Type = "event"
	TypeNote  Type = "note"
)

// Status is the lifecycle state of a record. Deletion is soft: deleted
// records keep their row with StatusDeleted and drop out of queries.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
	StatusDeleted    Status = "deleted"
)

// Priority orders records by urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Record is one item in the user's store: a task, an event, or a note,
// either created natively or ingested from an external integration
// (its Source names the integration).
type Record struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Type        Type              `json:"type"`
	Status      Status            `json:"status"`
	Priority    Priority          `json:"priority"`
	Source      string            `json:"source"`
	Due         *time.Time        `json:"due,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Filter selects records for Find. UserID is mandatory; other fields
// narrow the result when non-zero. Deleted records are excluded unless
// IncludeDeleted is set.
type Filter struct {
	UserID         string
	Type           Type
	Status         Status
	Source         string
	TitleContains  string
	DueBefore      *time.Time
	DueAfter       *time.Time
	IncludeDeleted bool
}

// FindOptions controls ordering and result size.
type FindOptions struct {
	SortBy string // "due", "priority", "created_at", "updated_at"
	Desc   bool
	Limit  int
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title       *string
	Description *string
	Type        *Type
	Status      *Status
	Priority    *Priority
	Due         *time.Time
	ClearDue    bool
	Metadata    map[string]string
}

// Fields returns the names of the fields the patch would change,
// matching the field names the source registry constrains.
func (p Patch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Type != nil {
		fields = append(fields, "type")
	}
	if p.Status != nil {
		fields = append(fields, "status")
	}
	if p.Priority != nil {
		fields = append(fields, "priority")
	}
	if p.Due != nil || p.ClearDue {
		fields = append(fields, "due")
	}
	if p.Metadata != nil {
		fields = append(fields, "metadata")
	}
	return fields
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return len(p.Fields()) == 0
}
