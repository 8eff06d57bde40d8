package intent

// OperationType is the closed set of things a query can ask for.
type OperationType string

const (
	OpCreate         OperationType = "create"
	OpUpdate         OperationType = "update"
	OpDelete         OperationType = "delete"
	OpSearch         OperationType = "search"
	OpSchedule       OperationType = "schedule"
	OpConversational OperationType = "conversational"
	OpComplex        OperationType = "complex"
)

// Valid reports whether the value is one of the defined operations.
// Model output is untrusted; anything outside the set is discarded.
func (op OperationType) Valid() bool {
	switch op {
	case OpCreate, OpUpdate, OpDelete, OpSearch, OpSchedule, OpConversational, OpComplex:
		return true
	}
	return false
}

// Analysis is the resolver's reading of one query.
type Analysis struct {
	OperationType OperationType
	// Confidence is how sure the resolver is of the operation type,
	// in [0,1].
	Confidence float64
	// AmbiguityScore is how underspecified the query is, in [0,1].
	// High confidence and high ambiguity can coexist: "update it" is
	// clearly an update and clearly missing its target.
	AmbiguityScore float64
	Sources    []string
	Parameters map[string]string
	IsFollowUp bool
	// Reasoning is a short explanation of how the operation type was
	// chosen, for the debug log.
	Reasoning string

	NeedsClarification    bool
	ClarificationQuestion string

	RawQuery string
}
