package reasoning

import (
	"time"

	"github.com/taskwise-ai/taskwise/internal/records"
)

// StepMethod is the closed set of ways a step can be carried out.
type StepMethod string

const (
	MethodSearch         StepMethod = "search"
	MethodCreate         StepMethod = "create"
	MethodUpdate         StepMethod = "update"
	MethodDelete         StepMethod = "delete"
	MethodCalendar       StepMethod = "calendar"
	MethodAnalyze        StepMethod = "analyze"
	MethodConversational StepMethod = "conversational"
)

// Valid reports whether the method is one of the defined values.
func (m StepMethod) Valid() bool {
	switch m {
	case MethodSearch, MethodCreate, MethodUpdate, MethodDelete,
		MethodCalendar, MethodAnalyze, MethodConversational:
		return true
	}
	return false
}

// FailureHandling says what a step failure does to the rest of the
// chain.
type FailureHandling string

const (
	FailureStop     FailureHandling = "stop"
	FailureContinue FailureHandling = "continue"
)

// Step is one planned unit of work. Steps are fixed once the chain is
// built; execution never reorders, inserts, or rewrites them.
type Step struct {
	Number    int
	Title     string
	Method    StepMethod
	Params    map[string]string
	OnFailure FailureHandling
}

// Chain is an ordered plan for a multi-part query.
type Chain struct {
	ID        string
	UserID    string
	Query     string
	Steps     []Step
	CreatedAt time.Time
}

// StepResult is the outcome of executing one step.
type StepResult struct {
	Step    Step
	Success bool
	Output  string
	Records []records.Record
	// FailureMessage is user-facing; the raw error stays in logs.
	FailureMessage string
}

// ChainResult is the outcome of executing a whole chain. SuccessCount
// plus FailureCount equals the number of executed steps; steps after a
// stop are not counted.
type ChainResult struct {
	Chain        Chain
	StepResults  []StepResult
	SuccessCount int
	FailureCount int
	Stopped      bool
	Summary      string
}

// Succeeded reports whether at least one step did useful work.
func (r ChainResult) Succeeded() bool {
	return r.SuccessCount > 0
}
