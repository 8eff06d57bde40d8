package reasoning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taskwise-ai/taskwise/internal/oracle"
	"github.com/taskwise-ai/taskwise/internal/records"
	"github.com/taskwise-ai/taskwise/internal/recovery"
)

// Executor runs chains step by step. Steps run strictly in order;
// each step sees a context map accumulated from the outputs of the
// steps before it.
type Executor struct {
	oracle   oracle.Client
	store    records.Store
	recovery *recovery.Engine
	logger   *zap.Logger
}

// NewExecutor creates an executor. recoveryEngine may be nil; failures
// then get a generic message instead of a category-specific one.
func NewExecutor(client oracle.Client, store records.Store, recoveryEngine *recovery.Engine, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{oracle: client, store: store, recovery: recoveryEngine, logger: logger}
}

// Execute runs every step of the chain in order. A failing step marked
// stop halts the chain; marked continue, the chain proceeds and the
// failure is reported alongside the successes. The final summary is
// synthesized from whatever completed.
func (e *Executor) Execute(ctx context.Context, chain Chain) ChainResult {
	result := ChainResult{Chain: chain}
	carried := map[string]string{}

	for _, step := range chain.Steps {
		sr := e.executeStep(ctx, chain.UserID, step, carried)
		result.StepResults = append(result.StepResults, sr)

		if sr.Success {
			result.SuccessCount++
			mergeOutputs(carried, step, sr)
		} else {
			result.FailureCount++
			e.logger.Warn("chain step failed",
				zap.String("chain", chain.ID),
				zap.Int("step", step.Number),
				zap.String("method", string(step.Method)),
				zap.String("on_failure", string(step.OnFailure)))
			if step.OnFailure == FailureStop {
				result.Stopped = true
				break
			}
		}
	}

	result.Summary = e.synthesize(ctx, chain, result)
	return result
}

func (e *Executor) executeStep(ctx context.Context, userID string, step Step, carried map[string]string) StepResult {
	sr := StepResult{Step: step}

	params := map[string]string{}
	for k, v := range carried {
		params[k] = v
	}
	for k, v := range step.Params {
		params[k] = v
	}

	var err error
	switch step.Method {
	case MethodSearch:
		err = e.runSearch(ctx, userID, params, &sr)
	case MethodCreate:
		err = e.runCreate(ctx, userID, params, records.TypeTask, &sr)
	case MethodCalendar:
		err = e.runCreate(ctx, userID, params, records.TypeEvent, &sr)
	case MethodUpdate:
		err = e.runUpdate(ctx, userID, params, &sr)
	case MethodDelete:
		err = e.runDelete(ctx, userID, params, &sr)
	case MethodAnalyze, MethodConversational:
		err = e.runOracle(ctx, step, params, &sr)
	default:
		err = fmt.Errorf("unsupported step method %q", step.Method)
	}

	if err != nil {
		sr.Success = false
		sr.FailureMessage = e.failureMessage(err, userID, step, params)
		return sr
	}
	sr.Success = true
	return sr
}

func (e *Executor) runSearch(ctx context.Context, userID string, params map[string]string, sr *StepResult) error {
	query := params["query"]
	if query == "" {
		query = params["target"]
	}

	found, err := e.store.Search(ctx, userID, query, 20)
	if err != nil {
		return fmt.Errorf("searching records: %w", err)
	}
	sr.Records = found
	sr.Output = fmt.Sprintf("found %d matching records", len(found))
	return nil
}

func (e *Executor) runCreate(ctx context.Context, userID string, params map[string]string, recordType records.Type, sr *StepResult) error {
	title := params["title"]
	if title == "" {
		title = params["target"]
	}
	if title == "" {
		return fmt.Errorf("validation failed: missing required field title")
	}

	r := records.Record{
		UserID:      userID,
		Title:       title,
		Description: params["description"],
		Type:        recordType,
		Source:      params["source"],
	}
	if p := params["priority"]; p != "" {
		r.Priority = records.Priority(p)
	}
	if due := parseDue(params["due"]); due != nil {
		r.Due = due
	}

	created, err := e.store.Create(ctx, r)
	if err != nil {
		return fmt.Errorf("creating record: %w", err)
	}
	sr.Records = []records.Record{*created}
	sr.Output = fmt.Sprintf("created %q", created.Title)
	return nil
}

func (e *Executor) runUpdate(ctx context.Context, userID string, params map[string]string, sr *StepResult) error {
	target, err := e.resolveTarget(ctx, userID, params)
	if err != nil {
		return err
	}

	patch := records.Patch{}
	if s := params["status"]; s != "" {
		status := records.Status(s)
		patch.Status = &status
	}
	if p := params["priority"]; p != "" {
		priority := records.Priority(p)
		patch.Priority = &priority
	}
	if due := parseDue(params["due"]); due != nil {
		patch.Due = due
	}
	if patch.IsEmpty() {
		return fmt.Errorf("validation failed: no fields to update")
	}

	updated, err := e.store.UpdateByID(ctx, userID, target.ID, patch)
	if err != nil {
		return fmt.Errorf("updating %q: %w", target.Title, err)
	}
	sr.Records = []records.Record{*updated}
	sr.Output = fmt.Sprintf("updated %q", updated.Title)
	return nil
}

func (e *Executor) runDelete(ctx context.Context, userID string, params map[string]string, sr *StepResult) error {
	target, err := e.resolveTarget(ctx, userID, params)
	if err != nil {
		return err
	}

	deleted, err := e.store.SoftDelete(ctx, userID, target.ID)
	if err != nil {
		return fmt.Errorf("deleting %q: %w", target.Title, err)
	}
	sr.Records = []records.Record{*deleted}
	sr.Output = fmt.Sprintf("deleted %q", deleted.Title)
	return nil
}

// resolveTarget finds the record a mutation step refers to, by carried
// record ID first, then by title search.
func (e *Executor) resolveTarget(ctx context.Context, userID string, params map[string]string) (*records.Record, error) {
	if id := params["record_id"]; id != "" {
		r, err := e.store.Get(ctx, userID, id)
		if err != nil {
			return nil, fmt.Errorf("loading record %s: %w", id, err)
		}
		return r, nil
	}

	target := params["target"]
	if target == "" {
		return nil, fmt.Errorf("validation failed: missing required field target")
	}
	found, err := e.store.Find(ctx, records.Filter{UserID: userID, TitleContains: target}, records.FindOptions{Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", target, err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("validation failed: no record matches %q", target)
	}
	return &found[0], nil
}

func (e *Executor) runOracle(ctx context.Context, step Step, params map[string]string, sr *StepResult) error {
	if e.oracle == nil {
		return fmt.Errorf("no oracle configured")
	}

	var sb strings.Builder
	sb.WriteString(step.Title)
	if prior := params["prior_output"]; prior != "" {
		sb.WriteString("\n\nResults from earlier steps:\n")
		sb.WriteString(prior)
	}

	resp, err := e.oracle.Generate(ctx, oracle.Request{
		Messages: []oracle.Message{
			{Role: oracle.RoleSystem, Content: "You are a concise productivity assistant. Answer in a short paragraph."},
			{Role: oracle.RoleUser, Content: sb.String()},
		},
		MaxTokens: 512,
	})
	if err != nil {
		return fmt.Errorf("generating step response: %w", err)
	}
	sr.Output = strings.TrimSpace(resp.Content)
	return nil
}

// failureMessage produces the user-facing text for a failed step.
func (e *Executor) failureMessage(err error, userID string, step Step, params map[string]string) string {
	if e.recovery == nil {
		return fmt.Sprintf("Step %d (%s) failed.", step.Number, step.Title)
	}
	plan := e.recovery.Handle(err, recovery.SourceContext{
		Source:    params["source"],
		Operation: string(step.Method),
		UserID:    userID,
	})
	return plan.UserMessage
}

// mergeOutputs carries a step's results forward so later steps can
// refer to them.
func mergeOutputs(carried map[string]string, step Step, sr StepResult) {
	if sr.Output != "" {
		if prior := carried["prior_output"]; prior != "" {
			carried["prior_output"] = prior + "\n" + sr.Output
		} else {
			carried["prior_output"] = sr.Output
		}
	}
	if len(sr.Records) > 0 {
		carried["record_id"] = sr.Records[0].ID
	}
}

// synthesize writes the final reply for the chain: the oracle gets
// first shot, a deterministic template covers oracle failure, and a
// chain with zero successes reports failure with whatever suggestions
// the steps produced.
func (e *Executor) synthesize(ctx context.Context, chain Chain, result ChainResult) string {
	if result.SuccessCount == 0 {
		var suggestions []string
		for _, sr := range result.StepResults {
			if sr.FailureMessage != "" {
				suggestions = append(suggestions, sr.FailureMessage)
			}
		}
		msg := "I couldn't complete any part of that request."
		if len(suggestions) > 0 {
			msg += " " + strings.Join(dedupe(suggestions), " ")
		}
		return msg
	}

	if e.oracle != nil {
		if summary, err := e.oracleSummary(ctx, chain, result); err == nil && summary != "" {
			return summary
		}
	}
	return templateSummary(result)
}

func (e *Executor) oracleSummary(ctx context.Context, chain Chain, result ChainResult) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The user asked: %s\n\nStep outcomes:\n", chain.Query)
	for _, sr := range result.StepResults {
		if sr.Success {
			fmt.Fprintf(&sb, "- %s: %s\n", sr.Step.Title, sr.Output)
		} else {
			fmt.Fprintf(&sb, "- %s: failed (%s)\n", sr.Step.Title, sr.FailureMessage)
		}
	}

	resp, err := e.oracle.Generate(ctx, oracle.Request{
		Messages: []oracle.Message{
			{Role: oracle.RoleSystem, Content: "Summarize these step outcomes for the user in one or two friendly sentences. Mention failures honestly."},
			{Role: oracle.RoleUser, Content: sb.String()},
		},
		MaxTokens: 256,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

func templateSummary(result ChainResult) string {
	var done []string
	for _, sr := range result.StepResults {
		if sr.Success && sr.Output != "" {
			done = append(done, sr.Output)
		}
	}
	msg := "Done: " + strings.Join(done, "; ") + "."
	if result.FailureCount > 0 {
		msg += fmt.Sprintf(" %d step(s) failed.", result.FailureCount)
	}
	return msg
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			out = append(out, s)
			seen[s] = true
		}
	}
	return out
}

func parseDue(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
