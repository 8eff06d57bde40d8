package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/taskwise-ai/taskwise/internal/conversation"
	"github.com/taskwise-ai/taskwise/internal/oracle"
)

type fakeOracle struct {
	content string
	err     error
}

func (f *fakeOracle) Generate(ctx context.Context, req oracle.Request) (*oracle.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &oracle.Response{Content: f.content}, nil
}

func (f *fakeOracle) Name() string { return "fake" }

func newResolver(client oracle.Client) *Resolver {
	return NewResolver(client, conversation.NewManager(15), 0.7, nil)
}

func TestAnalyzeUsesOracleClassification(t *testing.T) {
	client := &fakeOracle{content: `{
		"operation_type": "update",
		"confidence": 0.92,
		"sources": ["linear"],
		"parameters": {"target": "login bug", "status": "done"}
	}`}
	r := newResolver(client)

	a := r.Analyze(context.Background(), "alice", "mark the login bug in linear as done")
	if a.OperationType != OpUpdate {
		t.Errorf("operation = %s, want update", a.OperationType)
	}
	if a.Confidence != 0.92 {
		t.Errorf("confidence = %v, want 0.92", a.Confidence)
	}
	if len(a.Sources) != 1 || a.Sources[0] != "linear" {
		t.Errorf("sources = %v", a.Sources)
	}
	if a.Parameters["status"] != "done" {
		t.Errorf("parameters = %v", a.Parameters)
	}
	if a.NeedsClarification {
		t.Error("a fully specified query should not need clarification")
	}
}

func TestAnalyzeParsesJSONWrappedInProse(t *testing.T) {
	client := &fakeOracle{content: "Sure, here is the classification:\n" +
		`{"operation_type": "search", "confidence": 0.8}` + "\nLet me know if you need more."}
	r := newResolver(client)

	a := r.Analyze(context.Background(), "alice", "what's due this week")
	if a.OperationType != OpSearch {
		t.Errorf("operation = %s, want search", a.OperationType)
	}
}

func TestAnalyzeFallsBackToRulesOnOracleError(t *testing.T) {
	r := newResolver(&fakeOracle{err: errors.New("connection refused")})

	tests := []struct {
		query string
		want  OperationType
	}{
		{"add buy milk to my list", OpCreate},
		{"mark the report as done", OpUpdate},
		{"delete the old draft", OpDelete},
		{"what tasks are due tomorrow", OpSearch},
		{"schedule a meeting with sam for friday", OpSchedule},
		{"thanks, that's all", OpConversational},
	}
	for _, tt := range tests {
		a := r.Analyze(context.Background(), "alice", tt.query)
		if a.OperationType != tt.want {
			t.Errorf("Analyze(%q) = %s, want %s", tt.query, a.OperationType, tt.want)
		}
	}
}

func TestAnalyzeFallsBackOnInvalidOperation(t *testing.T) {
	client := &fakeOracle{content: `{"operation_type": "summon", "confidence": 0.9}`}
	r := newResolver(client)

	a := r.Analyze(context.Background(), "alice", "add a task for the retro")
	if a.OperationType != OpCreate {
		t.Errorf("expected rules fallback create, got %s", a.OperationType)
	}
}

func TestQuestionOverridesOracleCreate(t *testing.T) {
	// The oracle misreads an inventory question as a create; the
	// question form wins.
	client := &fakeOracle{content: `{"operation_type": "create", "confidence": 0.85}`}
	r := newResolver(client)

	a := r.Analyze(context.Background(), "alice", "do I have any tasks for today?")
	if a.OperationType != OpSearch {
		t.Errorf("expected question to resolve as search, got %s", a.OperationType)
	}
}

func TestAnalyzeNeverErrorsWithoutOracle(t *testing.T) {
	r := NewResolver(nil, nil, 0.7, nil)

	a := r.Analyze(context.Background(), "alice", "")
	if !a.OperationType.Valid() {
		t.Errorf("expected a valid fallback operation, got %q", a.OperationType)
	}
}

func TestVagueRequestAsksClarification(t *testing.T) {
	r := newResolver(&fakeOracle{err: errors.New("down")})

	a := r.Analyze(context.Background(), "alice", "update it")
	if !a.NeedsClarification {
		t.Fatalf("expected clarification for a vague request, got %+v", a)
	}
	if a.ClarificationQuestion == "" {
		t.Error("expected a concrete clarifying question")
	}
}

func TestLongQueryNeverAsksClarification(t *testing.T) {
	r := newResolver(&fakeOracle{err: errors.New("down")})

	// Ambiguous but long: attempt it rather than interrogate the user.
	a := r.Analyze(context.Background(), "alice", "update something about that thing we discussed somewhere")
	if a.NeedsClarification {
		t.Error("queries longer than the vague-request shape should be attempted, not questioned")
	}
}

func TestFollowUpWithHistorySkipsClarification(t *testing.T) {
	conv := conversation.NewManager(15)
	conv.RecordInteraction("alice", conversation.Entry{Query: "show my linear tasks"})
	r := NewResolver(&fakeOracle{err: errors.New("down")}, conv, 0.7, nil)

	a := r.Analyze(context.Background(), "alice", "update it")
	if !a.IsFollowUp {
		t.Error("expected follow-up detection with history present")
	}
	if a.NeedsClarification {
		t.Error("history resolves the pronoun; no clarification needed")
	}
}

func TestReasoningCarriedFromOracle(t *testing.T) {
	client := &fakeOracle{content: `{
		"operation_type": "search",
		"confidence": 0.9,
		"reasoning": "asks about existing items"
	}`}
	r := newResolver(client)

	a := r.Analyze(context.Background(), "alice", "what's on my plate?")
	if a.Reasoning != "asks about existing items" {
		t.Errorf("reasoning = %q", a.Reasoning)
	}
}

func TestReasoningPopulatedByRulesFallback(t *testing.T) {
	r := newResolver(&fakeOracle{err: errors.New("down")})

	a := r.Analyze(context.Background(), "alice", "add buy milk to my list")
	if a.Reasoning == "" {
		t.Error("rules fallback should still explain the classification")
	}
}

func TestSourceDetectionFromLiteralNames(t *testing.T) {
	r := newResolver(&fakeOracle{err: errors.New("down")})

	a := r.Analyze(context.Background(), "alice", "show my GitHub issues")
	if len(a.Sources) != 1 || a.Sources[0] != "github" {
		t.Errorf("sources = %v, want [github]", a.Sources)
	}
}

func TestComplexQueryDetectedByRules(t *testing.T) {
	r := newResolver(&fakeOracle{err: errors.New("down")})

	a := r.Analyze(context.Background(), "alice", "create a task for the release and schedule a review meeting")
	if a.OperationType != OpComplex {
		t.Errorf("expected complex, got %s", a.OperationType)
	}
}
