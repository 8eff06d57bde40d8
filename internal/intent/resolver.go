package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/taskwise-ai/taskwise/internal/conversation"
	"github.com/taskwise-ai/taskwise/internal/oracle"
)

const classifyPrompt = `You classify a productivity assistant query. Respond with JSON only:
{
  "operation_type": "create|update|delete|search|schedule|conversational|complex",
  "confidence": 0.0-1.0,
  "reasoning": "one short sentence on why",
  "sources": ["linear", "github", "calendar", "gmail"],
  "parameters": {"target": "...", "title": "...", "status": "...", "due": "..."}
}
Rules:
- "complex" means the query needs several distinct operations.
- Questions about existing items are "search", never "create".
- Only list sources the query explicitly names.
- Omit parameters you cannot read from the query.`

// Resolver turns a raw query into an Analysis. It asks the oracle
// first and falls back to deterministic rules, so Analyze never fails:
// the worst case is a low-confidence conversational reading.
type Resolver struct {
	oracle    oracle.Client
	conv      *conversation.Manager
	threshold float64
	logger    *zap.Logger
}

// NewResolver creates a resolver. threshold is the ambiguity score
// above which a vague query earns a clarifying question.
func NewResolver(client oracle.Client, conv *conversation.Manager, threshold float64, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{oracle: client, conv: conv, threshold: threshold, logger: logger}
}

type oracleClassification struct {
	OperationType string            `json:"operation_type"`
	Confidence    float64           `json:"confidence"`
	Reasoning     string            `json:"reasoning"`
	Sources       []string          `json:"sources"`
	Parameters    map[string]string `json:"parameters"`
}

// Analyze classifies a query for a user. Oracle output is validated
// against the closed operation set and overridden where the rules know
// better; classification failures degrade to rules, never to an error.
func (r *Resolver) Analyze(ctx context.Context, userID, query string) Analysis {
	a := Analysis{
		RawQuery:   query,
		Parameters: map[string]string{},
	}

	hasHistory := false
	if r.conv != nil {
		hasHistory = len(r.conv.History(userID)) > 0
		a.IsFollowUp = r.conv.IsFollowUp(userID, query)
	}

	oc, err := r.classify(ctx, userID, query)
	if err != nil {
		r.logger.Debug("oracle classification failed, using rules",
			zap.String("user", userID), zap.Error(err))
		a.OperationType, a.Confidence = classifyByRules(query)
		a.Reasoning = ruleReason(a.OperationType)
	} else {
		a.OperationType = OperationType(oc.OperationType)
		a.Confidence = clamp01(oc.Confidence)
		a.Reasoning = oc.Reasoning
		a.Sources = oc.Sources
		for k, v := range oc.Parameters {
			a.Parameters[k] = v
		}
		if !a.OperationType.Valid() {
			a.OperationType, a.Confidence = classifyByRules(query)
			a.Reasoning = ruleReason(a.OperationType)
		}
	}
	if a.Reasoning == "" {
		a.Reasoning = ruleReason(a.OperationType)
	}

	// A question is a search no matter how the oracle read it.
	if ruleOp, _ := classifyByRules(query); ruleOp == OpSearch && a.OperationType == OpCreate {
		a.OperationType = OpSearch
		a.Reasoning = "question phrasing reads as a search, not a create"
	}

	if len(a.Sources) == 0 {
		a.Sources = detectSources(query)
	}

	a.AmbiguityScore = scoreAmbiguity(query, a.OperationType, a.Parameters, hasHistory)
	if a.AmbiguityScore > r.threshold && isVagueActionRequest(query) {
		a.NeedsClarification = true
		a.ClarificationQuestion = clarificationFor(a.OperationType)
	}

	return a
}

func (r *Resolver) classify(ctx context.Context, userID, query string) (*oracleClassification, error) {
	if r.oracle == nil {
		return nil, fmt.Errorf("no oracle configured")
	}

	messages := []oracle.Message{{Role: oracle.RoleSystem, Content: classifyPrompt}}
	if r.conv != nil {
		for _, e := range r.conv.Recent(userID, 3) {
			messages = append(messages, oracle.Message{
				Role:    oracle.RoleUser,
				Content: fmt.Sprintf("(earlier) %s", e.Query),
			})
		}
	}
	messages = append(messages, oracle.Message{Role: oracle.RoleUser, Content: query})

	resp, err := r.oracle.Generate(ctx, oracle.Request{
		Messages:    messages,
		MaxTokens:   512,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("generating classification: %w", err)
	}
	return parseClassification(resp.Content)
}

// parseClassification decodes the oracle's JSON, trimming any prose
// around the outermost braces. Models wrap JSON in commentary often
// enough that strict decoding alone loses too many good answers.
func parseClassification(content string) (*oracleClassification, error) {
	var oc oracleClassification
	if err := json.Unmarshal([]byte(content), &oc); err == nil {
		return &oc, nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &oc); err != nil {
		return nil, fmt.Errorf("parsing classification: %w", err)
	}
	return &oc, nil
}

func clarificationFor(op OperationType) string {
	switch op {
	case OpCreate:
		return "What would you like me to create, and any details like a due date?"
	case OpUpdate:
		return "Which item should I update, and what should change?"
	case OpDelete:
		return "Which item should I delete?"
	case OpSchedule:
		return "What should I schedule, and for when?"
	default:
		return "Could you tell me a bit more about what you'd like me to do?"
	}
}

// ruleReason describes a rule-based classification in one line.
func ruleReason(op OperationType) string {
	return fmt.Sprintf("keyword rules classified the query as %s", op)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
