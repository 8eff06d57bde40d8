package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskwise-ai/taskwise/internal/oracle"
)

const planPrompt = `You plan the steps a productivity assistant should take for a query. Respond with JSON only:
{
  "steps": [
    {
      "title": "short imperative-free description",
      "method": "search|create|update|delete|calendar|analyze|conversational",
      "params": {"query": "...", "title": "...", "target": "...", "status": "...", "due": "...", "source": "..."},
      "on_failure": "stop|continue"
    }
  ]
}
Rules:
- Use the fewest steps that cover the request.
- Steps that later steps depend on get "on_failure": "stop"; independent steps get "continue".
- Omit params you cannot read from the query.`

// Planner builds reasoning chains, asking the oracle for a step plan
// and degrading to a single-step chain when the oracle cannot help.
type Planner struct {
	oracle   oracle.Client
	maxSteps int
	logger   *zap.Logger
}

// NewPlanner creates a planner capped at maxSteps steps per chain.
func NewPlanner(client oracle.Client, maxSteps int, logger *zap.Logger) *Planner {
	if maxSteps <= 0 {
		maxSteps = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{oracle: client, maxSteps: maxSteps, logger: logger}
}

type oraclePlan struct {
	Steps []struct {
		Title     string            `json:"title"`
		Method    string            `json:"method"`
		Params    map[string]string `json:"params"`
		OnFailure string            `json:"on_failure"`
	} `json:"steps"`
}

// BuildChain plans the steps for a query. Invalid methods and steps
// past the cap are dropped; an empty or failed plan becomes a
// single-step fallback so the caller always gets something executable.
func (p *Planner) BuildChain(ctx context.Context, userID, query string) Chain {
	chain := Chain{
		ID:        uuid.NewString(),
		UserID:    userID,
		Query:     query,
		CreatedAt: time.Now(),
	}

	plan, err := p.plan(ctx, query)
	if err != nil {
		p.logger.Debug("oracle planning failed, using fallback step",
			zap.String("user", userID), zap.Error(err))
		chain.Steps = []Step{fallbackStep(query)}
		return chain
	}

	for _, s := range plan.Steps {
		if len(chain.Steps) == p.maxSteps {
			break
		}
		method := StepMethod(s.Method)
		if !method.Valid() {
			continue
		}
		onFailure := FailureHandling(s.OnFailure)
		if onFailure != FailureContinue {
			onFailure = FailureStop
		}
		params := s.Params
		if params == nil {
			params = map[string]string{}
		}
		chain.Steps = append(chain.Steps, Step{
			Number:    len(chain.Steps) + 1,
			Title:     s.Title,
			Method:    method,
			Params:    params,
			OnFailure: onFailure,
		})
	}

	if len(chain.Steps) == 0 {
		chain.Steps = []Step{fallbackStep(query)}
	}
	return chain
}

func (p *Planner) plan(ctx context.Context, query string) (*oraclePlan, error) {
	if p.oracle == nil {
		return nil, fmt.Errorf("no oracle configured")
	}

	resp, err := p.oracle.Generate(ctx, oracle.Request{
		Messages: []oracle.Message{
			{Role: oracle.RoleSystem, Content: planPrompt},
			{Role: oracle.RoleUser, Content: query},
		},
		MaxTokens:   1024,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("generating plan: %w", err)
	}

	var plan oraclePlan
	content := resp.Content
	if err := json.Unmarshal([]byte(content), &plan); err != nil {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON object in plan response")
		}
		if err := json.Unmarshal([]byte(content[start:end+1]), &plan); err != nil {
			return nil, fmt.Errorf("parsing plan: %w", err)
		}
	}
	return &plan, nil
}

var imperativeVerbs = map[string]bool{
	"please": true, "can": true, "you": true, "find": true, "search": true,
	"show": true, "list": true, "get": true, "create": true, "add": true,
	"make": true, "update": true, "mark": true, "delete": true, "remove": true,
	"schedule": true,
}

// fallbackStep wraps the whole query in one search step with a title
// readable in progress output: leading imperative scaffolding stripped,
// first letter capitalized.
func fallbackStep(query string) Step {
	words := strings.Fields(query)
	for len(words) > 1 && imperativeVerbs[strings.ToLower(words[0])] {
		words = words[1:]
	}
	title := strings.Join(words, " ")
	if title == "" {
		title = query
	}
	if title != "" {
		title = strings.ToUpper(title[:1]) + title[1:]
	}

	return Step{
		Number:    1,
		Title:     title,
		Method:    MethodSearch,
		Params:    map[string]string{"query": query},
		OnFailure: FailureStop,
	}
}
