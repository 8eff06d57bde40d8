package recovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taskwise-ai/taskwise/internal/sources"
)

// Action is the immediate response prescribed for a failure category.
type Action string

const (
	ActionReauth       Action = "reauth"
	ActionQueueRetry   Action = "queue_retry"
	ActionBackoffRetry Action = "backoff_retry"
	ActionSwitchSource Action = "switch_source"
	ActionDegrade      Action = "degrade"
	ActionExplain      Action = "explain"
	ActionApologize    Action = "apologize"
)

// Plan is the full recovery prescription for one classified failure.
// The mapping from category to plan is fixed; only the user-facing text
// and alternative sources vary with the context.
type Plan struct {
	Classification Classification
	Action         Action
	Retryable      bool
	MaxAttempts    int
	Backoff        time.Duration

	// ShortTerm describes what the assistant will do within minutes;
	// LongTerm within the next half hour or more.
	ShortTerm string
	LongTerm  string

	// UserMessage is safe to surface verbatim. It names the integration
	// by display name and never leaks the raw error.
	UserMessage string

	// Alternatives lists sources that could serve the operation while
	// the failed one is down. Only set for availability failures.
	Alternatives []string
}

type planTemplate struct {
	action      Action
	maxAttempts int
	backoff     time.Duration
	shortTerm   string
	longTerm    string
}

var planTable = map[Category]planTemplate{
	CategoryAuth: {
		action:    ActionReauth,
		shortTerm: "pause requests to the integration until credentials are refreshed",
		longTerm:  "prompt for reconnection on the next interaction if still expired",
	},
	CategoryRateLimit: {
		action:      ActionQueueRetry,
		maxAttempts: 3,
		backoff:     time.Minute,
		shortTerm:   "queue the operation and retry after the throttle window",
		longTerm:    "spread future requests to stay under the limit",
	},
	CategoryNetwork: {
		action:      ActionBackoffRetry,
		maxAttempts: 3,
		backoff:     2 * time.Second,
		shortTerm:   "retry with exponential backoff",
		longTerm:    "report persistent connectivity problems if retries keep failing",
	},
	CategoryServiceUnavailable: {
		action:    ActionSwitchSource,
		shortTerm: "offer an alternative source for the same operation",
		longTerm:  "re-check the integration when its health entry expires",
	},
	CategoryPartialOutage: {
		action:      ActionDegrade,
		maxAttempts: 1,
		shortTerm:   "continue with the capabilities that still work",
		longTerm:    "restore full capabilities when the integration recovers",
	},
	CategoryValidation: {
		action:    ActionExplain,
		shortTerm: "tell the user which input was rejected",
		longTerm:  "",
	},
	CategoryUnknown: {
		action:      ActionApologize,
		maxAttempts: 1,
		backoff:     time.Second,
		shortTerm:   "retry once, then apologize",
		longTerm:    "log the signal for investigation",
	},
}

// Engine turns classifications into recovery plans and keeps the
// health tracker in sync with what it observes.
type Engine struct {
	health *sources.Tracker
	logger *zap.Logger
}

// NewEngine creates a recovery engine. health may be nil when no
// tracker is wired (tests, one-shot commands).
func NewEngine(health *sources.Tracker, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{health: health, logger: logger}
}

// Recover produces the plan for a classified failure. The category to
// action mapping is fixed; alternatives and messages come from the
// source registry. As a side effect the health tracker is updated for
// failures that imply integration state (auth, throttling, outage).
func (e *Engine) Recover(c Classification) Plan {
	tmpl := planTable[c.Category]
	plan := Plan{
		Classification: c,
		Action:         tmpl.action,
		Retryable:      c.Retryable,
		MaxAttempts:    tmpl.maxAttempts,
		Backoff:        tmpl.backoff,
		ShortTerm:      tmpl.shortTerm,
		LongTerm:       tmpl.longTerm,
	}

	display := sources.DisplayName(c.Context.Source)
	if c.Context.Source == "" {
		display = "the service"
	}

	switch c.Category {
	case CategoryAuth:
		e.markHealth(c, func(t *sources.Tracker) { t.MarkAuthExpired(c.Context.UserID, c.Context.Source) })
		plan.UserMessage = fmt.Sprintf("Your %s connection has expired. Please reconnect it and I'll pick up where we left off.", display)

	case CategoryRateLimit:
		e.markHealth(c, func(t *sources.Tracker) { t.MarkRateLimited(c.Context.UserID, c.Context.Source) })
		plan.UserMessage = fmt.Sprintf("%s is throttling requests right now. I've queued this and will retry shortly.", display)

	case CategoryNetwork:
		plan.UserMessage = fmt.Sprintf("I couldn't reach %s. I'll retry a few times before giving up.", display)

	case CategoryServiceUnavailable:
		e.markHealth(c, func(t *sources.Tracker) { t.MarkUnavailable(c.Context.UserID, c.Context.Source) })
		alts := sources.AlternativesFor(c.Context.Source, capabilityFor(c.Context.Operation))
		plan.Alternatives = e.healthyAlternatives(c.Context.UserID, alts)
		if len(plan.Alternatives) > 0 {
			names := make([]string, len(plan.Alternatives))
			for i, alt := range plan.Alternatives {
				names[i] = sources.DisplayName(alt)
			}
			plan.UserMessage = fmt.Sprintf("%s appears to be down. I can do this through %s instead if you'd like.", display, strings.Join(names, " or "))
		} else {
			plan.UserMessage = fmt.Sprintf("%s appears to be down. I'll try again once it's back.", display)
		}

	case CategoryPartialOutage:
		plan.UserMessage = fmt.Sprintf("%s is partially degraded. I'll continue with what's still working.", display)

	case CategoryValidation:
		plan.UserMessage = "Part of that request didn't pass validation. Could you rephrase or fill in the missing detail?"

	default:
		plan.UserMessage = "Something unexpected went wrong on my side. I'll retry once; if it fails again I'll let you know."
	}

	e.logger.Debug("recovery plan",
		zap.String("category", string(c.Category)),
		zap.String("action", string(plan.Action)),
		zap.String("source", c.Context.Source),
		zap.String("operation", c.Context.Operation))

	return plan
}

// Handle classifies and recovers in one call.
func (e *Engine) Handle(err error, sctx SourceContext) Plan {
	return e.Recover(Classify(err, sctx))
}

// Retry runs fn up to plan.MaxAttempts times with exponential backoff,
// honoring context cancellation between attempts. Plans with no retry
// budget run fn exactly once.
func (e *Engine) Retry(ctx context.Context, plan Plan, fn func(context.Context) error) error {
	attempts := plan.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := plan.Backoff
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 || !plan.Retryable {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

// healthyAlternatives drops alternatives the tracker already knows are
// down: suggesting a second broken source is worse than suggesting
// none.
func (e *Engine) healthyAlternatives(userID string, alts []string) []string {
	if e.health == nil || userID == "" {
		return alts
	}
	var out []string
	for _, alt := range alts {
		if e.health.Status(context.Background(), userID, alt).Available {
			out = append(out, alt)
		}
	}
	return out
}

func (e *Engine) markHealth(c Classification, mark func(*sources.Tracker)) {
	if e.health == nil || c.Context.Source == "" || c.Context.UserID == "" {
		return
	}
	mark(e.health)
}

// capabilityFor maps an operation to the registry capability needed to
// serve it elsewhere.
func capabilityFor(operation string) string {
	switch operation {
	case "schedule":
		return "scheduling"
	case "", "search", "create", "update", "delete":
		return "tasks"
	default:
		return "tasks"
	}
}
