package recovery

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Category is the typed diagnosis of a failure.
type Category string

const (
	CategoryAuth               Category = "auth"
	CategoryRateLimit          Category = "rate_limit"
	CategoryNetwork            Category = "network"
	CategoryServiceUnavailable Category = "service_unavailable"
	CategoryPartialOutage      Category = "partial_outage"
	CategoryValidation         Category = "validation"
	CategoryUnknown            Category = "unknown"
)

// Severity grades how badly a failure impacts the user.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SourceContext carries where a failure happened. It is part of the
// classification input: the same signal from different sources still
// classifies identically, but the context travels with the result so
// recovery can name the integration.
type SourceContext struct {
	Source    string
	Operation string
	UserID    string
}

// Classification is the deterministic diagnosis of one failure.
// Classify is a pure function of (message, status, context): identical
// inputs always produce the identical category.
type Classification struct {
	Category  Category
	Severity  Severity
	Retryable bool
	Context   SourceContext
	// Signal is the raw technical message, kept for logs only. It is
	// never shown to the end user.
	Signal string
}

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

var severityFor = map[Category]Severity{
	CategoryAuth:               SeverityHigh,
	CategoryRateLimit:          SeverityMedium,
	CategoryNetwork:            SeverityMedium,
	CategoryServiceUnavailable: SeverityHigh,
	CategoryPartialOutage:      SeverityMedium,
	CategoryValidation:         SeverityLow,
	CategoryUnknown:            SeverityMedium,
}

var retryableFor = map[Category]bool{
	CategoryAuth:               false,
	CategoryRateLimit:          true,
	CategoryNetwork:            true,
	CategoryServiceUnavailable: true,
	CategoryPartialOutage:      true,
	CategoryValidation:         false,
	CategoryUnknown:            true,
}

// Classify turns a raw failure plus its source context into a typed
// classification. The match is ordered: authentication signals first,
// then throttling, transport, availability, validation, and finally
// unknown. Order matters because real messages often match several
// patterns ("401 ... connection closed").
func Classify(err error, sctx SourceContext) Classification {
	if err == nil {
		return Classification{Category: CategoryUnknown, Severity: SeverityLow, Context: sctx}
	}

	category := classifySignal(err)
	return Classification{
		Category:  category,
		Severity:  severityFor[category],
		Retryable: retryableFor[category],
		Context:   sctx,
		Signal:    err.Error(),
	}
}

func classifySignal(err error) Category {
	msg := strings.ToLower(err.Error())
	status := statusOf(err)

	switch {
	case status == 401 || status == 403 ||
		containsAny(msg, "unauthorized", "forbidden", "token expired", "invalid token", "authentication", "re-auth"):
		return CategoryAuth

	case status == 429 || containsAny(msg, "rate limit", "too many requests", "quota exceeded"):
		return CategoryRateLimit

	case isNetworkError(err) ||
		containsAny(msg, "timeout", "timed out", "connection refused", "connection reset", "no such host", "network", "dial tcp"):
		return CategoryNetwork

	case status == 503 || containsAny(msg, "service unavailable", "temporarily unavailable", "maintenance"):
		return CategoryServiceUnavailable

	case status == 502 || status == 504 || containsAny(msg, "partial", "bad gateway", "gateway timeout", "degraded"):
		return CategoryPartialOutage

	case status == 400 || status == 422 || containsAny(msg, "validation", "invalid", "malformed", "missing required"):
		return CategoryValidation

	default:
		return CategoryUnknown
	}
}

func statusOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
