package bulkops

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/taskwise-ai/taskwise/internal/records"
	"github.com/taskwise-ai/taskwise/internal/sources"
)

var (
	// ErrNotFound means no pending operation has that ID.
	ErrNotFound = errors.New("pending operation not found")
	// ErrNotOwner means the operation exists but belongs to someone else.
	ErrNotOwner = errors.New("pending operation belongs to another user")
	// ErrExpired means the operation outlived its confirmation window.
	ErrExpired = errors.New("pending operation expired")
)

// previewSize is how many affected records a confirmation prompt shows.
const previewSize = 5

// Operation is a planned bulk mutation awaiting confirmation. IDs are
// ULIDs so pending operations sort by creation time.
type Operation struct {
	ID          string
	UserID      string
	Description string
	Patch       records.Patch
	Targets     []records.Record
	Sources     []string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Plan is the outcome of planning a bulk mutation: either it needs a
// confirmation round-trip (Operation is pending under its ID) or it is
// safe to execute straight away.
type Plan struct {
	Operation         *Operation
	NeedsConfirmation bool
	Summary           string
	Preview           []records.Record
	TotalCount        int
}

// RecordFailure is one record that could not be mutated.
type RecordFailure struct {
	RecordID string
	Title    string
	Message  string
}

// Result is the outcome of executing a bulk operation. Every target is
// attempted independently; SuccessCount plus FailureCount always equals
// the number of targets.
type Result struct {
	SuccessCount int
	FailureCount int
	Updated      []records.Record
	Failures     []RecordFailure
}

// Manager plans, holds, and executes bulk operations. Pending
// operations live in memory with a confirmation TTL; expiry is lazy,
// enforced when an operation is read.
type Manager struct {
	store      records.Store
	health     *sources.Tracker
	ttl        time.Duration
	maxTargets int
	logger     *zap.Logger

	mu      sync.Mutex
	pending map[string]*Operation
}

// NewManager creates a bulk operation manager. health may be nil, in
// which case planning skips the integration health check.
func NewManager(store records.Store, health *sources.Tracker, ttl time.Duration, maxTargets int, logger *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxTargets <= 0 {
		maxTargets = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:      store,
		health:     health,
		ttl:        ttl,
		maxTargets: maxTargets,
		logger:     logger,
		pending:    make(map[string]*Operation),
	}
}

// PlanUpdate resolves the targets of a bulk patch and decides whether
// it needs confirmation. Validation fails closed: if any target's
// source forbids any patched field, nothing is planned and the error
// names the offending fields.
func (m *Manager) PlanUpdate(ctx context.Context, userID, description string, filter records.Filter, patch records.Patch) (*Plan, error) {
	filter.UserID = userID

	targets, err := m.store.Find(ctx, filter, records.FindOptions{Limit: m.maxTargets})
	if err != nil {
		return nil, fmt.Errorf("resolving targets: %w", err)
	}
	return m.plan(ctx, userID, description, targets, patch)
}

// PlanTargets plans a patch over an already-resolved set of records,
// bypassing filter resolution. Used when the targets came from the
// conversation itself, like a follow-up pointing at the previous
// exchange.
func (m *Manager) PlanTargets(ctx context.Context, userID, description string, targets []records.Record, patch records.Patch) (*Plan, error) {
	if len(targets) > m.maxTargets {
		targets = targets[:m.maxTargets]
	}
	return m.plan(ctx, userID, description, targets, patch)
}

// plan validates and gates one bulk mutation. Confirmation is required
// when more than one record is affected, when any target's source
// mandates it, when targets span multiple sources, or when a target's
// source is currently unhealthy.
func (m *Manager) plan(ctx context.Context, userID, description string, targets []records.Record, patch records.Patch) (*Plan, error) {
	if patch.IsEmpty() {
		return nil, fmt.Errorf("nothing to update")
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no records match")
	}

	if err := validatePatch(targets, patch); err != nil {
		return nil, err
	}

	srcs := distinctSources(targets)
	needsConfirm := len(targets) > 1 || len(srcs) > 1
	for _, src := range srcs {
		if sources.Lookup(src).RequiresConfirmation {
			needsConfirm = true
		}
	}

	summary := summarize(description, targets, srcs)
	if down := m.unhealthySources(ctx, userID, srcs); len(down) > 0 {
		// An unhealthy source never executes silently, even for a
		// single record.
		needsConfirm = true
		summary += fmt.Sprintf(" (note: %s is currently unreachable, so changes may not sync)", strings.Join(down, " and "))
	}

	plan := &Plan{
		NeedsConfirmation: needsConfirm,
		TotalCount:        len(targets),
		Preview:           targets[:min(previewSize, len(targets))],
		Summary:           summary,
	}

	op := &Operation{
		ID:          ulid.Make().String(),
		UserID:      userID,
		Description: description,
		Patch:       patch,
		Targets:     targets,
		Sources:     srcs,
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(m.ttl),
	}
	plan.Operation = op

	if needsConfirm {
		m.mu.Lock()
		m.pending[op.ID] = op
		m.mu.Unlock()
		m.logger.Debug("bulk operation pending confirmation",
			zap.String("op", op.ID),
			zap.String("user", userID),
			zap.Int("targets", len(targets)))
	}
	return plan, nil
}

// unhealthySources returns display names of involved sources whose
// health entry says they are not available right now.
func (m *Manager) unhealthySources(ctx context.Context, userID string, srcs []string) []string {
	if m.health == nil {
		return nil
	}
	var down []string
	for _, src := range srcs {
		if src == sources.Native {
			continue
		}
		if h := m.health.Status(ctx, userID, src); !h.Available {
			down = append(down, sources.DisplayName(src))
		}
	}
	return down
}

// Confirm executes a pending operation. Ownership is checked before
// expiry so a foreign user learns nothing about the operation's state;
// expired operations are evicted on this read.
func (m *Manager) Confirm(ctx context.Context, userID, opID string) (*Result, error) {
	m.mu.Lock()
	op, ok := m.pending[opID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	if op.UserID != userID {
		m.mu.Unlock()
		return nil, ErrNotOwner
	}
	if time.Now().After(op.ExpiresAt) {
		delete(m.pending, opID)
		m.mu.Unlock()
		return nil, ErrExpired
	}
	delete(m.pending, opID)
	m.mu.Unlock()

	return m.Execute(ctx, op), nil
}

// Cancel discards a pending operation without executing it.
func (m *Manager) Cancel(userID, opID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	op, ok := m.pending[opID]
	if !ok {
		return ErrNotFound
	}
	if op.UserID != userID {
		return ErrNotOwner
	}
	delete(m.pending, opID)
	return nil
}

// Pending returns the user's pending operation IDs, oldest first.
func (m *Manager) Pending(userID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	now := time.Now()
	for id, op := range m.pending {
		if op.UserID == userID && now.Before(op.ExpiresAt) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Execute applies the operation's patch to every target independently.
// One record failing never aborts the rest.
func (m *Manager) Execute(ctx context.Context, op *Operation) *Result {
	result := &Result{}
	for _, target := range op.Targets {
		updated, err := m.store.UpdateByID(ctx, op.UserID, target.ID, op.Patch)
		if err != nil {
			result.FailureCount++
			result.Failures = append(result.Failures, RecordFailure{
				RecordID: target.ID,
				Title:    target.Title,
				Message:  fmt.Sprintf("could not update %q", target.Title),
			})
			m.logger.Warn("bulk target failed",
				zap.String("op", op.ID),
				zap.String("record", target.ID),
				zap.Error(err))
			continue
		}
		result.SuccessCount++
		result.Updated = append(result.Updated, *updated)
	}
	return result
}

// SweepExpired evicts pending operations past their window. Expiry is
// otherwise lazy.
func (m *Manager) SweepExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	evicted := 0
	for id, op := range m.pending {
		if now.After(op.ExpiresAt) {
			delete(m.pending, id)
			evicted++
		}
	}
	return evicted
}

// validatePatch rejects the whole operation if any target's source
// forbids any patched field.
func validatePatch(targets []records.Record, patch records.Patch) error {
	fields := patch.Fields()

	type violation struct{ source, field string }
	seen := map[violation]bool{}
	var problems []string
	for _, target := range targets {
		src := sources.Lookup(target.Source)
		for _, field := range fields {
			v := violation{target.Source, field}
			if !src.CanUpdate(field) && !seen[v] {
				seen[v] = true
				problems = append(problems,
					fmt.Sprintf("%s does not allow updating %s", src.DisplayName, field))
			}
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

func distinctSources(targets []records.Record) []string {
	seen := map[string]bool{}
	var srcs []string
	for _, t := range targets {
		if !seen[t.Source] {
			seen[t.Source] = true
			srcs = append(srcs, t.Source)
		}
	}
	sort.Strings(srcs)
	return srcs
}

func summarize(description string, targets []records.Record, srcs []string) string {
	names := make([]string, len(srcs))
	for i, s := range srcs {
		names[i] = sources.DisplayName(s)
	}
	return fmt.Sprintf("%s: %d record(s) across %s", description, len(targets), strings.Join(names, ", "))
}
