package conversation

import (
	"strings"
	"sync"
	"time"
)

// Entry is one completed exchange in a user's conversation.
type Entry struct {
	Query     string
	Intent    string
	Response  string
	Sources   []string
	RecordIDs []string
	Timestamp time.Time
}

// Clarification is a question the assistant asked and is waiting on.
// Each user has at most one pending clarification; asking a new one
// replaces the old.
type Clarification struct {
	Question      string
	OriginalQuery string
	CreatedAt     time.Time
}

// Manager holds per-user conversation state: a bounded history window,
// the single pending-clarification slot, and source activity counters.
// All state is in memory; a restart starts conversations fresh.
type Manager struct {
	mu    sync.Mutex
	limit int
	users map[string]*userState
}

type userState struct {
	history        []Entry
	pending        *Clarification
	sourceActivity map[string]int
}

// NewManager creates a manager keeping at most limit history entries
// per user. Non-positive limits fall back to 15.
func NewManager(limit int) *Manager {
	if limit <= 0 {
		limit = 15
	}
	return &Manager{limit: limit, users: make(map[string]*userState)}
}

// RecordInteraction appends an exchange to the user's history, evicting
// the oldest entry once the window is full, and bumps activity counters
// for every source the exchange touched.
func (m *Manager) RecordInteraction(userID string, e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.user(userID)
	u.history = append(u.history, e)
	if len(u.history) > m.limit {
		u.history = u.history[len(u.history)-m.limit:]
	}
	for _, src := range e.Sources {
		u.sourceActivity[src]++
	}
}

// History returns a copy of the user's history, oldest first.
func (m *Manager) History(userID string) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return nil
	}
	out := make([]Entry, len(u.history))
	copy(out, u.history)
	return out
}

// Recent returns up to n of the user's most recent entries, oldest
// first.
func (m *Manager) Recent(userID string, n int) []Entry {
	history := m.History(userID)
	if len(history) > n {
		history = history[len(history)-n:]
	}
	return history
}

// SetClarification stores a pending clarification for the user,
// replacing any existing one. Clarifications never stack.
func (m *Manager) SetClarification(userID string, c Clarification) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(userID).pending = &c
}

// PendingClarification reports the user's pending clarification, if
// any, without consuming it.
func (m *Manager) PendingClarification(userID string) (Clarification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok || u.pending == nil {
		return Clarification{}, false
	}
	return *u.pending, true
}

// ConsumeClarification removes and returns the pending clarification.
// The slot is cleared whether or not the caller ends up using it: a
// user who answers, ignores, or changes topic all leave no pending
// question behind.
func (m *Manager) ConsumeClarification(userID string) (Clarification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok || u.pending == nil {
		return Clarification{}, false
	}
	c := *u.pending
	u.pending = nil
	return c, true
}

// SourceActivity returns a copy of the user's per-source interaction
// counters.
func (m *Manager) SourceActivity(userID string) map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return map[string]int{}
	}
	out := make(map[string]int, len(u.sourceActivity))
	for k, v := range u.sourceActivity {
		out[k] = v
	}
	return out
}

// Clear drops all state for a user in one step.
func (m *Manager) Clear(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, userID)
}

// user returns the state for userID, creating it if absent. Callers
// must hold m.mu.
func (m *Manager) user(userID string) *userState {
	u, ok := m.users[userID]
	if !ok {
		u = &userState{sourceActivity: make(map[string]int)}
		m.users[userID] = u
	}
	return u
}

// referentialWords are tokens that only make sense pointing back at an
// earlier exchange.
var referentialWords = map[string]bool{
	"it": true, "that": true, "them": true, "those": true,
	"this": true, "these": true, "one": true, "ones": true,
	"same": true, "again": true, "also": true, "too": true,
}

// IsFollowUp reports whether a query leans on earlier exchanges: it
// uses referential language or is too short to stand alone, and the
// user has history to refer back to.
func (m *Manager) IsFollowUp(userID, query string) bool {
	if len(m.History(userID)) == 0 {
		return false
	}

	tokens := strings.Fields(strings.ToLower(strings.TrimRight(query, "?!. ")))
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if referentialWords[strings.Trim(tok, ",.")] {
			return true
		}
	}
	return len(tokens) <= 3
}
