package conversation

import (
	"fmt"
	"testing"
)

func TestHistoryEvictsOldestAtCap(t *testing.T) {
	m := NewManager(3)

	for i := 1; i <= 5; i++ {
		m.RecordInteraction("alice", Entry{Query: fmt.Sprintf("query %d", i)})
	}

	history := m.History("alice")
	if len(history) != 3 {
		t.Fatalf("expected window of 3, got %d", len(history))
	}
	if history[0].Query != "query 3" || history[2].Query != "query 5" {
		t.Errorf("expected oldest entries evicted, got %+v", history)
	}
}

func TestHistoryIsPerUser(t *testing.T) {
	m := NewManager(10)

	m.RecordInteraction("alice", Entry{Query: "alice's question"})
	m.RecordInteraction("bob", Entry{Query: "bob's question"})

	if got := m.History("alice"); len(got) != 1 || got[0].Query != "alice's question" {
		t.Errorf("alice history: %+v", got)
	}
	if got := m.History("bob"); len(got) != 1 || got[0].Query != "bob's question" {
		t.Errorf("bob history: %+v", got)
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	m := NewManager(10)
	m.RecordInteraction("alice", Entry{Query: "original"})

	history := m.History("alice")
	history[0].Query = "mutated"

	if got := m.History("alice"); got[0].Query != "original" {
		t.Error("History should return a copy, not the backing slice")
	}
}

func TestClarificationReplacesNotStacks(t *testing.T) {
	m := NewManager(10)

	m.SetClarification("alice", Clarification{Question: "Which task?", OriginalQuery: "update it"})
	m.SetClarification("alice", Clarification{Question: "For which day?", OriginalQuery: "schedule it"})

	c, ok := m.ConsumeClarification("alice")
	if !ok {
		t.Fatal("expected a pending clarification")
	}
	if c.Question != "For which day?" {
		t.Errorf("expected last clarification to win, got %q", c.Question)
	}

	if _, ok := m.ConsumeClarification("alice"); ok {
		t.Error("slot should be empty after consume; clarifications must not stack")
	}
}

func TestConsumeClarificationClearsUnconditionally(t *testing.T) {
	m := NewManager(10)

	m.SetClarification("alice", Clarification{Question: "Which task?"})

	if _, ok := m.ConsumeClarification("alice"); !ok {
		t.Fatal("expected pending clarification on first consume")
	}
	if _, ok := m.PendingClarification("alice"); ok {
		t.Error("pending slot should be empty after consume")
	}
}

func TestSourceActivityCounts(t *testing.T) {
	m := NewManager(10)

	m.RecordInteraction("alice", Entry{Query: "q1", Sources: []string{"linear"}})
	m.RecordInteraction("alice", Entry{Query: "q2", Sources: []string{"linear", "calendar"}})

	activity := m.SourceActivity("alice")
	if activity["linear"] != 2 || activity["calendar"] != 1 {
		t.Errorf("unexpected activity: %+v", activity)
	}
}

func TestClearDropsEverything(t *testing.T) {
	m := NewManager(10)

	m.RecordInteraction("alice", Entry{Query: "q", Sources: []string{"linear"}})
	m.SetClarification("alice", Clarification{Question: "Which?"})
	m.Clear("alice")

	if len(m.History("alice")) != 0 {
		t.Error("expected empty history after Clear")
	}
	if _, ok := m.PendingClarification("alice"); ok {
		t.Error("expected no pending clarification after Clear")
	}
	if len(m.SourceActivity("alice")) != 0 {
		t.Error("expected empty activity after Clear")
	}
}

func TestIsFollowUp(t *testing.T) {
	m := NewManager(10)
	m.RecordInteraction("alice", Entry{Query: "show my linear tasks"})

	tests := []struct {
		query string
		want  bool
	}{
		{"mark it as done", true},
		{"delete those", true},
		{"and the second one?", true},
		{"yes", true},
		{"create a brand new task for the quarterly report", false},
		{"what meetings do I have tomorrow afternoon", false},
	}
	for _, tt := range tests {
		if got := m.IsFollowUp("alice", tt.query); got != tt.want {
			t.Errorf("IsFollowUp(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}

	// No history means nothing to follow up on.
	if m.IsFollowUp("bob", "mark it as done") {
		t.Error("follow-up detection should require existing history")
	}
}
