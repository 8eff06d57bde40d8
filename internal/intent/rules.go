package intent

import (
	"strings"

	"github.com/taskwise-ai/taskwise/internal/sources"
)

var questionWords = map[string]bool{
	"what": true, "which": true, "when": true, "where": true, "who": true,
	"how": true, "do": true, "does": true, "did": true, "is": true,
	"are": true, "show": true, "list": true, "find": true, "any": true,
}

var createVerbs = map[string]bool{
	"add": true, "create": true, "make": true, "new": true,
	"remind": true, "note": true, "track": true,
}

var updateVerbs = map[string]bool{
	"update": true, "mark": true, "complete": true, "finish": true,
	"change": true, "move": true, "rename": true, "set": true,
	"reschedule": true, "reopen": true, "close": true, "assign": true,
}

var deleteVerbs = map[string]bool{
	"delete": true, "remove": true, "cancel": true, "drop": true,
	"discard": true, "archive": true,
}

var scheduleWords = map[string]bool{
	"schedule": true, "meeting": true, "appointment": true,
	"calendar": true, "book": true, "invite": true,
}

var fillerWords = map[string]bool{
	"something": true, "stuff": true, "thing": true, "things": true,
	"somehow": true, "whatever": true, "somewhere": true,
}

var pronounWords = map[string]bool{
	"it": true, "that": true, "them": true, "those": true,
	"this": true, "these": true,
}

// classifyByRules is the deterministic fallback when the oracle is
// unreachable or returns garbage. Question forms outrank action verbs:
// "do I have any tasks to create" is a search, not a create.
func classifyByRules(query string) (OperationType, float64) {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return OpConversational, 0.3
	}

	if questionWords[tokens[0]] || strings.HasSuffix(strings.TrimSpace(query), "?") {
		return OpSearch, 0.7
	}

	counts := map[OperationType]int{}
	for _, tok := range tokens {
		switch {
		case createVerbs[tok]:
			counts[OpCreate]++
		case updateVerbs[tok]:
			counts[OpUpdate]++
		case deleteVerbs[tok]:
			counts[OpDelete]++
		case scheduleWords[tok]:
			counts[OpSchedule]++
		}
	}

	distinct := 0
	var best OperationType
	bestCount := 0
	for op, n := range counts {
		distinct++
		if n > bestCount {
			best, bestCount = op, n
		}
	}

	// Two different action families joined in one request is a
	// multi-step ask.
	if distinct >= 2 && containsToken(tokens, "and") {
		return OpComplex, 0.6
	}
	if bestCount > 0 {
		// Scheduling words double as create targets ("add a meeting");
		// an explicit create verb wins.
		if best == OpSchedule && counts[OpCreate] > 0 {
			return OpSchedule, 0.7
		}
		return best, 0.7
	}
	return OpConversational, 0.5
}

// detectSources finds integration names mentioned literally in the
// query, by registered name or display name.
func detectSources(query string) []string {
	lower := strings.ToLower(query)

	var found []string
	for _, name := range sources.Names() {
		display := strings.ToLower(sources.DisplayName(name))
		if strings.Contains(lower, name) || strings.Contains(lower, display) {
			found = append(found, name)
		}
	}
	return found
}

// scoreAmbiguity measures how underspecified the query is: filler
// words, pronouns with no history to resolve against, and action
// requests with no identifiable target all add up.
func scoreAmbiguity(query string, op OperationType, params map[string]string, hasHistory bool) float64 {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return 1.0
	}

	score := 0.0
	for _, tok := range tokens {
		if fillerWords[tok] {
			score += 0.3
		}
		if pronounWords[tok] && !hasHistory {
			score += 0.4
		}
	}

	if isMutation(op) && params["target"] == "" && params["title"] == "" && !hasHistory {
		score += 0.3
	}
	if len(tokens) <= 2 && op != OpConversational {
		score += 0.2
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// isVagueActionRequest matches the "do something" shape: a bare action
// verb with at most a couple of content-free tokens around it. Only
// queries of this shape are worth a clarifying question; longer queries
// carry enough context to attempt directly.
func isVagueActionRequest(query string) bool {
	tokens := tokenize(query)
	if len(tokens) == 0 || len(tokens) > 3 {
		return false
	}

	hasVerb := false
	for _, tok := range tokens {
		switch {
		case createVerbs[tok] || updateVerbs[tok] || deleteVerbs[tok] || scheduleWords[tok]:
			hasVerb = true
		case fillerWords[tok] || pronounWords[tok]:
		case tok == "a" || tok == "an" || tok == "the" || tok == "my" || tok == "please":
		default:
			return false
		}
	}
	return hasVerb
}

func isMutation(op OperationType) bool {
	switch op {
	case OpCreate, OpUpdate, OpDelete, OpSchedule:
		return true
	}
	return false
}

func tokenize(query string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '?', '!', '.', ',', ';', ':':
			return ' '
		}
		return r
	}, strings.ToLower(query))
	return strings.Fields(cleaned)
}

func containsToken(tokens []string, want string) bool {
	for _, tok := range tokens {
		if tok == want {
			return true
		}
	}
	return false
}
