package lexicon

import "testing"

func contains(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}

func TestNewTokenizerClassifiesByTypeAndCategory(t *testing.T) {
	tok := NewTokenizer([]Item{
		{ID: "flow-state", Title: "Flow State"},
		{ID: "red-team-review", Title: "Red Team Review", Type: "operational-heuristic"},
		{ID: "belimo", Title: "Belimo", Category: "Tool"},
	})

	m := tok.Extract("We discussed Flow State, ran a Red Team Review, and called Belimo.")
	if !contains(m.Concepts, "Flow State") {
		t.Errorf("expected Flow State classified as concept, got %+v", m)
	}
	if !contains(m.Protocols, "Red Team Review") {
		t.Errorf("expected Red Team Review classified as protocol, got %+v", m)
	}
	if !contains(m.Organizations, "Belimo") {
		t.Errorf("expected Belimo classified as organization, got %+v", m)
	}
}

func TestExtractLongestMatchWins(t *testing.T) {
	tok := NewTokenizer([]Item{
		{ID: "state", Title: "State"},
		{ID: "flow-state", Title: "Flow State"},
	})

	m := tok.Extract("We observed Flow State during the session.")
	if contains(m.Concepts, "State") {
		t.Errorf("expected shorter key suppressed by longest-match, got %+v", m)
	}
	if !contains(m.Concepts, "Flow State") {
		t.Errorf("expected Flow State matched, got %+v", m)
	}
}

func TestExtractRespectsWordBoundaries(t *testing.T) {
	tok := NewTokenizer([]Item{{ID: "flow", Title: "Flow"}})

	m := tok.Extract("The overflow was significant.")
	if contains(m.Concepts, "Flow") || len(m.Concepts) != 0 {
		t.Errorf("expected no match inside a larger word, got %+v", m)
	}
}

func TestExtractMatchesHyphenSpaceVariantOfID(t *testing.T) {
	tok := NewTokenizer([]Item{{ID: "red-team-review"}})

	m := tok.Extract("We ran a red team review yesterday.")
	if !contains(m.Concepts, "red team review") {
		t.Errorf("expected hyphen-space id variant to match, got %+v", m)
	}
}

func TestExtractMatchesAliases(t *testing.T) {
	tok := NewTokenizer([]Item{{ID: "term-flow-state", Title: "Flow State", Aliases: []string{"being in the zone"}}})

	m := tok.Extract("She described being in the zone during the climb.")
	if !contains(m.Concepts, "being in the zone") {
		t.Errorf("expected alias match, got %+v", m)
	}
}
