package catalog

import (
	"testing"

	"symptombot/internal/domain"
)

func testCatalog() *domain.KnowledgeBase {
	return &domain.KnowledgeBase{
		Symptoms: []domain.Symptom{"fever", "cough", "headache"},
		Diseases: map[domain.Symptom][]domain.Disease{
			"fever":    {"flu", "malaria", "covid-19"},
			"cough":    {},
			"headache": {"migraine"},
		},
	}
}

func TestSelectReachesEveryCandidate(t *testing.T) {
	s := NewSelector(testCatalog())
	seen := map[domain.Disease]int{}
	for i := 0; i < 2000; i++ {
		d := s.Select("fever")
		switch d {
		case "flu", "malaria", "covid-19":
			seen[d]++
		default:
			t.Fatalf("Select returned %q, not a candidate", d)
		}
	}
	if len(seen) != 3 {
		t.Errorf("not every disease reachable: %v", seen)
	}
}

func TestSelectUnknown(t *testing.T) {
	s := NewSelector(testCatalog())
	for _, sym := range []domain.Symptom{"cough", "sneezing", ""} {
		if got := s.Select(sym); got != domain.Unknown {
			t.Errorf("Select(%q) = %q, want Unknown", sym, got)
		}
	}
	if got := NewSelector(nil).Select("fever"); got != domain.Unknown {
		t.Errorf("nil catalog: got %q", got)
	}
}

func TestSelectUsesSource(t *testing.T) {
	var asked []int
	s := NewSelector(testCatalog(), WithSource(func(n int) int {
		asked = append(asked, n)
		return n - 1
	}))
	if got := s.Select("fever"); got != "covid-19" {
		t.Errorf("got %q, want covid-19", got)
	}
	if got := s.Select("headache"); got != "migraine" {
		t.Errorf("got %q, want migraine", got)
	}
	if len(asked) != 2 || asked[0] != 3 || asked[1] != 1 {
		t.Errorf("source called with %v", asked)
	}
}
