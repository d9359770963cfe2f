package service

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"symptombot/internal/domain"
	"symptombot/internal/embedding/tfidf"
	"symptombot/internal/responder"
	"symptombot/internal/vectorstore/memory"
)

func scenarioKB() *domain.KnowledgeBase {
	return &domain.KnowledgeBase{
		Symptoms: []domain.Symptom{"fever", "cough", "sore throat"},
		Diseases: map[domain.Symptom][]domain.Disease{
			"fever":       {"flu"},
			"cough":       {},
			"sore throat": {"strep throat", "common cold"},
		},
		Info: map[domain.Disease]domain.Remedies{
			"flu":          {GenericMedicines: []string{"paracetamol"}, HomeRemedies: []string{"rest"}},
			"strep throat": {GenericMedicines: []string{"amoxicillin"}},
		},
	}
}

func newEngine(t *testing.T, kb *domain.KnowledgeBase) *Engine {
	t.Helper()
	return New(kb, Config{Threshold: memory.DefaultThreshold})
}

func TestScenarioExactSymptom(t *testing.T) {
	e := newEngine(t, scenarioKB())
	if err := e.Err(); err != nil {
		t.Fatal(err)
	}
	ans, err := e.Answer("fever")
	if err != nil {
		t.Fatal(err)
	}
	if !ans.Match.Matched || ans.Match.Symptom != "fever" || ans.Disease != "flu" {
		t.Fatalf("unexpected answer: %+v", ans)
	}
	for _, want := range []string{"'fever'", "'flu'", "paracetamol", "rest"} {
		if !strings.Contains(ans.Text, want) {
			t.Errorf("reply %q missing %q", ans.Text, want)
		}
	}
}

func TestScenarioUnrelatedInput(t *testing.T) {
	e := newEngine(t, scenarioKB())
	ans, err := e.Answer("purple elephant")
	if err != nil {
		t.Fatal(err)
	}
	if ans.Text != responder.Fallback {
		t.Errorf("got %q, want fallback", ans.Text)
	}
	if ans.Match.Matched || ans.Match.Score != 0 {
		t.Errorf("unexpected match: %+v", ans.Match)
	}
}

func TestScenarioSymptomWithoutDiseases(t *testing.T) {
	e := newEngine(t, scenarioKB())
	ans, err := e.Answer("cough")
	if err != nil {
		t.Fatal(err)
	}
	if ans.Disease != domain.Unknown {
		t.Errorf("disease = %q, want Unknown", ans.Disease)
	}
	want := "Based on the symptom 'cough', a possible disease is 'Unknown'.\n" +
		"Generic Medicine(s): No information\n" +
		"Home Remedy: No information"
	if ans.Text != want {
		t.Errorf("got %q", ans.Text)
	}
}

func TestAnswerCaseInsensitive(t *testing.T) {
	e := newEngine(t, scenarioKB())
	if res := e.Match("  SORE Throat "); !res.Matched || res.Symptom != "sore throat" {
		t.Errorf("got %+v", res)
	}
}

func TestPartialOverlapBelowThreshold(t *testing.T) {
	e := newEngine(t, scenarioKB())
	res := e.Match("throat")
	if res.Matched {
		t.Fatalf("partial overlap should not clear 0.9: %+v", res)
	}
	if res.Score <= 0 || res.Score >= 1 {
		t.Errorf("expected a partial score, got %v", res.Score)
	}
	if got := e.Candidates("throat", 1); len(got) != 1 || got[0].Symptom != "sore throat" {
		t.Errorf("candidates = %+v", got)
	}
}

func TestSelfSimilarityEveryEntry(t *testing.T) {
	e := newEngine(t, scenarioKB())
	for _, s := range scenarioKB().Symptoms {
		res := e.Match(string(s))
		if !res.Matched || res.Symptom != s {
			t.Errorf("%q: got %+v", s, res)
		}
	}
}

func TestDegradedEngine(t *testing.T) {
	e := newEngine(t, &domain.KnowledgeBase{})
	if !errors.Is(e.Err(), tfidf.ErrEmptyVocabulary) {
		t.Fatalf("Err() = %v, want ErrEmptyVocabulary", e.Err())
	}
	ans, err := e.Answer("fever")
	if err != nil {
		t.Fatal(err)
	}
	if ans.Text != responder.Fallback {
		t.Errorf("got %q", ans.Text)
	}
	if e.Vocabulary() != 0 || e.Candidates("fever", 3) != nil {
		t.Error("degraded engine reported candidates")
	}
	if New(nil, Config{}).Err() == nil {
		t.Error("nil knowledge base should degrade")
	}
}

func TestComposeErrorPropagates(t *testing.T) {
	kb := scenarioKB()
	kb.Info["flu"] = domain.Remedies{HomeRemedies: []string{""}}
	e := newEngine(t, kb)
	if _, err := e.Answer("fever"); !errors.Is(err, responder.ErrMalformedInfo) {
		t.Fatalf("expected ErrMalformedInfo, got %v", err)
	}
}

func TestInjectedRandomSource(t *testing.T) {
	e := New(scenarioKB(), Config{Threshold: memory.DefaultThreshold, Random: func(n int) int { return n - 1 }})
	ans, err := e.Answer("sore throat")
	if err != nil {
		t.Fatal(err)
	}
	if ans.Disease != "common cold" {
		t.Errorf("disease = %q, want common cold", ans.Disease)
	}
}

func TestConcurrentAnswers(t *testing.T) {
	e := newEngine(t, scenarioKB())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				ans, err := e.Answer("sore throat")
				if err != nil || !ans.Match.Matched {
					t.Errorf("concurrent answer failed: %+v %v", ans, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
