// Package service assembles the symptom matching engine: vocabulary index,
// query vectorizer, similarity matcher, disease selector and response composer.
package service

import (
	"fmt"
	"log/slog"

	"symptombot/internal/catalog"
	"symptombot/internal/domain"
	"symptombot/internal/embedding/tfidf"
	"symptombot/internal/logger"
	"symptombot/internal/responder"
	"symptombot/internal/vectorstore/memory"
)

// Config holds engine settings.
type Config struct {
	Threshold float64
	Stopwords map[string]struct{}
	// Random overrides the disease selector's source; nil uses math/rand/v2.
	Random func(n int) int
}

// Answer is the engine's reply to one query.
type Answer struct {
	Text    string
	Match   domain.MatchResult
	Disease domain.Disease
}

// Engine answers free-text symptom queries. It is immutable after New and
// safe for concurrent use.
type Engine struct {
	kb        *domain.KnowledgeBase
	index     *tfidf.Index
	matrix    *memory.Matrix
	selector  *catalog.Selector
	threshold float64
	buildErr  error
	logger    *slog.Logger
}

// New builds the engine from kb. When the vocabulary cannot be indexed the
// engine still works but never matches; Err reports the cause.
func New(kb *domain.KnowledgeBase, cfg Config) *Engine {
	if kb == nil {
		kb = &domain.KnowledgeBase{}
	}
	e := &Engine{
		kb:        kb,
		threshold: cfg.Threshold,
		logger:    logger.WithComponent("engine"),
	}
	var opts []catalog.Option
	if cfg.Random != nil {
		opts = append(opts, catalog.WithSource(cfg.Random))
	}
	e.selector = catalog.NewSelector(kb, opts...)

	docs := make([]string, len(kb.Symptoms))
	for i, s := range kb.Symptoms {
		docs[i] = string(s)
	}
	index, err := tfidf.Build(docs, tfidf.Options{Stopwords: cfg.Stopwords})
	if err != nil {
		e.buildErr = fmt.Errorf("building vocabulary index: %w", err)
		e.logger.Warn("engine degraded, every query will get the fallback reply", "error", err)
		return e
	}
	matrix, err := memory.NewMatrix(kb.Symptoms, index.Vectors())
	if err != nil {
		e.buildErr = fmt.Errorf("building symptom matrix: %w", err)
		e.logger.Warn("engine degraded, every query will get the fallback reply", "error", err)
		return e
	}
	e.index = index
	e.matrix = matrix
	e.logger.Info("engine ready",
		"symptoms", index.Len(),
		"terms", index.Dimension(),
		"threshold", e.threshold,
	)
	return e
}

// Err returns the index build error, or nil when the engine can match.
func (e *Engine) Err() error { return e.buildErr }

// Threshold returns the configured match threshold.
func (e *Engine) Threshold() float64 { return e.threshold }

// Vocabulary returns the number of indexed symptoms.
func (e *Engine) Vocabulary() int { return e.matrix.Len() }

// Match scores text against the vocabulary.
func (e *Engine) Match(text string) domain.MatchResult {
	if e.index == nil {
		return domain.MatchResult{}
	}
	return e.matrix.Match(e.index.Vectorize(text), e.threshold)
}

// Candidates returns the topK closest symptoms to text regardless of threshold.
func (e *Engine) Candidates(text string, topK int) []domain.ScoredSymptom {
	if e.index == nil {
		return nil
	}
	return e.matrix.Search(e.index.Vectorize(text), topK)
}

// Answer matches text, picks a disease for the matched symptom and renders
// the reply. Errors come only from rendering malformed remedy info.
func (e *Engine) Answer(text string) (Answer, error) {
	res := e.Match(text)
	ans := Answer{Match: res}
	if res.Matched {
		ans.Disease = e.selector.Select(res.Symptom)
	}
	reply, err := responder.Compose(res, ans.Disease, e.kb)
	if err != nil {
		return ans, fmt.Errorf("composing reply for %q: %w", res.Symptom, err)
	}
	ans.Text = reply
	e.logger.Debug("query answered",
		"matched", res.Matched,
		"symptom", res.Symptom,
		"score", res.Score,
		"disease", ans.Disease,
	)
	return ans, nil
}
