// Package catalog picks a candidate disease for a matched symptom.
package catalog

import (
	"math/rand/v2"

	"symptombot/internal/domain"
)

// Lookup resolves a symptom to its candidate diseases.
type Lookup interface {
	DiseasesFor(s domain.Symptom) ([]domain.Disease, bool)
}

// Selector draws one disease uniformly at random from a symptom's candidates.
// The default source is the goroutine-safe math/rand/v2 generator.
type Selector struct {
	catalog Lookup
	intN    func(n int) int
}

// Option configures a Selector.
type Option func(*Selector)

// WithSource replaces the random source. intN must return a value in [0, n)
// and be safe for concurrent use if the Selector is shared.
func WithSource(intN func(n int) int) Option {
	return func(s *Selector) { s.intN = intN }
}

// NewSelector returns a Selector over catalog.
func NewSelector(catalog Lookup, opts ...Option) *Selector {
	s := &Selector{catalog: catalog, intN: rand.IntN}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns a random candidate for symptom, or domain.Unknown when the
// symptom is absent from the catalog or has no candidates.
func (s *Selector) Select(symptom domain.Symptom) domain.Disease {
	if s.catalog == nil {
		return domain.Unknown
	}
	candidates, ok := s.catalog.DiseasesFor(symptom)
	if !ok || len(candidates) == 0 {
		return domain.Unknown
	}
	return candidates[s.intN(len(candidates))]
}
