package memory

import (
	"errors"
	"math"
	"sort"

	"symptombot/internal/domain"
)

// DefaultThreshold is the similarity a match must exceed to be answered.
const DefaultThreshold = 0.9

// Matrix is an immutable symptom-vector matrix searched by brute-force cosine
// similarity. Row i holds the vector of symptoms[i]. Concurrent reads need no locking.
type Matrix struct {
	symptoms []domain.Symptom
	vectors  []domain.Vector
}

// NewMatrix copies symptoms and vectors into a new matrix.
func NewMatrix(symptoms []domain.Symptom, vectors []domain.Vector) (*Matrix, error) {
	if len(symptoms) != len(vectors) {
		return nil, errors.New("symptoms and vectors length mismatch")
	}
	m := &Matrix{
		symptoms: make([]domain.Symptom, len(symptoms)),
		vectors:  make([]domain.Vector, len(vectors)),
	}
	copy(m.symptoms, symptoms)
	copy(m.vectors, vectors)
	return m, nil
}

// Len returns the number of rows.
func (m *Matrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.vectors)
}

// Match scores query against every row and applies threshold. The best row
// wins with ties going to the lowest index; it is reported as matched only
// when its score is strictly greater than threshold. An empty matrix never matches.
func (m *Matrix) Match(query domain.Vector, threshold float64) domain.MatchResult {
	if m.Len() == 0 {
		return domain.MatchResult{}
	}
	best, bestScore := -1, 0.0
	for i := range m.vectors {
		score := Cosine(query, m.vectors[i])
		if best < 0 || score > bestScore {
			best, bestScore = i, score
		}
	}
	if bestScore > threshold {
		return domain.MatchResult{Matched: true, Symptom: m.symptoms[best], Score: bestScore}
	}
	return domain.MatchResult{Score: bestScore}
}

// Search returns up to topK rows ordered by descending similarity, ties in
// row order.
func (m *Matrix) Search(query domain.Vector, topK int) []domain.ScoredSymptom {
	if m.Len() == 0 {
		return nil
	}
	if topK <= 0 {
		topK = 5
	}
	scores := make([]float64, len(m.vectors))
	for i := range m.vectors {
		scores[i] = Cosine(query, m.vectors[i])
	}
	idxs := argsortDesc(scores)
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.ScoredSymptom, 0, topK)
	for _, j := range idxs[:topK] {
		results = append(results, domain.ScoredSymptom{Symptom: m.symptoms[j], Score: scores[j]})
	}
	return results
}

// Cosine returns dot(a,b)/(|a||b|), or 0 when either vector has zero
// magnitude. The result is clamped to [-1, 1].
func Cosine(a, b domain.Vector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	s := a.Dot(b) / (na * nb)
	return math.Max(-1, math.Min(1, s))
}

func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(i, j int) bool { return vals[idxs[i]] > vals[idxs[j]] })
	return idxs
}
