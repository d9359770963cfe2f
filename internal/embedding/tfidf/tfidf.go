package tfidf

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"symptombot/internal/domain"
)

// ErrEmptyVocabulary is returned by Build when there is nothing to index.
var ErrEmptyVocabulary = errors.New("empty vocabulary")

// Words of two or more letters, digits or underscores.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Options tune index construction.
type Options struct {
	// Stopwords are dropped from documents and queries. Nil keeps every token.
	Stopwords map[string]struct{}
}

// Index is an immutable TF-IDF term space with one weighted vector per document.
// It is safe for concurrent use once built.
type Index struct {
	terms     map[string]int
	idf       []float64
	vectors   []domain.Vector
	stopwords map[string]struct{}
}

// Build computes the term space and document vectors for docs. Each document
// is one entry of the vocabulary; docs is not modified.
func Build(docs []string, opts Options) (*Index, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyVocabulary
	}
	ix := &Index{stopwords: opts.Stopwords}
	// Document frequencies
	df := make(map[string]int)
	for _, text := range docs {
		seen := make(map[string]struct{})
		for _, tok := range ix.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return nil, fmt.Errorf("%w: no tokens in %d documents", ErrEmptyVocabulary, len(docs))
	}
	// Stable ordering for the term space
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	ix.terms = make(map[string]int, len(terms))
	ix.idf = make([]float64, len(terms))
	n := float64(len(docs))
	for i, term := range terms {
		ix.terms[term] = i
		// Smoothed IDF
		ix.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	ix.vectors = make([]domain.Vector, len(docs))
	for i, text := range docs {
		ix.vectors[i] = ix.Vectorize(text)
	}
	return ix, nil
}

// Dimension returns the size of the term space.
func (ix *Index) Dimension() int { return len(ix.idf) }

// Len returns the number of indexed documents.
func (ix *Index) Len() int { return len(ix.vectors) }

// Vectors returns the document vectors in vocabulary order.
func (ix *Index) Vectors() []domain.Vector {
	out := make([]domain.Vector, len(ix.vectors))
	copy(out, ix.vectors)
	return out
}

// Terms returns the term space in index order.
func (ix *Index) Terms() []string {
	out := make([]string, len(ix.idf))
	for term, i := range ix.terms {
		out[i] = term
	}
	return out
}

// IDF returns the inverse document frequency of term, or false when the term
// is outside the term space.
func (ix *Index) IDF(term string) (float64, bool) {
	i, ok := ix.terms[term]
	if !ok {
		return 0, false
	}
	return ix.idf[i], true
}

// Vectorize projects text into the term space. Unknown terms are ignored, so
// text sharing nothing with the vocabulary yields the zero vector.
func (ix *Index) Vectorize(text string) domain.Vector {
	tf := make(map[int]int)
	total := 0
	for _, tok := range ix.tokenize(text) {
		if idx, ok := ix.terms[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return domain.Vector{}
	}
	indices := make([]int, 0, len(tf))
	for idx := range tf {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	weights := make([]float64, len(indices))
	norm := 0.0
	for i, idx := range indices {
		w := float64(tf[idx]) / float64(total) * ix.idf[idx]
		weights[i] = w
		norm += w * w
	}
	// L2 normalize
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range weights {
			weights[i] /= norm
		}
	}
	return domain.Vector{Indices: indices, Weights: weights}
}

// Tokenize splits text with the rule used to build the term space.
func (ix *Index) Tokenize(text string) []string { return ix.tokenize(text) }

func (ix *Index) tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := tokenPattern.FindAllString(lower, -1)
	if len(raw) == 0 {
		return nil
	}
	if len(ix.stopwords) == 0 {
		return raw
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := ix.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// EnglishStopwords returns a small English stopword list.
func EnglishStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"i", "my", "me", "have", "has", "had", "am",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
