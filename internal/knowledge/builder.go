// Package knowledge loads the symptom and disease catalog from a file, the
// embedded default data set, or PostgreSQL.
package knowledge

import (
	"errors"
	"fmt"
	"strings"

	"symptombot/internal/domain"
)

// ErrBlankSymptom is returned when a symptom label is empty after trimming.
var ErrBlankSymptom = errors.New("blank symptom label")

// Builder accumulates catalog entries and produces an immutable KnowledgeBase.
// Symptom labels are lower-cased; a label seen twice keeps its first position
// and collects the diseases of both entries.
type Builder struct {
	order    []domain.Symptom
	diseases map[domain.Symptom][]domain.Disease
	info     map[domain.Disease]domain.Remedies
	merged   int
}

func NewBuilder() *Builder {
	return &Builder{
		diseases: make(map[domain.Symptom][]domain.Disease),
		info:     make(map[domain.Disease]domain.Remedies),
	}
}

// AddSymptom appends label to the vocabulary with its candidate diseases.
func (b *Builder) AddSymptom(label string, diseases ...string) error {
	s := domain.Symptom(strings.ToLower(strings.TrimSpace(label)))
	if s == "" {
		return ErrBlankSymptom
	}
	existing, seen := b.diseases[s]
	if seen {
		b.merged++
	} else {
		b.order = append(b.order, s)
		existing = []domain.Disease{}
	}
	for _, d := range diseases {
		d = strings.TrimSpace(d)
		if d == "" {
			return fmt.Errorf("symptom %q: blank disease name", s)
		}
		existing = append(existing, domain.Disease(d))
	}
	b.diseases[s] = existing
	return nil
}

// SetRemedies records remedy info for disease, replacing earlier info.
func (b *Builder) SetRemedies(disease string, r domain.Remedies) {
	b.info[domain.Disease(strings.TrimSpace(disease))] = domain.Remedies{
		GenericMedicines: append([]string(nil), r.GenericMedicines...),
		HomeRemedies:     append([]string(nil), r.HomeRemedies...),
	}
}

// Merged reports how many duplicate symptom labels were folded together.
func (b *Builder) Merged() int { return b.merged }

// Build returns the knowledge base. The builder must not be used afterwards.
func (b *Builder) Build() *domain.KnowledgeBase {
	return &domain.KnowledgeBase{
		Symptoms: b.order,
		Diseases: b.diseases,
		Info:     b.info,
	}
}
