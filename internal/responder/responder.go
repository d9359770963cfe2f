package responder

import (
	"errors"
	"fmt"
	"strings"

	"symptombot/internal/domain"
)

const (
	// Fallback is returned when no symptom matched confidently.
	Fallback = "I'm not sure how to respond to that."
	// NoInformation replaces an empty remedy list.
	NoInformation = "No information"
)

// ErrMalformedInfo is returned when remedy info holds blank entries.
var ErrMalformedInfo = errors.New("malformed disease info")

// InfoSource resolves remedy info for a disease.
type InfoSource interface {
	RemediesFor(d domain.Disease) (domain.Remedies, bool)
}

// Compose renders the reply for a match result. Unmatched results yield
// Fallback. A matched symptom with domain.Unknown disease renders "Unknown"
// with no remedy information.
func Compose(res domain.MatchResult, disease domain.Disease, info InfoSource) (string, error) {
	if !res.Matched {
		return Fallback, nil
	}
	if disease == "" {
		disease = domain.Unknown
	}
	var remedies domain.Remedies
	if disease != domain.Unknown && info != nil {
		remedies, _ = info.RemediesFor(disease)
	}
	medicines, err := joinList(remedies.GenericMedicines)
	if err != nil {
		return "", fmt.Errorf("generic medicines for %q: %w", disease, err)
	}
	home, err := joinList(remedies.HomeRemedies)
	if err != nil {
		return "", fmt.Errorf("home remedies for %q: %w", disease, err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the symptom '%s', a possible disease is '%s'.\n", res.Symptom, disease)
	fmt.Fprintf(&b, "Generic Medicine(s): %s\n", medicines)
	fmt.Fprintf(&b, "Home Remedy: %s", home)
	return b.String(), nil
}

func joinList(items []string) (string, error) {
	if len(items) == 0 {
		return NoInformation, nil
	}
	for i, it := range items {
		if strings.TrimSpace(it) == "" {
			return "", fmt.Errorf("%w: entry %d is blank", ErrMalformedInfo, i)
		}
	}
	return strings.Join(items, ", "), nil
}
