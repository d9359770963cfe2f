package responder

import (
	"errors"
	"testing"

	"symptombot/internal/domain"
)

var kb = &domain.KnowledgeBase{
	Info: map[domain.Disease]domain.Remedies{
		"flu":      {GenericMedicines: []string{"paracetamol", "ibuprofen"}, HomeRemedies: []string{"rest"}},
		"cold":     {HomeRemedies: []string{"warm fluids"}},
		"broken":   {GenericMedicines: []string{"aspirin", "  "}},
		"no-lists": {},
	},
}

func TestCompose(t *testing.T) {
	matched := func(s domain.Symptom) domain.MatchResult {
		return domain.MatchResult{Matched: true, Symptom: s, Score: 1}
	}
	tests := []struct {
		name    string
		res     domain.MatchResult
		disease domain.Disease
		want    string
	}{
		{
			name: "no match",
			res:  domain.MatchResult{Score: 0.4},
			want: Fallback,
		},
		{
			name:    "full info",
			res:     matched("fever"),
			disease: "flu",
			want: "Based on the symptom 'fever', a possible disease is 'flu'.\n" +
				"Generic Medicine(s): paracetamol, ibuprofen\n" +
				"Home Remedy: rest",
		},
		{
			name:    "empty medicines",
			res:     matched("runny nose"),
			disease: "cold",
			want: "Based on the symptom 'runny nose', a possible disease is 'cold'.\n" +
				"Generic Medicine(s): No information\n" +
				"Home Remedy: warm fluids",
		},
		{
			name:    "disease without info",
			res:     matched("rash"),
			disease: "measles",
			want: "Based on the symptom 'rash', a possible disease is 'measles'.\n" +
				"Generic Medicine(s): No information\n" +
				"Home Remedy: No information",
		},
		{
			name:    "unknown disease",
			res:     matched("cough"),
			disease: domain.Unknown,
			want: "Based on the symptom 'cough', a possible disease is 'Unknown'.\n" +
				"Generic Medicine(s): No information\n" +
				"Home Remedy: No information",
		},
		{
			name: "empty disease treated as unknown",
			res:  matched("cough"),
			want: "Based on the symptom 'cough', a possible disease is 'Unknown'.\n" +
				"Generic Medicine(s): No information\n" +
				"Home Remedy: No information",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Compose(tc.res, tc.disease, kb)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tc.want)
			}
		})
	}
}

func TestComposeUnknownIgnoresInfoKey(t *testing.T) {
	info := &domain.KnowledgeBase{Info: map[domain.Disease]domain.Remedies{
		domain.Unknown: {GenericMedicines: []string{"should not appear"}},
	}}
	got, err := Compose(domain.MatchResult{Matched: true, Symptom: "cough"}, domain.Unknown, info)
	if err != nil {
		t.Fatal(err)
	}
	want := "Based on the symptom 'cough', a possible disease is 'Unknown'.\n" +
		"Generic Medicine(s): No information\n" +
		"Home Remedy: No information"
	if got != want {
		t.Errorf("got %q", got)
	}
}

func TestComposeMalformed(t *testing.T) {
	_, err := Compose(domain.MatchResult{Matched: true, Symptom: "pain"}, "broken", kb)
	if !errors.Is(err, ErrMalformedInfo) {
		t.Fatalf("expected ErrMalformedInfo, got %v", err)
	}
}
