package domain

import "context"

// Symptom is a lower-cased symptom label from the knowledge base.
type Symptom string

// Disease identifies a candidate disease for a symptom.
type Disease string

// Unknown is the disease reported when a matched symptom has no candidates.
const Unknown Disease = "Unknown"

// Remedies holds remedy information for a disease. Either list may be empty.
type Remedies struct {
	GenericMedicines []string `json:"generic_medicine" yaml:"generic_medicine"`
	HomeRemedies     []string `json:"home_remedy" yaml:"home_remedy"`
}

// KnowledgeBase is the immutable symptom and disease catalog the engine is built from.
// Symptoms holds the vocabulary in its fixed order; every entry is unique.
type KnowledgeBase struct {
	Symptoms []Symptom
	Diseases map[Symptom][]Disease
	Info     map[Disease]Remedies
}

// DiseasesFor returns the candidate diseases for a symptom. The boolean is false
// when the symptom has no catalog entry; callers treat that like an empty list.
func (kb *KnowledgeBase) DiseasesFor(s Symptom) ([]Disease, bool) {
	if kb == nil {
		return nil, false
	}
	d, ok := kb.Diseases[s]
	return d, ok
}

// RemediesFor returns remedy info for a disease. Absent diseases yield a zero
// Remedies and false.
func (kb *KnowledgeBase) RemediesFor(d Disease) (Remedies, bool) {
	if kb == nil {
		return Remedies{}, false
	}
	r, ok := kb.Info[d]
	return r, ok
}

// MatchResult is the outcome of scoring a query against the vocabulary.
// Score is the best similarity seen; Symptom is only set when Matched.
type MatchResult struct {
	Matched bool
	Symptom Symptom
	Score   float64
}

// ScoredSymptom is a vocabulary entry with its similarity to a query.
type ScoredSymptom struct {
	Symptom Symptom `json:"symptom"`
	Score   float64 `json:"score"`
}

// Command is a conversation command recognised by the bot.
type Command string

const (
	CommandNone  Command = ""
	CommandStart Command = "start"
	CommandExit  Command = "exit"
)

// Message is one inbound user message as delivered by a transport.
// Source names the transport ("telegram", "http", "console").
type Message struct {
	Source  string
	ChatID  string
	Command Command
	Text    string
}

// KnowledgeLoader supplies the knowledge base at startup.
type KnowledgeLoader interface {
	Load(ctx context.Context) (*KnowledgeBase, error)
}

// Conversation turns an inbound message into reply text.
type Conversation interface {
	Handle(ctx context.Context, msg Message) (string, error)
}
