// Package analytics publishes one event per answered conversation message.
// Events carry the match outcome but never the user's message text.
package analytics

import (
	"time"

	"github.com/google/uuid"
)

// QueryEvent describes how one message was handled.
type QueryEvent struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Transport string    `json:"transport"`
	Outcome   string    `json:"outcome"`
	Symptom   string    `json:"symptom,omitempty"`
	Disease   string    `json:"disease,omitempty"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// NewQueryEvent stamps a fresh event ID and the current time.
func NewQueryEvent(chatID, transport, outcome string) QueryEvent {
	return QueryEvent{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Transport: transport,
		Outcome:   outcome,
		Timestamp: time.Now().UTC(),
	}
}
