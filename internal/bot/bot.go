// Package bot routes conversation messages: commands get fixed replies and
// free text goes through the matching engine.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"symptombot/internal/analytics"
	"symptombot/internal/domain"
	"symptombot/internal/logger"
	"symptombot/internal/metrics"
	"symptombot/internal/ratelimit"
	"symptombot/internal/responder"
	"symptombot/internal/service"
)

const (
	Greeting    = "Hello! I'm your Healthcare Chatbot. How can I help you today?"
	Goodbye     = "Goodbye! Take care."
	Apology     = "Sorry, I encountered an error. Please try again."
	RateLimited = "You're sending messages too quickly. Please wait a moment."
)

// Answerer is the engine operation the handler depends on.
type Answerer interface {
	Answer(text string) (service.Answer, error)
}

// Tracker receives one event per handled free-text message.
type Tracker interface {
	Track(event analytics.QueryEvent)
}

type Option func(*Handler)

func WithLimiter(l ratelimit.Limiter) Option { return func(h *Handler) { h.limiter = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(h *Handler) { h.metrics = m } }

func WithTracker(t Tracker) Option { return func(h *Handler) { h.tracker = t } }

// Handler implements domain.Conversation.
type Handler struct {
	engine  Answerer
	limiter ratelimit.Limiter
	metrics *metrics.Metrics
	tracker Tracker
	logger  *slog.Logger
}

func NewHandler(engine Answerer, opts ...Option) *Handler {
	h := &Handler{
		engine: engine,
		logger: logger.WithComponent("bot"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle returns the reply for msg. Errors come only from rendering a
// matched disease whose remedy info is malformed.
func (h *Handler) Handle(ctx context.Context, msg domain.Message) (string, error) {
	if msg.Command == domain.CommandNone && strings.TrimSpace(msg.Text) == "/exit" {
		msg.Command = domain.CommandExit
	}
	switch msg.Command {
	case domain.CommandStart:
		h.metrics.ObserveQuery(metrics.OutcomeCommand, 0)
		return Greeting, nil
	case domain.CommandExit:
		h.metrics.ObserveQuery(metrics.OutcomeCommand, 0)
		return Goodbye, nil
	case domain.CommandNone:
	default:
		h.metrics.ObserveQuery(metrics.OutcomeCommand, 0)
		return responder.Fallback, nil
	}

	if h.limiter != nil {
		ok, err := h.limiter.Allow(ctx, msg.Source+":"+msg.ChatID)
		if err != nil {
			logger.FromContext(ctx).Warn("rate limiter unavailable, allowing message", "error", err)
		} else if !ok {
			h.metrics.ObserveQuery(metrics.OutcomeRateLimited, 0)
			h.track(msg, metrics.OutcomeRateLimited, service.Answer{})
			return RateLimited, nil
		}
	}

	ans, err := h.engine.Answer(msg.Text)
	if err != nil {
		h.metrics.ObserveQuery(metrics.OutcomeError, 0)
		h.track(msg, metrics.OutcomeError, ans)
		return "", err
	}
	outcome := metrics.OutcomeNoMatch
	if ans.Match.Matched {
		outcome = metrics.OutcomeMatched
	}
	h.metrics.ObserveQuery(outcome, ans.Match.Score)
	h.track(msg, outcome, ans)
	return ans.Text, nil
}

func (h *Handler) track(msg domain.Message, outcome string, ans service.Answer) {
	if h.tracker == nil {
		return
	}
	ev := analytics.NewQueryEvent(msg.ChatID, msg.Source, outcome)
	ev.Symptom = string(ans.Match.Symptom)
	ev.Disease = string(ans.Disease)
	ev.Score = ans.Match.Score
	h.tracker.Track(ev)
}

// Respond runs conv and converts errors and panics into the apology reply,
// logging the cause. Transports call this instead of Handle directly.
func Respond(ctx context.Context, conv domain.Conversation, msg domain.Message) (reply string) {
	log := logger.FromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while handling message",
				"panic", fmt.Sprint(r),
				"chat_id", msg.ChatID,
				"stack", string(debug.Stack()),
			)
			reply = Apology
		}
	}()
	reply, err := conv.Handle(ctx, msg)
	if err != nil {
		log.Error("handling message failed", "chat_id", msg.ChatID, "error", err)
		return Apology
	}
	return reply
}

// ParseCommand splits a leading slash command from text. "/start@MyBot hi"
// yields ("start", "hi"); text without a leading slash yields CommandNone.
func ParseCommand(text string) (domain.Command, string) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return domain.CommandNone, text
	}
	name, rest, _ := strings.Cut(trimmed[1:], " ")
	name, _, _ = strings.Cut(name, "@")
	if name == "" {
		return domain.CommandNone, text
	}
	return domain.Command(strings.ToLower(name)), strings.TrimSpace(rest)
}
