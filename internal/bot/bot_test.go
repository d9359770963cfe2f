package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"symptombot/internal/analytics"
	"symptombot/internal/domain"
	"symptombot/internal/metrics"
	"symptombot/internal/responder"
	"symptombot/internal/service"
	"symptombot/internal/vectorstore/memory"
)

func testEngine() *service.Engine {
	return service.New(&domain.KnowledgeBase{
		Symptoms: []domain.Symptom{"fever", "cough"},
		Diseases: map[domain.Symptom][]domain.Disease{"fever": {"flu"}, "cough": {}},
		Info: map[domain.Disease]domain.Remedies{
			"flu": {GenericMedicines: []string{"paracetamol"}, HomeRemedies: []string{"rest"}},
		},
	}, service.Config{Threshold: memory.DefaultThreshold})
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allow, f.err
}

type recordingTracker struct {
	mu     sync.Mutex
	events []analytics.QueryEvent
}

func (r *recordingTracker) Track(ev analytics.QueryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

type errAnswerer struct{}

func (errAnswerer) Answer(string) (service.Answer, error) {
	return service.Answer{}, responder.ErrMalformedInfo
}

type panicConversation struct{}

func (panicConversation) Handle(context.Context, domain.Message) (string, error) {
	panic("boom")
}

func TestHandleCommands(t *testing.T) {
	h := NewHandler(testEngine())
	ctx := context.Background()
	cases := []struct {
		name string
		msg  domain.Message
		want string
	}{
		{"start", domain.Message{Command: domain.CommandStart}, Greeting},
		{"exit", domain.Message{Command: domain.CommandExit}, Goodbye},
		{"literal exit text", domain.Message{Text: " /exit "}, Goodbye},
		{"unknown command", domain.Message{Command: "help"}, responder.Fallback},
		{"unrelated text", domain.Message{Text: "purple elephant"}, responder.Fallback},
		{"empty text", domain.Message{Text: ""}, responder.Fallback},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := h.Handle(ctx, tc.msg)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHandleFreeText(t *testing.T) {
	tracker := &recordingTracker{}
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg, reg)
	h := NewHandler(testEngine(), WithTracker(tracker), WithMetrics(m))

	got, err := h.Handle(context.Background(), domain.Message{Source: "http", ChatID: "9", Text: "Fever"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "'flu'") || !strings.Contains(got, "paracetamol") {
		t.Errorf("reply = %q", got)
	}
	if len(tracker.events) != 1 {
		t.Fatalf("events = %d, want 1", len(tracker.events))
	}
	ev := tracker.events[0]
	if ev.Outcome != metrics.OutcomeMatched || ev.Symptom != "fever" || ev.Disease != "flu" || ev.Transport != "http" {
		t.Errorf("event = %+v", ev)
	}
	if n := testutil.ToFloat64(m.QueriesTotal.WithLabelValues(metrics.OutcomeMatched)); n != 1 {
		t.Errorf("matched counter = %v", n)
	}
}

func TestHandleRateLimited(t *testing.T) {
	lim := &fakeLimiter{allow: false}
	h := NewHandler(testEngine(), WithLimiter(lim))
	got, err := h.Handle(context.Background(), domain.Message{Source: "telegram", ChatID: "5", Text: "fever"})
	if err != nil {
		t.Fatal(err)
	}
	if got != RateLimited {
		t.Errorf("got %q", got)
	}
	if len(lim.keys) != 1 || lim.keys[0] != "telegram:5" {
		t.Errorf("limiter keys = %v", lim.keys)
	}

	if _, err := h.Handle(context.Background(), domain.Message{Command: domain.CommandStart}); err != nil {
		t.Fatal(err)
	}
	if len(lim.keys) != 1 {
		t.Error("commands should not consume rate limit")
	}
}

func TestHandleLimiterErrorFailsOpen(t *testing.T) {
	h := NewHandler(testEngine(), WithLimiter(&fakeLimiter{err: errors.New("redis down")}))
	got, err := h.Handle(context.Background(), domain.Message{Text: "fever"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "'fever'") {
		t.Errorf("got %q", got)
	}
}

func TestRespondConvertsErrorsAndPanics(t *testing.T) {
	ctx := context.Background()
	tracker := &recordingTracker{}
	h := NewHandler(errAnswerer{}, WithTracker(tracker))

	if _, err := h.Handle(ctx, domain.Message{Text: "fever"}); !errors.Is(err, responder.ErrMalformedInfo) {
		t.Fatalf("Handle error = %v", err)
	}
	if got := Respond(ctx, h, domain.Message{Text: "fever"}); got != Apology {
		t.Errorf("error reply = %q", got)
	}
	if got := Respond(ctx, panicConversation{}, domain.Message{Text: "fever"}); got != Apology {
		t.Errorf("panic reply = %q", got)
	}
	if got := Respond(ctx, h, domain.Message{Command: domain.CommandStart}); got != Greeting {
		t.Errorf("start reply = %q", got)
	}
	if len(tracker.events) != 2 || tracker.events[0].Outcome != metrics.OutcomeError {
		t.Errorf("events = %+v", tracker.events)
	}
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in       string
		wantCmd  domain.Command
		wantText string
	}{
		{"/start", domain.CommandStart, ""},
		{"/start@SymptomBot", domain.CommandStart, ""},
		{"/EXIT now", domain.CommandExit, "now"},
		{"/help me", "help", "me"},
		{"fever", domain.CommandNone, "fever"},
		{"/", domain.CommandNone, "/"},
		{"  /start  ", domain.CommandStart, ""},
	}
	for _, tc := range cases {
		cmd, text := ParseCommand(tc.in)
		if cmd != tc.wantCmd || text != tc.wantText {
			t.Errorf("ParseCommand(%q) = (%q, %q), want (%q, %q)", tc.in, cmd, text, tc.wantCmd, tc.wantText)
		}
	}
}
