package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []QueryEvent
	closed bool
	block  chan struct{}
}

func (f *fakePublisher) Publish(_ context.Context, _ string, value any) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, value.(QueryEvent))
	return nil
}

func (f *fakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestNewQueryEvent(t *testing.T) {
	ev := NewQueryEvent("42", "telegram", "matched")
	if _, err := uuid.Parse(ev.ID); err != nil {
		t.Errorf("event id %q is not a uuid: %v", ev.ID, err)
	}
	if ev.Timestamp.IsZero() || ev.ChatID != "42" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestCollectorFlushesOnClose(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 10, nil)
	c.Start(context.Background())
	for i := 0; i < 5; i++ {
		c.Track(NewQueryEvent("1", "http", "no_match"))
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if len(pub.events) != 5 || !pub.closed {
		t.Errorf("published %d events, closed=%v", len(pub.events), pub.closed)
	}
	c.Track(NewQueryEvent("1", "http", "no_match"))
	if err := c.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestCollectorDropsWhenFull(t *testing.T) {
	pub := &fakePublisher{}
	dropped := 0
	c := NewCollector(pub, 2, func() { dropped++ })
	for i := 0; i < 3; i++ {
		c.Track(NewQueryEvent("1", "http", "matched"))
	}
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCollectorDrainsOnCancel(t *testing.T) {
	pub := &fakePublisher{block: make(chan struct{})}
	c := NewCollector(pub, 10, nil)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	for i := 0; i < 3; i++ {
		c.Track(NewQueryEvent("1", "http", "matched"))
	}
	cancel()
	close(pub.block)
	<-c.done
	pub.mu.Lock()
	n := len(pub.events)
	pub.mu.Unlock()
	if n != 3 {
		t.Errorf("published %d events, want 3", n)
	}
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, "queries")
	ev := NewQueryEvent("7", "telegram", "matched")
	ev.Symptom = "fever"
	if err := p.Publish(context.Background(), ev.ChatID, ev); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "7" {
		t.Fatalf("messages = %+v", w.msgs)
	}
	var got QueryEvent
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil {
		t.Fatal(err)
	}
	if got.Symptom != "fever" || got.ID != ev.ID {
		t.Errorf("decoded %+v", got)
	}

	w.err = errors.New("broker down")
	if err := p.Publish(context.Background(), "7", ev); err == nil {
		t.Error("expected publish error")
	}
	if err := p.Publish(context.Background(), "7", make(chan int)); err == nil {
		t.Error("expected marshal error")
	}
}
