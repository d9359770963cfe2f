package analytics

import (
	"context"
	"log/slog"
	"sync"
)

// Collector buffers events and publishes them from a single goroutine so
// that message handling never waits on the broker.
type Collector struct {
	publisher Publisher
	eventCh   chan QueryEvent
	onDrop    func()
	logger    *slog.Logger
	done      chan struct{}

	mu      sync.RWMutex
	closed  bool
	started bool
}

// NewCollector creates a collector with the given buffer. onDrop, if set,
// is called whenever an event is discarded because the buffer is full.
func NewCollector(publisher Publisher, bufferSize int, onDrop func()) *Collector {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan QueryEvent, bufferSize),
		onDrop:    onDrop,
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

// Start launches the publishing loop. It stops when ctx is cancelled or
// Close is called, flushing buffered events first.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues event without blocking.
func (c *Collector) Track(event QueryEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
		if c.onDrop != nil {
			c.onDrop()
		}
	}
}

// Close stops accepting events, waits for the loop to flush, and closes
// the publisher.
func (c *Collector) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.eventCh)
	started := c.started
	c.mu.Unlock()
	if started {
		<-c.done
	}
	return c.publisher.Close()
}

func (c *Collector) publish(ctx context.Context, event QueryEvent) {
	if err := c.publisher.Publish(ctx, event.ChatID, event); err != nil {
		c.logger.Error("failed to publish analytics event", "event_id", event.ID, "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}
