package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"symptombot/internal/bot"
	"symptombot/internal/domain"
	"symptombot/internal/logger"
	"symptombot/internal/metrics"
)

// API is the subset of the Bot API used by the poller.
type API interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Poller receives updates and answers each text message in order.
type Poller struct {
	api        API
	conv       domain.Conversation
	timeout    time.Duration
	minBackoff time.Duration
	maxBackoff time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewPoller(api API, conv domain.Conversation, pollTimeout time.Duration, m *metrics.Metrics) *Poller {
	return &Poller{
		api:        api,
		conv:       conv,
		timeout:    pollTimeout,
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
		metrics:    m,
		logger:     logger.WithComponent("telegram"),
	}
}

// Run polls until ctx is cancelled. Failed polls are retried with
// exponential backoff; Run only returns nil.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("telegram polling started", "poll_timeout", p.timeout)
	var offset int64
	backoff := p.minBackoff
	for {
		if ctx.Err() != nil {
			p.logger.Info("telegram polling stopped")
			return nil
		}
		updates, err := p.api.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			if p.metrics != nil {
				p.metrics.TelegramPollErrors.Inc()
			}
			p.logger.Warn("getUpdates failed", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, p.maxBackoff)
			continue
		}
		backoff = p.minBackoff
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			p.handleUpdate(ctx, u)
		}
	}
}

func (p *Poller) handleUpdate(ctx context.Context, u Update) {
	if u.Message == nil || u.Message.Text == "" {
		return
	}
	ctx = logger.WithRequestID(ctx, fmt.Sprintf("tg-%d", u.UpdateID))
	cmd, text := bot.ParseCommand(u.Message.Text)
	msg := domain.Message{
		Source:  "telegram",
		ChatID:  strconv.FormatInt(u.Message.Chat.ID, 10),
		Command: cmd,
		Text:    text,
	}
	reply := bot.Respond(ctx, p.conv, msg)
	if err := p.api.SendMessage(ctx, u.Message.Chat.ID, reply); err != nil {
		logger.FromContext(ctx).Error("sendMessage failed", "chat_id", msg.ChatID, "error", err)
	}
}
