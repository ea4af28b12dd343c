// Package notify renders price-change alerts and delivers them over the
// configured channels without blocking the tracking loop.
package notify

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/vburojevic/pricewatch/internal/domain"
	"go.uber.org/zap"
)

// Message is a rendered alert, ready for any channel.
type Message struct {
	Alert     domain.Alert
	Recipient string
	Subject   string
	HTML      string
	Text      string
}

// Deliverer sends a message over one channel. One attempt, no retry.
type Deliverer interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

// Channels selects the deliverers to build.
type Channels struct {
	ResendAPIKey   string
	From           string
	TelegramToken  string
	TelegramChatID int64
	Command        string
}

// Build creates the deliverers for every configured channel. With none
// configured it falls back to logging the message.
func Build(ch Channels, logger *zap.Logger) ([]Deliverer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var out []Deliverer
	if ch.ResendAPIKey != "" {
		out = append(out, NewResend(ch.ResendAPIKey, ch.From))
	}
	if ch.TelegramToken != "" {
		if ch.TelegramChatID == 0 {
			return nil, fmt.Errorf("telegram: chat id is required when a token is set")
		}
		tg, err := NewTelegram(ch.TelegramToken, ch.TelegramChatID)
		if err != nil {
			return nil, err
		}
		out = append(out, tg)
	}
	if ch.Command != "" {
		out = append(out, NewCommand(ch.Command))
	}
	if len(out) == 0 {
		out = append(out, NewLog(logger))
	}
	logger.Debug("notification channels", zap.Strings("channels", Names(out)))
	return out, nil
}

// Names lists deliverer names in order
func Names(ds []Deliverer) []string {
	return lo.Map(ds, func(d Deliverer, _ int) string { return d.Name() })
}

// Log writes alerts to the structured logger instead of sending them.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Deliver(_ context.Context, msg Message) error {
	l.logger.Info("alert",
		zap.String("kind", string(msg.Alert.Kind)),
		zap.String("to", msg.Recipient),
		zap.String("subject", msg.Subject),
		zap.String("target", msg.Alert.Target))
	return nil
}
