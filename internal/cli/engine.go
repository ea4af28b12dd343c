package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/vburojevic/pricewatch/internal/domain"
	"github.com/vburojevic/pricewatch/internal/notify"
	"github.com/vburojevic/pricewatch/internal/session"
	"github.com/vburojevic/pricewatch/internal/source"
	"github.com/vburojevic/pricewatch/internal/stream"
	"go.uber.org/zap"
)

// closeTimeout bounds waiting for the worker and pending alerts on exit.
const closeTimeout = 20 * time.Second

// engine wires the sample source, notifier and event hub into a manager.
type engine struct {
	hub        *stream.Hub
	source     *source.HTTPSource
	dispatcher *notify.Dispatcher
	manager    *session.Manager
	logger     *zap.Logger
}

func newEngine(globals *Globals, selector string) (*engine, error) {
	cfg := globals.Config
	logger := globals.Logger()

	if selector == "" {
		selector = cfg.Defaults.Selector
	}
	src := newSource(globals, selector)

	deliverers, err := notify.Build(notify.Channels{
		ResendAPIKey:   cfg.Notify.ResendAPIKey,
		From:           cfg.Notify.From,
		TelegramToken:  cfg.Notify.Telegram.Token,
		TelegramChatID: cfg.Notify.Telegram.ChatID,
		Command:        cfg.Notify.Command,
	}, logger.Named("notify"))
	if err != nil {
		return nil, fmt.Errorf("notification channels: %w", err)
	}
	logger.Debug("notification channels", zap.Strings("channels", notify.Names(deliverers)))

	hub := stream.NewHub()
	dispatcher := notify.NewDispatcher(deliverers,
		notify.WithTimeout(cfg.Notify.Timeout),
		notify.WithLogger(logger.Named("notify")),
		notify.WithResultHook(func(r notify.Result) {
			if r.Err == nil {
				return
			}
			ev := domain.NewLogEvent(r.Alert.SessionID, time.Now(), domain.LevelWarn, domain.OutcomeNotifyFailed,
				fmt.Sprintf("WARNING: %s alert via %s failed: %v", r.Alert.Kind, r.Channel, r.Err))
			ev.Check = r.Alert.Check
			hub.Emit(ev)
		}),
	)

	manager := session.NewManager(src, dispatcher, hub,
		session.WithSlice(cfg.Loop.Slice),
		session.WithLogger(logger.Named("session")),
	)

	return &engine{
		hub:        hub,
		source:     src,
		dispatcher: dispatcher,
		manager:    manager,
		logger:     logger,
	}, nil
}

func newSource(globals *Globals, selector string) *source.HTTPSource {
	cfg := globals.Config
	return source.NewHTTPSource(source.Config{
		Timeout:      cfg.Fetch.Timeout,
		UserAgent:    cfg.Fetch.UserAgent,
		MinGap:       cfg.Fetch.MinGap,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		Selector:     selector,
	}, globals.Logger().Named("source"))
}

// close stops any session, waits for its worker and pending alerts, then
// ends every event subscription.
func (r *engine) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, closeTimeout)
	defer cancel()
	if err := r.manager.Shutdown(ctx); err != nil {
		r.logger.Warn("session worker did not exit", zap.Error(err))
	}
	if err := r.dispatcher.Close(ctx); err != nil {
		r.logger.Warn("pending alerts abandoned", zap.Error(err))
	}
	r.hub.Close()
}

// startRequest fills unset inputs from the configured defaults.
func startRequest(globals *Globals, url, recipient string, interval time.Duration) session.StartRequest {
	d := globals.Config.Defaults
	if url == "" {
		url = d.URL
	}
	if recipient == "" {
		recipient = d.Recipient
	}
	if interval == 0 {
		interval = d.Interval
	}
	if interval == 0 {
		interval = session.DefaultInterval
	}
	return session.StartRequest{Target: url, Recipient: recipient, Interval: interval}
}
