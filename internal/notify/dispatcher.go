package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vburojevic/pricewatch/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds one alert's delivery across all channels.
const DefaultTimeout = 15 * time.Second

// Result reports one channel's delivery outcome.
type Result struct {
	Alert   domain.Alert
	Channel string
	Err     error
}

// Dispatcher implements the tracking loop's Notifier. Each alert is delivered
// on its own goroutine, so Notify never waits on the network.
type Dispatcher struct {
	deliverers []Deliverer
	timeout    time.Duration
	logger     *zap.Logger
	onResult   func(Result)

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

type DispatcherOption func(*Dispatcher)

func WithTimeout(d time.Duration) DispatcherOption {
	return func(x *Dispatcher) {
		if d > 0 {
			x.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) DispatcherOption {
	return func(x *Dispatcher) {
		if l != nil {
			x.logger = l
		}
	}
}

// WithResultHook is called once per channel per alert, from the delivery goroutine.
func WithResultHook(fn func(Result)) DispatcherOption {
	return func(x *Dispatcher) { x.onResult = fn }
}

func NewDispatcher(deliverers []Deliverer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		deliverers: deliverers,
		timeout:    DefaultTimeout,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify renders the alert and hands it to a background delivery.
// Alerts arriving after Close has started are dropped.
func (d *Dispatcher) Notify(alert domain.Alert) {
	msg, err := Render(alert)
	if err != nil {
		d.logger.Error("render alert", zap.Error(err))
		d.report(Result{Alert: alert, Channel: "render", Err: err})
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("alert dropped, dispatcher closed",
			zap.String("session", alert.SessionID),
			zap.String("kind", string(alert.Kind)))
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		d.deliver(msg)
	}()
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	var g errgroup.Group
	for _, dl := range d.deliverers {
		dl := dl
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%s: panic: %v", dl.Name(), r)
				}
				d.report(Result{Alert: msg.Alert, Channel: dl.Name(), Err: err})
			}()
			if err := dl.Deliver(ctx, msg); err != nil {
				return fmt.Errorf("%s: %w", dl.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		d.logger.Warn("alert delivery failed",
			zap.String("session", msg.Alert.SessionID),
			zap.String("kind", string(msg.Alert.Kind)),
			zap.Error(err))
		return
	}
	d.logger.Debug("alert delivered",
		zap.String("session", msg.Alert.SessionID),
		zap.Strings("channels", Names(d.deliverers)))
}

func (d *Dispatcher) report(r Result) {
	if d.onResult != nil {
		d.onResult(r)
	}
}

// Close stops accepting alerts and waits for in-flight deliveries, bounded by ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
