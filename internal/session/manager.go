package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vburojevic/pricewatch/internal/domain"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyRunning is returned by Start while a session worker is alive.
	ErrAlreadyRunning = errors.New("a tracking session is already running")
	// ErrNotRunning is returned by SetInterval when no session is active.
	ErrNotRunning = errors.New("no tracking session is running")
)

// Manager is the operator-facing surface: start, stop, status and interval
// changes. It allows one active session at a time and never reuses a session.
type Manager struct {
	source   Source
	notifier Notifier
	sink     Sink
	opts     []Option
	o        options

	mu      sync.Mutex
	current *Session
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager creates a manager. notifier and sink may be nil.
func NewManager(source Source, notifier Notifier, sink Sink, opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager{
		source:   source,
		notifier: notifier,
		sink:     sink,
		opts:     opts,
		o:        o,
	}
}

// Start validates req, creates a fresh session and launches its worker.
// Validation failures return a *ValidationError and create nothing.
func (m *Manager) Start(req StartRequest) (domain.Snapshot, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return domain.Snapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && !isClosed(m.done) {
		return m.current.Snapshot(), ErrAlreadyRunning
	}

	sess := New(m.o.newID(), req)
	if err := sess.begin(m.o.clock.Now()); err != nil {
		return domain.Snapshot{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.current, m.cancel, m.done = sess, cancel, done

	loop := NewLoop(sess, m.source, m.notifier, m.sink, m.opts...)
	go func() {
		defer close(done)
		defer cancel()
		loop.Run(ctx)
	}()

	m.o.logger.Debug("session started",
		zap.String("session", sess.ID()),
		zap.String("target", req.Target),
		zap.Duration("interval", req.Interval))
	return sess.Snapshot(), nil
}

// Stop requests cooperative cancellation of the active session. It returns
// false when nothing was running or a stop is already in progress.
func (m *Manager) Stop() bool {
	m.mu.Lock()
	sess, cancel := m.current, m.cancel
	m.mu.Unlock()

	if sess == nil || !sess.requestStop() {
		return false
	}
	cancel()
	m.o.logger.Debug("session stop requested", zap.String("session", sess.ID()))
	return true
}

// Status returns a snapshot of the current (or last) session.
func (m *Manager) Status() domain.Snapshot {
	m.mu.Lock()
	sess := m.current
	m.mu.Unlock()
	if sess == nil {
		return domain.IdleSnapshot()
	}
	return sess.Snapshot()
}

// SetInterval changes the active session's interval. It applies to the next wait.
func (m *Manager) SetInterval(d time.Duration) error {
	if err := ValidateInterval(d); err != nil {
		return err
	}
	m.mu.Lock()
	sess := m.current
	m.mu.Unlock()
	if sess == nil || !sess.Status().IsActive() {
		return ErrNotRunning
	}
	sess.SetInterval(d)
	return nil
}

// Done is closed when the current worker exits. With no session it is closed already.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == nil {
		return closedCh
	}
	return m.done
}

// Shutdown stops the active session and waits for its worker, bounded by ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.Stop()
	select {
	case <-m.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func isClosed(ch chan struct{}) bool {
	if ch == nil {
		return true
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
