package session

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/vburojevic/pricewatch/internal/domain"
	"go.uber.org/zap"
)

// Source samples the monitored value. It never fails except by returning an
// unavailable sample and must bound its own blocking time.
type Source interface {
	Fetch(ctx context.Context, target string) domain.Sample
}

// Notifier accepts an alert for asynchronous delivery. Notify must not block
// on the delivery outcome.
type Notifier interface {
	Notify(alert domain.Alert)
}

// Sink receives the event stream. Emit must not block.
type Sink interface {
	Emit(ev domain.Event)
}

// NopSink discards events
type NopSink struct{}

func (NopSink) Emit(domain.Event) {}

// Loop drives one Session through fetch, compare and act cycles. It is the
// only writer of the session's run state while running.
type Loop struct {
	session  *Session
	source   Source
	notifier Notifier
	sink     Sink
	opts     options
	logger   *zap.Logger
}

// NewLoop wires a loop for a session that has already begun fetching.
func NewLoop(s *Session, source Source, notifier Notifier, sink Sink, opts ...Option) *Loop {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Loop{
		session:  s,
		source:   source,
		notifier: notifier,
		sink:     sink,
		opts:     o,
		logger:   o.logger.With(zap.String("session", s.ID())),
	}
}

// Run performs the initial sample and then cycles until ctx is cancelled.
// It always leaves the session in a terminal status.
func (l *Loop) Run(ctx context.Context) {
	s := l.session
	defer l.recoverPanic()

	l.log(domain.LevelInfo, domain.OutcomeSessionStart, "-- Tracker started --")
	l.log(domain.LevelInfo, "", "URL  : "+truncate(s.Target(), 55))
	l.log(domain.LevelInfo, "", "Alert: "+s.Recipient())
	l.status("Fetching initial price…")

	first := l.fetch(ctx)
	if !first.OK {
		l.logger.Warn("initial fetch failed", zap.String("reason", first.Reason))
		l.log(domain.LevelError, domain.OutcomeInitialFetchFailed, "ERROR: Could not fetch price. "+first.Reason)
		l.end(domain.StatusStopped, "initial fetch failed: "+first.Reason, "Couldn't fetch price. Check the URL.")
		return
	}
	if ctx.Err() != nil {
		l.end(domain.StatusStopped, "", "Stopped.")
		return
	}
	if err := s.watch(first.Value); err != nil {
		// stop won the race against the initial fetch
		l.logger.Debug("initial sample discarded", zap.Error(err))
		l.end(domain.StatusStopped, "", "Stopped.")
		return
	}

	l.logger.Info("tracking started", zap.Stringer("start", first.Value))
	l.log(domain.LevelInfo, domain.OutcomeStartValue, "Starting price: "+first.Value.String())
	l.status("Watching · press Stop to quit")
	l.stats()

	for l.wait(ctx) {
		l.cycle(l.fetch(ctx))
	}
	l.end(domain.StatusStopped, "", "Stopped.")
}

// wait sleeps for the session interval in short slices. It returns false once
// ctx is cancelled. The interval is read once per wait.
func (l *Loop) wait(ctx context.Context) bool {
	deadline := l.opts.clock.Now().Add(l.session.Interval())
	for {
		if ctx.Err() != nil {
			return false
		}
		remaining := deadline.Sub(l.opts.clock.Now())
		if remaining <= 0 {
			return true
		}
		t := l.opts.clock.Timer(min(l.opts.slice, remaining))
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}
}

// fetch samples without propagating cancellation: an in-flight fetch runs to
// completion and is bounded by the source's own timeout.
func (l *Loop) fetch(ctx context.Context) domain.Sample {
	return l.source.Fetch(context.WithoutCancel(ctx), l.session.Target())
}

// cycle compares a sample with the last value and acts on the outcome.
func (l *Loop) cycle(sample domain.Sample) {
	s := l.session
	prev, n, err := s.observe(sample)
	if err != nil {
		l.logger.Warn("cycle dropped", zap.Error(err))
		return
	}

	switch {
	case !sample.OK:
		l.logger.Warn("fetch failed", zap.Int("check", n), zap.String("reason", sample.Reason))
		ev := l.newLog(domain.LevelWarn, domain.OutcomeFetchFailed,
			fmt.Sprintf("WARNING: Check #%d failed to fetch (%s), retrying next cycle", n, sample.Reason))
		ev.Check = n
		l.sink.Emit(ev)

	case sample.Value < prev:
		alert := domain.NewAlert(s.ID(), s.Recipient(), s.Target(), prev, sample.Value, n, l.opts.clock.Now())
		l.logger.Info("price drop", zap.Int("check", n), zap.Stringer("old", prev), zap.Stringer("new", sample.Value))
		l.emitChange(domain.OutcomeDrop, alert,
			fmt.Sprintf("Drop  %s → %s  (−%s)  · alert queued", prev, sample.Value, alert.Delta))
		l.notify(alert)
		l.status(fmt.Sprintf("Price dropped %s!  Alert sent.", alert.Delta))

	case sample.Value > prev:
		alert := domain.NewAlert(s.ID(), s.Recipient(), s.Target(), prev, sample.Value, n, l.opts.clock.Now())
		l.logger.Info("price rise", zap.Int("check", n), zap.Stringer("old", prev), zap.Stringer("new", sample.Value))
		l.emitChange(domain.OutcomeRise, alert,
			fmt.Sprintf("Rise  %s → %s  (+%s)  · alert queued", prev, sample.Value, alert.Delta))
		l.notify(alert)
		l.status(fmt.Sprintf("Price rose %s.  Alert sent.", alert.Delta))

	default:
		l.logger.Debug("no change", zap.Int("check", n), zap.Stringer("value", sample.Value))
		ev := l.newLog(domain.LevelInfo, domain.OutcomeNoChange,
			fmt.Sprintf("Check #%d  ·  %s  ·  no change", n, sample.Value))
		ev.Check = n
		l.sink.Emit(ev)
		l.status(fmt.Sprintf("Watching  ·  check #%d complete", n))
	}
	l.stats()
}

func (l *Loop) notify(alert domain.Alert) {
	if l.notifier == nil {
		return
	}
	l.notifier.Notify(alert)
}

func (l *Loop) emitChange(outcome domain.Outcome, alert domain.Alert, msg string) {
	ev := l.newLog(domain.LevelInfo, outcome, msg)
	ev.Check = alert.Check
	ev.Change = &domain.Change{Old: alert.Old, New: alert.New, Delta: alert.Delta}
	l.sink.Emit(ev)
}

// end moves the session to a terminal status and reports it.
func (l *Loop) end(to domain.Status, reason, statusLine string) {
	if err := l.session.finish(to, l.opts.clock.Now(), reason); err != nil {
		l.logger.Error("finish session", zap.Error(err))
	}
	snap := l.session.Snapshot()
	ev := l.newLog(domain.LevelInfo, domain.OutcomeSessionEnd, "-- Tracker stopped --")
	ev.Snapshot = &snap
	l.sink.Emit(ev)
	l.status(statusLine)
	l.stats()
	l.logger.Info("tracking ended", zap.String("status", string(snap.Status)), zap.Int("checks", snap.CheckCount))
}

func (l *Loop) recoverPanic() {
	r := recover()
	if r == nil {
		return
	}
	reason := fmt.Sprintf("panic: %v", r)
	l.logger.Error("tracking loop crashed", zap.String("reason", reason))
	if err := l.session.finish(domain.StatusFailed, l.opts.clock.Now(), reason); err != nil {
		l.logger.Error("finish session", zap.Error(err))
	}
	l.log(domain.LevelError, domain.OutcomeSessionEnd, "ERROR: tracker failed: "+reason)
	l.status("Tracker failed.")
	l.stats()
}

func (l *Loop) newLog(level domain.Level, outcome domain.Outcome, msg string) domain.Event {
	return domain.NewLogEvent(l.session.ID(), l.opts.clock.Now(), level, outcome, msg)
}

func (l *Loop) log(level domain.Level, outcome domain.Outcome, msg string) {
	l.sink.Emit(l.newLog(level, outcome, msg))
}

func (l *Loop) status(msg string) {
	l.sink.Emit(domain.NewStatusEvent(l.session.ID(), l.opts.clock.Now(), l.session.Status(), msg))
}

func (l *Loop) stats() {
	l.sink.Emit(domain.NewStatsEvent(l.opts.clock.Now(), l.session.Snapshot()))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
