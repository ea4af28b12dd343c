package session

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/vburojevic/pricewatch/internal/domain"
)

// scriptSource replays samples in order, then reports unavailable.
type scriptSource struct {
	mu      sync.Mutex
	samples []domain.Sample
	calls   int
	times   []time.Time
	clk     clock.Clock
	onFetch func(n int)
}

func newScript(clk clock.Clock, samples ...domain.Sample) *scriptSource {
	return &scriptSource{samples: samples, clk: clk}
}

func (s *scriptSource) Fetch(ctx context.Context, target string) domain.Sample {
	s.mu.Lock()
	n := s.calls
	s.calls++
	if s.clk != nil {
		s.times = append(s.times, s.clk.Now())
	}
	hook := s.onFetch
	var sample domain.Sample
	if n < len(s.samples) {
		sample = s.samples[n]
	} else {
		sample = domain.Unavailable("script exhausted")
	}
	s.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return sample
}

func (s *scriptSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *scriptSource) Times() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.times...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []domain.Alert
}

func (n *recordingNotifier) Notify(a domain.Alert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
}

func (n *recordingNotifier) Alerts() []domain.Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Alert(nil), n.alerts...)
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordingSink) Emit(ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.events...)
}

func (s *recordingSink) Outcomes() []domain.Outcome {
	var out []domain.Outcome
	for _, ev := range s.Events() {
		if ev.Type == domain.EventLog && ev.Outcome != "" {
			out = append(out, ev.Outcome)
		}
	}
	return out
}

// signalClock reports every timer creation so tests know the loop is waiting.
type signalClock struct {
	*clock.Mock
	timers chan time.Duration
}

func newSignalClock() *signalClock {
	return &signalClock{Mock: clock.NewMock(), timers: make(chan time.Duration, 4096)}
}

func (c *signalClock) Timer(d time.Duration) *clock.Timer {
	t := c.Mock.Timer(d)
	c.timers <- d
	return t
}

func validRequest() StartRequest {
	return StartRequest{
		Target:    "https://shop.example.com/dp/B000",
		Recipient: "me@example.com",
		Interval:  30 * time.Second,
	}
}
