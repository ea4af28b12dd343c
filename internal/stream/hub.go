// Package stream fans the tracking loop's events out to any number of
// consumers without ever blocking the loop.
package stream

import (
	"sync"

	"github.com/vburojevic/pricewatch/internal/domain"
)

// Hub is the loop's event sink. Every subscriber gets its own unbounded,
// ordered mailbox. The hub also keeps the current session's history so late
// subscribers can replay it.
type Hub struct {
	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	history []domain.Event
	last    *domain.Event
	closed  bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Emit appends ev to the history and queues it for every subscriber.
func (h *Hub) Emit(ev domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if ev.Type == domain.EventLog && ev.Outcome == domain.OutcomeSessionStart {
		h.history = h.history[:0:0]
	}
	h.history = append(h.history, ev)
	if ev.Type == domain.EventStats {
		e := ev
		h.last = &e
	}
	for s := range h.subs {
		s.push(ev)
	}
}

// History returns a copy of the current session's events.
func (h *Hub) History() []domain.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Event(nil), h.history...)
}

// LastStats returns the most recent stats event, if any.
func (h *Hub) LastStats() (domain.Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return domain.Event{}, false
	}
	return *h.last, true
}

// Subscribe registers a consumer. With replay the current history is queued
// first, atomically with registration, so nothing is missed or duplicated.
func (h *Hub) Subscribe(replay bool) *Subscription {
	s := newSubscription(h)
	h.mu.Lock()
	defer h.mu.Unlock()
	if replay {
		for _, ev := range h.history {
			s.push(ev)
		}
	}
	if h.closed {
		s.finish()
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

// Close ends every subscription after its queued events are delivered.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		s.finish()
	}
	h.subs = nil
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, s)
}

// Subscription is one consumer's view of the stream. Read from C until it
// is closed.
type Subscription struct {
	C <-chan domain.Event

	hub  *Hub
	out  chan domain.Event
	wake chan struct{}
	stop chan struct{}
	once sync.Once

	mu       sync.Mutex
	queue    []domain.Event
	draining bool
}

func newSubscription(h *Hub) *Subscription {
	out := make(chan domain.Event)
	s := &Subscription{
		C:    out,
		hub:  h,
		out:  out,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *Subscription) push(ev domain.Event) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	s.signal()
}

// finish lets the pump drain what is queued and then close C.
func (s *Subscription) finish() {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Cancel detaches the subscription and closes C without draining.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.stop)
	})
}

func (s *Subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			draining := s.draining
			s.mu.Unlock()
			if draining {
				return
			}
			select {
			case <-s.wake:
				continue
			case <-s.stop:
				return
			}
		}
		ev := s.queue[0]
		s.queue[0] = domain.Event{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- ev:
		case <-s.stop:
			return
		}
	}
}
