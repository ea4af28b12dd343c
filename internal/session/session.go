package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vburojevic/pricewatch/internal/domain"
)

// ErrInvalidTransition is returned when a status change is not allowed from the current status.
var ErrInvalidTransition = errors.New("invalid session transition")

// transitions lists the allowed status changes.
var transitions = map[domain.Status][]domain.Status{
	domain.StatusIdle:     {domain.StatusFetching},
	domain.StatusFetching: {domain.StatusWatching, domain.StatusStopping, domain.StatusStopped, domain.StatusFailed},
	domain.StatusWatching: {domain.StatusStopping, domain.StatusFailed},
	domain.StatusStopping: {domain.StatusStopped, domain.StatusFailed},
}

// Session is one start-to-stop monitoring run.
//
// Identity fields are immutable. Run state is written only by the tracking
// loop; readers go through Snapshot.
type Session struct {
	id        string
	target    string
	recipient string

	mu         sync.RWMutex
	interval   time.Duration
	status     domain.Status
	startValue *domain.Price
	lastValue  *domain.Price
	checkCount int
	drops      int
	rises      int
	failures   int
	startedAt  time.Time
	endedAt    time.Time
	err        string
}

// New creates an idle session. Callers validate the request first.
func New(id string, req StartRequest) *Session {
	return &Session{
		id:        id,
		target:    req.Target,
		recipient: req.Recipient,
		interval:  req.Interval,
		status:    domain.StatusIdle,
	}
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// Target returns the monitored locator
func (s *Session) Target() string { return s.target }

// Recipient returns the notification address
func (s *Session) Recipient() string { return s.recipient }

// Interval returns the current polling interval
func (s *Session) Interval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interval
}

// SetInterval changes the polling interval. The loop reads it at the start of
// its next wait; an in-progress wait keeps its original deadline.
func (s *Session) SetInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = d
}

// Status returns the current status
func (s *Session) Status() domain.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// LastValue returns the most recent successfully sampled value
func (s *Session) LastValue() (domain.Price, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastValue == nil {
		return 0, false
	}
	return *s.lastValue, true
}

// Snapshot returns a copy of the session state
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domain.Snapshot{
		SessionID:  s.id,
		Target:     s.target,
		Recipient:  s.recipient,
		Interval:   s.interval,
		IntervalS:  int(s.interval / time.Second),
		Status:     s.status,
		CheckCount: s.checkCount,
		Drops:      s.drops,
		Rises:      s.rises,
		Failures:   s.failures,
		Error:      s.err,
	}
	if s.startValue != nil {
		v := *s.startValue
		snap.StartValue = &v
	}
	if s.lastValue != nil {
		v := *s.lastValue
		snap.LastValue = &v
	}
	if !s.startedAt.IsZero() {
		t := s.startedAt
		snap.StartedAt = &t
	}
	if !s.endedAt.IsZero() {
		t := s.endedAt
		snap.EndedAt = &t
	}
	return snap
}

// transitionLocked moves to the given status. Caller holds mu.
func (s *Session) transitionLocked(to domain.Status) error {
	for _, allowed := range transitions[s.status] {
		if allowed == to {
			s.status = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.status, to)
}

// begin moves idle -> fetching and resets the counters.
func (s *Session) begin(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transitionLocked(domain.StatusFetching); err != nil {
		return err
	}
	s.checkCount = 0
	s.startedAt = now
	return nil
}

// watch records the initial sample and moves fetching -> watching.
func (s *Session) watch(p domain.Price) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startValue != nil {
		return fmt.Errorf("%w: start value already set", ErrInvalidTransition)
	}
	if err := s.transitionLocked(domain.StatusWatching); err != nil {
		return err
	}
	start, last := p, p
	s.startValue = &start
	s.lastValue = &last
	return nil
}

// observe applies one completed cycle and returns the previous value and the
// new check number. Unavailable samples only bump the counters.
func (s *Session) observe(sample domain.Sample) (prev domain.Price, check int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusWatching && s.status != domain.StatusStopping {
		return 0, s.checkCount, fmt.Errorf("%w: observe while %s", ErrInvalidTransition, s.status)
	}
	if s.lastValue != nil {
		prev = *s.lastValue
	}

	if !sample.OK {
		s.failures++
	} else {
		switch {
		case sample.Value < prev:
			s.drops++
		case sample.Value > prev:
			s.rises++
		}
		last := sample.Value
		s.lastValue = &last
	}
	s.checkCount++
	return prev, s.checkCount, nil
}

// requestStop moves an active session to stopping. It reports whether
// anything changed, so repeated calls are no-ops.
func (s *Session) requestStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == domain.StatusStopping {
		return false
	}
	return s.transitionLocked(domain.StatusStopping) == nil
}

// finish moves the session to a terminal status.
func (s *Session) finish(to domain.Status, now time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.IsTerminal() {
		return nil
	}
	if to == domain.StatusStopped && s.status == domain.StatusWatching {
		if err := s.transitionLocked(domain.StatusStopping); err != nil {
			return err
		}
	}
	if err := s.transitionLocked(to); err != nil {
		return err
	}
	s.endedAt = now
	if reason != "" {
		s.err = reason
	}
	return nil
}
