package session

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSlice bounds stop latency during the interval wait.
const DefaultSlice = 100 * time.Millisecond

type options struct {
	clock  clock.Clock
	slice  time.Duration
	logger *zap.Logger
	newID  func() string
}

func defaultOptions() options {
	return options{
		clock:  clock.New(),
		slice:  DefaultSlice,
		logger: zap.NewNop(),
		newID:  uuid.NewString,
	}
}

// Option configures a Loop or Manager
type Option func(*options)

// WithClock replaces the wall clock, mainly for tests
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithSlice sets the wait granularity
func WithSlice(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.slice = d
		}
	}
}

// WithLogger sets the zap logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithIDGenerator overrides session id generation
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}
