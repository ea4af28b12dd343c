package filter

import (
	"sync"
	"time"

	"github.com/vburojevic/pricewatch/internal/domain"
)

// DedupeFilter collapses runs of equivalent log events, such as a long
// stretch of unchanged checks at the same price.
type DedupeFilter struct {
	mu      sync.Mutex
	window  time.Duration // 0 = collapse the whole run
	lastKey string
	run     int
	first   time.Time
}

// NewDedupeFilter creates a filter. With window > 0 a run is broken (and the
// event shown again) once window has passed since the run's first event.
func NewDedupeFilter(window time.Duration) *DedupeFilter {
	return &DedupeFilter{window: window}
}

// DedupeResult holds the result of a dedupe check
type DedupeResult struct {
	ShouldEmit bool
	// Collapsed is the number of events suppressed in the run that just ended.
	// It is only set when ShouldEmit is true.
	Collapsed int
}

// Check decides whether ev is shown. Only no_change and fetch_failed lines
// collapse; everything else passes and ends the current run.
func (f *DedupeFilter) Check(ev *domain.Event) DedupeResult {
	if ev.Type != domain.EventLog {
		return DedupeResult{ShouldEmit: true}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := dedupeKey(ev)
	if key != "" && key == f.lastKey && (f.window == 0 || ev.Timestamp.Sub(f.first) < f.window) {
		f.run++
		return DedupeResult{ShouldEmit: false}
	}

	collapsed := f.run - 1
	if collapsed < 0 {
		collapsed = 0
	}
	f.lastKey, f.first = key, ev.Timestamp
	f.run = 0
	if key != "" {
		f.run = 1
	}
	return DedupeResult{ShouldEmit: true, Collapsed: collapsed}
}

// Pending returns how many events the current run has suppressed so far.
func (f *DedupeFilter) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.run <= 1 {
		return 0
	}
	return f.run - 1
}

// Reset clears the deduplication state
func (f *DedupeFilter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastKey, f.run = "", 0
}

func dedupeKey(ev *domain.Event) string {
	switch ev.Outcome {
	case domain.OutcomeNoChange, domain.OutcomeFetchFailed:
		return string(ev.Outcome)
	}
	return ""
}
