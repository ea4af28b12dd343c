package domain

import "time"

// SchemaVersion is stamped on every emitted record
const SchemaVersion = 1

// EventType classifies records on the event stream
type EventType string

const (
	EventStatus EventType = "status" // status changed
	EventLog    EventType = "log"    // human-readable log line
	EventStats  EventType = "stats"  // counters/values changed
)

// Level is the severity of a log line
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Priority orders levels for filtering
func (l Level) Priority() int {
	switch l {
	case LevelWarn:
		return 1
	case LevelError:
		return 2
	default:
		return 0
	}
}

// ParseLevel parses a level name, defaulting to info
func ParseLevel(s string) Level {
	switch s {
	case "warn", "warning", "WARN", "Warn":
		return LevelWarn
	case "error", "ERROR", "Error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Outcome tags log lines that describe a lifecycle step or cycle result
type Outcome string

const (
	OutcomeSessionStart       Outcome = "session_start"
	OutcomeSessionEnd         Outcome = "session_end"
	OutcomeStartValue         Outcome = "start_value"
	OutcomeDrop               Outcome = "drop"
	OutcomeRise               Outcome = "rise"
	OutcomeNoChange           Outcome = "no_change"
	OutcomeFetchFailed        Outcome = "fetch_failed"
	OutcomeInitialFetchFailed Outcome = "initial_fetch_failed"
	OutcomeNotifyFailed       Outcome = "notify_failed"
)

// Change describes a price movement between two samples
type Change struct {
	Old   Price `json:"old"`
	New   Price `json:"new"`
	Delta Price `json:"delta"`
}

// Event is one record on a session's event stream
type Event struct {
	Type          EventType `json:"type"`
	SchemaVersion int       `json:"schemaVersion"`
	SessionID     string    `json:"session_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Status        Status    `json:"status,omitempty"`
	Level         Level     `json:"level,omitempty"`
	Outcome       Outcome   `json:"outcome,omitempty"`
	Message       string    `json:"message,omitempty"`
	Check         int       `json:"check,omitempty"`
	Change        *Change   `json:"change,omitempty"`
	Snapshot      *Snapshot `json:"snapshot,omitempty"`
}

// NewStatusEvent reports a status change with a short operator-facing line
func NewStatusEvent(sessionID string, at time.Time, status Status, message string) Event {
	return Event{
		Type:          EventStatus,
		SchemaVersion: SchemaVersion,
		SessionID:     sessionID,
		Timestamp:     at,
		Status:        status,
		Message:       message,
	}
}

// NewLogEvent creates a log line
func NewLogEvent(sessionID string, at time.Time, level Level, outcome Outcome, message string) Event {
	return Event{
		Type:          EventLog,
		SchemaVersion: SchemaVersion,
		SessionID:     sessionID,
		Timestamp:     at,
		Level:         level,
		Outcome:       outcome,
		Message:       message,
	}
}

// NewStatsEvent carries the latest snapshot
func NewStatsEvent(at time.Time, snap Snapshot) Event {
	return Event{
		Type:          EventStats,
		SchemaVersion: SchemaVersion,
		SessionID:     snap.SessionID,
		Timestamp:     at,
		Status:        snap.Status,
		Check:         snap.CheckCount,
		Snapshot:      &snap,
	}
}
