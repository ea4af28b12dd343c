package domain

import "time"

// Snapshot is a consistent, read-only view of a session.
type Snapshot struct {
	SessionID  string        `json:"session_id,omitempty"`
	Target     string        `json:"target,omitempty"`
	Recipient  string        `json:"recipient,omitempty"`
	Interval   time.Duration `json:"-"`
	IntervalS  int           `json:"interval_seconds,omitempty"`
	Status     Status        `json:"status"`
	StartValue *Price        `json:"start_value,omitempty"`
	LastValue  *Price        `json:"last_value,omitempty"`
	CheckCount int           `json:"check_count"`
	Drops      int           `json:"drops"`
	Rises      int           `json:"rises"`
	Failures   int           `json:"failures"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	EndedAt    *time.Time    `json:"ended_at,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// IdleSnapshot is reported before any session has been started.
func IdleSnapshot() Snapshot {
	return Snapshot{Status: StatusIdle}
}

// Duration returns how long the session ran (so far).
func (s Snapshot) Duration(now time.Time) time.Duration {
	if s.StartedAt == nil {
		return 0
	}
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	return end.Sub(*s.StartedAt)
}

// AlertKind is the direction of a price change.
type AlertKind string

const (
	AlertDrop AlertKind = "drop"
	AlertRise AlertKind = "rise"
)

// Alert is the payload handed to the notifier on a drop or rise.
type Alert struct {
	Kind      AlertKind `json:"kind"`
	SessionID string    `json:"session_id"`
	Recipient string    `json:"recipient"`
	Target    string    `json:"target"`
	Old       Price     `json:"old"`
	New       Price     `json:"new"`
	Delta     Price     `json:"delta"`
	Check     int       `json:"check"`
	At        time.Time `json:"at"`
}

// NewAlert builds an alert for a change from old to cur. Delta is always positive.
func NewAlert(sessionID, recipient, target string, old, cur Price, check int, at time.Time) Alert {
	a := Alert{
		SessionID: sessionID,
		Recipient: recipient,
		Target:    target,
		Old:       old,
		New:       cur,
		Check:     check,
		At:        at,
	}
	if cur < old {
		a.Kind = AlertDrop
		a.Delta = old - cur
	} else {
		a.Kind = AlertRise
		a.Delta = cur - old
	}
	return a
}
