package domain

// Status is the lifecycle state of a tracking session
type Status string

const (
	StatusIdle     Status = "idle"
	StatusFetching Status = "fetching"
	StatusWatching Status = "watching"
	StatusStopping Status = "stopping"
	StatusStopped  Status = "stopped"
	StatusFailed   Status = "failed"
)

// IsTerminal reports whether the session has finished
func (s Status) IsTerminal() bool {
	return s == StatusStopped || s == StatusFailed
}

// IsActive reports whether a worker owns the session
func (s Status) IsActive() bool {
	switch s {
	case StatusFetching, StatusWatching, StatusStopping:
		return true
	}
	return false
}
