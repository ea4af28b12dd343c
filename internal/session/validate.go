package session

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	MinInterval     = 30 * time.Second
	MaxInterval     = 3600 * time.Second
	DefaultInterval = 60 * time.Second
)

// Validation error codes, shared with CLI and HTTP error records.
const (
	CodeInvalidTarget    = "INVALID_TARGET"
	CodeInvalidRecipient = "INVALID_RECIPIENT"
	CodeInvalidInterval  = "INVALID_INTERVAL"
)

// StartRequest carries the operator inputs for a new session.
type StartRequest struct {
	Target    string
	Recipient string
	Interval  time.Duration
}

// ValidationError is a rejected start/interval request. No session is created.
type ValidationError struct {
	Field   string
	Code    string
	Message string
	Hint    string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Normalize trims whitespace from the text inputs
func (r StartRequest) Normalize() StartRequest {
	r.Target = strings.TrimSpace(r.Target)
	r.Recipient = strings.TrimSpace(r.Recipient)
	return r
}

// Validate checks the start preconditions.
func (r StartRequest) Validate() error {
	if err := ValidateTarget(r.Target); err != nil {
		return err
	}
	if r.Recipient == "" || !strings.Contains(r.Recipient, "@") {
		return &ValidationError{
			Field:   "recipient",
			Code:    CodeInvalidRecipient,
			Message: fmt.Sprintf("invalid recipient %q: expected an email address", r.Recipient),
			Hint:    "use an address like you@example.com",
		}
	}
	return ValidateInterval(r.Interval)
}

// ValidateTarget checks that target is an absolute http(s) URL.
func ValidateTarget(target string) error {
	invalid := func(msg string) error {
		return &ValidationError{
			Field:   "target",
			Code:    CodeInvalidTarget,
			Message: msg,
			Hint:    "pass a product URL like https://www.amazon.com/dp/...",
		}
	}
	if target == "" {
		return invalid("target URL is required")
	}
	u, err := url.Parse(target)
	if err != nil {
		return invalid(fmt.Sprintf("invalid target URL: %v", err))
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid(fmt.Sprintf("invalid target URL %q: must start with http:// or https://", target))
	}
	return nil
}

// ValidateInterval checks the 30-3600s range in whole seconds.
func ValidateInterval(d time.Duration) error {
	if d < MinInterval || d > MaxInterval || d%time.Second != 0 {
		return &ValidationError{
			Field:   "interval",
			Code:    CodeInvalidInterval,
			Message: fmt.Sprintf("invalid interval %s: must be whole seconds between %s and %s", d, MinInterval, MaxInterval),
			Hint:    "use e.g. --interval 60s",
		}
	}
	return nil
}
