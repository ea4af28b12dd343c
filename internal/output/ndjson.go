package output

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/vburojevic/pricewatch/internal/domain"
)

// SchemaVersion is stamped on every record this package writes.
const SchemaVersion = domain.SchemaVersion

// EventWriter renders session events in one output format.
type EventWriter interface {
	WriteEvent(ev domain.Event) error
}

// ErrorOutput is the error record.
type ErrorOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	Hint          string `json:"hint,omitempty"`
}

// CutoffOutput is written when a session is stopped by --max-checks.
type CutoffOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	SessionID     string `json:"session_id,omitempty"`
	Reason        string `json:"reason"`
	Checks        int    `json:"checks"`
}

// SampleOutput is the result of a one-off price check.
type SampleOutput struct {
	Type          string        `json:"type"`
	SchemaVersion int           `json:"schemaVersion"`
	Timestamp     time.Time     `json:"timestamp"`
	Target        string        `json:"target"`
	Price         *domain.Price `json:"price,omitempty"`
	Display       string        `json:"display,omitempty"`
	Available     bool          `json:"available"`
	Reason        string        `json:"reason,omitempty"`
}

// NDJSONWriter writes one JSON object per line. Safe for concurrent use.
type NDJSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &NDJSONWriter{enc: enc}
}

func (w *NDJSONWriter) write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(v)
}

func (w *NDJSONWriter) WriteEvent(ev domain.Event) error {
	return w.write(ev)
}

// WriteError writes an error record. hint is optional.
func (w *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	out := ErrorOutput{
		Type:          "error",
		SchemaVersion: SchemaVersion,
		Code:          code,
		Message:       message,
	}
	if len(hint) > 0 {
		out.Hint = hint[0]
	}
	return w.write(out)
}

func (w *NDJSONWriter) WriteCutoff(sessionID, reason string, checks int) error {
	return w.write(CutoffOutput{
		Type:          "cutoff_reached",
		SchemaVersion: SchemaVersion,
		SessionID:     sessionID,
		Reason:        reason,
		Checks:        checks,
	})
}

func (w *NDJSONWriter) WriteSample(target string, at time.Time, s domain.Sample) error {
	out := SampleOutput{
		Type:          "sample",
		SchemaVersion: SchemaVersion,
		Timestamp:     at,
		Target:        target,
		Available:     s.OK,
		Reason:        s.Reason,
	}
	if s.OK {
		p := s.Value
		out.Price = &p
		out.Display = p.String()
	}
	return w.write(out)
}
