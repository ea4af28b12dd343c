package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vburojevic/pricewatch/internal/domain"
	"github.com/vburojevic/pricewatch/internal/output"
)

// rotation keeps one NDJSON event file per session under dir.
type rotation struct {
	dir     string
	current string
	file    *os.File
	buf     *bufio.Writer
	writer  *output.NDJSONWriter
}

func newRotation(dir string) (*rotation, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &rotation{dir: dir}, nil
}

// Path returns the file used for sessionID.
func (r *rotation) Path(sessionID string) string {
	return filepath.Join(r.dir, sessionID+".ndjson")
}

// Write appends ev to its session's file, switching files when the session changes.
func (r *rotation) Write(ev domain.Event) error {
	if ev.SessionID == "" {
		return nil
	}
	if ev.SessionID != r.current {
		if err := r.open(ev.SessionID); err != nil {
			return err
		}
	}
	return r.writer.WriteEvent(ev)
}

func (r *rotation) open(sessionID string) error {
	if err := r.Close(); err != nil {
		return err
	}
	f, err := os.Create(r.Path(sessionID))
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	r.file = f
	r.buf = bufio.NewWriter(f)
	r.writer = output.NewNDJSONWriter(r.buf)
	r.current = sessionID
	return nil
}

// Close flushes and closes the current file.
func (r *rotation) Close() error {
	if r.file == nil {
		return nil
	}
	flushErr := r.buf.Flush()
	closeErr := r.file.Close()
	r.file, r.buf, r.writer, r.current = nil, nil, nil, ""
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
