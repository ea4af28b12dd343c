package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/vburojevic/pricewatch/internal/domain"
)

var (
	dropStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5ddba5"))
	riseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f09060"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e5c07b"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e06c75")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4a6a8a"))
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#2a4a6a"))
)

// TextWriter prints the operator log as "[15:04:05]  message" lines.
// Status lines are printed only when ShowStatus is set; stats are skipped.
type TextWriter struct {
	mu         sync.Mutex
	w          io.Writer
	color      bool
	ShowStatus bool
}

// NewTextWriter colours output only when w is a terminal.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w, color: IsTerminal(w)}
}

// IsTerminal reports whether w is a TTY.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (t *TextWriter) WriteEvent(ev domain.Event) error {
	var line string
	switch ev.Type {
	case domain.EventLog:
		line = fmt.Sprintf("%s  %s", t.paint(timeStyle, "["+ev.Timestamp.Local().Format("15:04:05")+"]"), t.paint(styleFor(ev), ev.Message))
	case domain.EventStatus:
		if !t.ShowStatus {
			return nil
		}
		line = t.paint(mutedStyle, "  » "+ev.Message)
	default:
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintln(t.w, line)
	return err
}

// WriteError prints "Error [CODE]: message (hint: ...)".
func (t *TextWriter) WriteError(code, message string, hint ...string) error {
	line := fmt.Sprintf("Error [%s]: %s", code, message)
	if len(hint) > 0 && hint[0] != "" {
		line += fmt.Sprintf(" (hint: %s)", hint[0])
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintln(t.w, t.paint(errorStyle, line))
	return err
}

func (t *TextWriter) paint(s lipgloss.Style, text string) string {
	if !t.color {
		return text
	}
	return s.Render(text)
}

func styleFor(ev domain.Event) lipgloss.Style {
	switch {
	case ev.Outcome == domain.OutcomeDrop:
		return dropStyle
	case ev.Outcome == domain.OutcomeRise:
		return riseStyle
	case ev.Level == domain.LevelError:
		return errorStyle
	case ev.Level == domain.LevelWarn:
		return warnStyle
	}
	return lipgloss.NewStyle()
}
