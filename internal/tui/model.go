// Package tui is the interactive terminal front end: session inputs, live
// stats and the operator log.
package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/vburojevic/pricewatch/internal/domain"
	"github.com/vburojevic/pricewatch/internal/session"
	"github.com/vburojevic/pricewatch/internal/stream"
)

// Interval control bounds, matching session validation.
const (
	minInterval  = 30
	maxInterval  = 3600
	intervalStep = 50
)

// Controller is the session surface the UI drives.
type Controller interface {
	Start(req session.StartRequest) (domain.Snapshot, error)
	Stop() bool
	Status() domain.Snapshot
	SetInterval(d time.Duration) error
}

type field int

const (
	fieldEmail field = iota
	fieldURL
	fieldInterval
	fieldCount
)

// Defaults pre-fill the inputs.
type Defaults struct {
	Recipient string
	URL       string
	Interval  time.Duration
}

type eventMsg domain.Event

type streamClosedMsg struct{}

// Model is the root Bubble Tea model.
type Model struct {
	ctrl Controller
	sub  *stream.Subscription
	keys KeyMap

	email    textinput.Model
	url      textinput.Model
	interval int
	focus    field

	log      viewport.Model
	lines    []string
	status   string
	statusOK bool
	snap     domain.Snapshot
	trend    string

	width  int
	height int
}

// New creates the model. sub should replay history so a running session's
// log is shown on open.
func New(ctrl Controller, sub *stream.Subscription, d Defaults) Model {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = ""
	email.CharLimit = 254
	email.SetValue(d.Recipient)
	email.Focus()

	url := textinput.New()
	url.Placeholder = "https://www.amazon.com/dp/..."
	url.Prompt = ""
	url.CharLimit = 2048
	url.SetValue(d.URL)

	secs := int(d.Interval / time.Second)
	if secs == 0 {
		secs = int(session.DefaultInterval / time.Second)
	}

	return Model{
		ctrl:     ctrl,
		sub:      sub,
		keys:     DefaultKeyMap(),
		email:    email,
		url:      url,
		interval: clampInterval(secs),
		log:      viewport.New(72, 10),
		status:   "Ready.",
		statusOK: true,
		snap:     ctrl.Status(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.sub))
}

// waitForEvent reads the next event off the subscription.
func waitForEvent(sub *stream.Subscription) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-sub.C
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.log.Width = max(20, msg.Width-6)
		m.log.Height = max(3, msg.Height-18)
		m.log.SetContent(strings.Join(m.lines, "\n"))
		m.log.GotoBottom()
		return m, nil

	case eventMsg:
		m.apply(domain.Event(msg))
		return m, waitForEvent(m.sub)

	case streamClosedMsg:
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.ctrl.Stop()
		if m.sub != nil {
			m.sub.Cancel()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		m.toggle()
		return m, nil

	case key.Matches(msg, m.keys.Next):
		return m, m.setFocus((m.focus + 1) % fieldCount)

	case key.Matches(msg, m.keys.Prev):
		return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)

	case key.Matches(msg, m.keys.ScrollUp), key.Matches(msg, m.keys.ScrollDn):
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd
	}

	if m.focus == fieldInterval {
		switch {
		case key.Matches(msg, m.keys.Slower):
			m.adjustInterval(-intervalStep)
		case key.Matches(msg, m.keys.Faster):
			m.adjustInterval(intervalStep)
		}
		return m, nil
	}
	if m.running() {
		// inputs are locked while tracking
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldEmail:
		m.email, cmd = m.email.Update(msg)
	case fieldURL:
		m.url, cmd = m.url.Update(msg)
	}
	return m, cmd
}

func (m *Model) setFocus(f field) tea.Cmd {
	m.focus = f
	m.email.Blur()
	m.url.Blur()
	switch f {
	case fieldEmail:
		return m.email.Focus()
	case fieldURL:
		return m.url.Focus()
	}
	return nil
}

func (m *Model) adjustInterval(delta int) {
	m.interval = clampInterval(m.interval + delta)
	if !m.running() {
		return
	}
	if err := m.ctrl.SetInterval(time.Duration(m.interval) * time.Second); err != nil {
		m.setStatus("⚠  "+err.Error(), false)
		return
	}
	m.setStatus(fmt.Sprintf("Interval set to %ds, applies after the current wait.", m.interval), true)
}

func (m *Model) toggle() {
	if m.running() {
		if m.ctrl.Stop() {
			m.setStatus("Stopping…", true)
		}
		return
	}

	snap, err := m.ctrl.Start(session.StartRequest{
		Target:    m.url.Value(),
		Recipient: m.email.Value(),
		Interval:  time.Duration(m.interval) * time.Second,
	})
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		m.setStatus("⚠  "+verr.Message, false)
		return
	case err != nil:
		m.setStatus("⚠  "+err.Error(), false)
		return
	}
	m.snap = snap
	m.trend = ""
}

func (m *Model) apply(ev domain.Event) {
	switch ev.Type {
	case domain.EventLog:
		if ev.Outcome == domain.OutcomeSessionStart {
			m.lines = m.lines[:0]
			m.trend = ""
		}
		switch ev.Outcome {
		case domain.OutcomeDrop:
			m.trend = "drop"
		case domain.OutcomeRise:
			m.trend = "rise"
		case domain.OutcomeNoChange:
			m.trend = "same"
		case domain.OutcomeStartValue:
			m.trend = "start"
		}
		line := timeStyle.Render("["+ev.Timestamp.Local().Format("15:04:05")+"]") + "  " + ev.Message
		m.lines = append(m.lines, line)
		m.log.SetContent(strings.Join(m.lines, "\n"))
		m.log.GotoBottom()
	case domain.EventStatus:
		m.setStatus(ev.Message, !strings.HasPrefix(ev.Message, "Couldn't"))
	case domain.EventStats:
		if ev.Snapshot != nil {
			m.snap = *ev.Snapshot
		}
	}
}

func (m *Model) setStatus(text string, ok bool) {
	m.status, m.statusOK = text, ok
}

func (m Model) running() bool {
	return m.snap.Status.IsActive()
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("❄  Price Watch") + "\n\n")
	b.WriteString(m.fieldView(fieldEmail, "EMAIL", m.email.View()) + "\n")
	b.WriteString(m.fieldView(fieldURL, "PRODUCT URL", m.url.View()) + "\n")
	b.WriteString(m.fieldView(fieldInterval, "INTERVAL", fmt.Sprintf("◀ %ss ▶", strconv.Itoa(m.interval))) + "\n\n")

	label := "▶   START TRACKING"
	if m.running() {
		label = "■   STOP TRACKING"
	}
	b.WriteString(buttonStyle(m.running()).Render(label) + "\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statView("CURRENT", priceText(m.snap.LastValue), valueStyle(m.trend)),
		statView("STARTED", priceText(m.snap.StartValue), labelStyle),
		statView("CHECKS", strconv.Itoa(m.snap.CheckCount), labelStyle),
	) + "\n\n")

	dot := lipgloss.NewStyle().Foreground(colorIce)
	if !m.statusOK {
		dot = lipgloss.NewStyle().Foreground(colorWarning)
	}
	b.WriteString(dot.Render("● ") + m.status + "\n\n")

	b.WriteString(labelStyle.Render("ACTIVITY LOG") + "\n")
	b.WriteString(panelStyle.Render(m.log.View()) + "\n")
	b.WriteString(helpStyle.Render("tab next field · ←/→ interval · enter start/stop · esc quit"))
	return b.String()
}

func (m Model) fieldView(f field, label, value string) string {
	style := labelStyle
	if m.focus == f {
		style = focusStyle
	}
	return style.Render(fmt.Sprintf("%-12s", label)) + " " + value
}

func statView(label, value string, style lipgloss.Style) string {
	return statStyle.Render(labelStyle.Render(label) + "\n" + style.Render(value))
}

func priceText(p *domain.Price) string {
	if p == nil {
		return "—"
	}
	return p.String()
}

func clampInterval(secs int) int {
	return min(max(secs, minInterval), maxInterval)
}
