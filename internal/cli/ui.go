package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/vburojevic/pricewatch/internal/tui"
)

// UICmd launches the interactive terminal UI
type UICmd struct {
	URL      string `short:"u" help:"Pre-fill the product URL"`
	To       string `short:"t" help:"Pre-fill the alert recipient"`
	Selector string `help:"CSS selector for the price element"`
}

// Run executes the UI command
func (c *UICmd) Run(globals *Globals) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := newEngine(globals, c.Selector)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_CONFIG", err.Error(), "check the notify section of your config")
	}
	defer rt.close(context.Background())

	req := startRequest(globals, c.URL, c.To, 0)
	model := tui.New(rt.manager, rt.hub.Subscribe(true), tui.Defaults{
		Recipient: req.Recipient,
		URL:       req.Target,
		Interval:  req.Interval,
	})

	globals.Debug("starting TUI")
	p := tea.NewProgram(model, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
