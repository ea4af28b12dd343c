package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vburojevic/pricewatch/internal/output"
	"github.com/vburojevic/pricewatch/internal/session"
)

// CheckCmd samples a page once without starting a session.
type CheckCmd struct {
	URL      string `short:"u" help:"Product page URL (default from config)"`
	Selector string `help:"CSS selector for the price element"`
}

// Run executes the check command
func (c *CheckCmd) Run(globals *Globals) error {
	target := c.URL
	if target == "" {
		target = globals.Config.Defaults.URL
	}
	if err := session.ValidateTarget(target); err != nil {
		return outputStartError(globals, err)
	}
	selector := c.Selector
	if selector == "" {
		selector = globals.Config.Defaults.Selector
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sample := newSource(globals, selector).Fetch(ctx, target)
	if !sample.OK {
		return outputErrorCommon(globals, "FETCH_FAILED", fmt.Sprintf("could not fetch price: %s", sample.Reason),
			"check the URL, or pass --selector if the page is not an Amazon product page")
	}

	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).WriteSample(target, time.Now(), sample)
	}
	_, err := fmt.Fprintf(globals.Stdout, "Price: %s\n", sample.Value)
	return err
}
