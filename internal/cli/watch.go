package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/vburojevic/pricewatch/internal/domain"
	"github.com/vburojevic/pricewatch/internal/filter"
	"github.com/vburojevic/pricewatch/internal/output"
	"go.uber.org/zap"
)

// WatchCmd runs one tracking session headless and streams its events.
type WatchCmd struct {
	URL          string        `short:"u" help:"Product page URL (default from config)"`
	To           string        `short:"t" help:"Alert recipient email (default from config)"`
	Interval     time.Duration `short:"i" help:"Time between checks, 30s to 1h (default from config, else 60s)"`
	Selector     string        `help:"CSS selector for the price element (default: Amazon price markup)"`
	Pattern      string        `short:"p" help:"Regex pattern to filter log messages"`
	Exclude      []string      `short:"x" help:"Regex pattern to exclude from log messages (can be repeated)"`
	Where        []string      `short:"w" help:"Filter events: field=value, field~regex, level>=warn (can be repeated)"`
	Dedupe       bool          `help:"Collapse runs of unchanged and failed checks"`
	DedupeWindow time.Duration `help:"Show a repeated line again after this long (requires --dedupe)"`
	Status       bool          `help:"Print status lines in text output"`
	OutputDir    string        `type:"path" help:"Also write every event to DIR/<session-id>.ndjson"`
	MaxChecks    int           `help:"Stop the session after N checks (0 = no limit)"`
}

// Run executes the watch command
func (c *WatchCmd) Run(globals *Globals) error {
	if err := validateFlags(globals, c.MaxChecks, c.Dedupe, c.DedupeWindow > 0); err != nil {
		return err
	}
	pipeline, err := buildPipeline(globals, c.Pattern, c.Exclude, c.Where)
	if err != nil {
		return err
	}

	var rot *rotation
	if c.OutputDir != "" {
		if rot, err = newRotation(c.OutputDir); err != nil {
			return outputErrorCommon(globals, "OUTPUT_FAILED", err.Error())
		}
	}

	rt, err := newEngine(globals, c.Selector)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_CONFIG", err.Error(), "check the notify section of your config")
	}

	// subscribe first so nothing the worker emits is missed
	sub := rt.hub.Subscribe(false)
	snap, err := rt.manager.Start(startRequest(globals, c.URL, c.To, c.Interval))
	if err != nil {
		rt.close(context.Background())
		return outputStartError(globals, err)
	}
	globals.Debug("watch started", zap.String("session", snap.SessionID), zap.String("target", snap.Target))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		select {
		case <-ctx.Done():
			globals.Debug("signal received, stopping session")
			rt.manager.Stop()
		case <-rt.manager.Done():
		}
	}()
	go func() {
		<-rt.manager.Done()
		rt.close(context.Background())
	}()

	p := newEventPrinter(globals, pipeline, c.Status)
	p.rot = rot
	p.maxChecks = c.MaxChecks
	p.stop = rt.manager.Stop
	if c.Dedupe {
		p.dedupe = filter.NewDedupeFilter(c.DedupeWindow)
	}
	if rot != nil && globals.Format == "text" && !globals.Quiet {
		fmt.Fprintf(globals.Stderr, "Writing events to %s\n", rot.Path(snap.SessionID))
	}

	var outErr error
	for ev := range sub.C {
		if err := p.handle(ev); err != nil && outErr == nil {
			outErr = err
			rt.manager.Stop()
		}
	}
	if rot != nil {
		if err := rot.Close(); err != nil && outErr == nil {
			outErr = err
		}
	}
	if outErr != nil {
		return outputErrorCommon(globals, "OUTPUT_FAILED", outErr.Error())
	}

	return finishWatch(globals, rt.manager.Status())
}

// finishWatch reports how the session ended.
func finishWatch(globals *Globals, final domain.Snapshot) error {
	switch {
	case final.Status == domain.StatusFailed:
		return outputErrorCommon(globals, "SESSION_FAILED", final.Error)
	case final.StartValue == nil && strings.HasPrefix(final.Error, "initial fetch failed"):
		return outputErrorCommon(globals, "INITIAL_FETCH_FAILED", final.Error,
			"check the URL, or pass --selector if the page is not an Amazon product page")
	}
	if globals.Format == "text" && !globals.Quiet {
		fmt.Fprintln(globals.Stdout)
		return output.WriteSummaryTable(globals.Stdout, final, time.Now())
	}
	return nil
}

func buildPipeline(globals *Globals, pattern string, excludes, where []string) (*filter.Pipeline, error) {
	var re *regexp.Regexp
	if pattern != "" {
		var err error
		if re, err = regexp.Compile(pattern); err != nil {
			return nil, outputErrorCommon(globals, "INVALID_PATTERN", fmt.Sprintf("invalid regex pattern: %s", err))
		}
	}
	var ex []*regexp.Regexp
	for _, p := range excludes {
		x, err := regexp.Compile(p)
		if err != nil {
			return nil, outputErrorCommon(globals, "INVALID_EXCLUDE_PATTERN", fmt.Sprintf("invalid exclude pattern: %s", err))
		}
		ex = append(ex, x)
	}
	var wf *filter.WhereFilter
	if len(where) > 0 {
		var err error
		if wf, err = filter.NewWhereFilter(where); err != nil {
			return nil, outputErrorCommon(globals, "INVALID_WHERE", err.Error(), "use field=value, field~regex or level>=warn")
		}
	}
	return filter.NewPipeline(re, ex, wf), nil
}

// eventPrinter applies the cutoff, file rotation and filters to each event
// before writing it in the selected format.
type eventPrinter struct {
	globals   *Globals
	writer    output.EventWriter
	pipeline  *filter.Pipeline
	dedupe    *filter.DedupeFilter
	rot       *rotation
	maxChecks int
	stop      func() bool
	cutoff    bool
}

func newEventPrinter(globals *Globals, pipeline *filter.Pipeline, showStatus bool) *eventPrinter {
	var w output.EventWriter
	if globals.Format == "ndjson" {
		w = output.NewNDJSONWriter(globals.Stdout)
	} else {
		tw := output.NewTextWriter(globals.Stdout)
		tw.ShowStatus = showStatus
		w = tw
	}
	return &eventPrinter{globals: globals, writer: w, pipeline: pipeline}
}

func (p *eventPrinter) handle(ev domain.Event) error {
	if p.rot != nil {
		if err := p.rot.Write(ev); err != nil {
			return err
		}
	}
	if err := p.checkCutoff(ev); err != nil {
		return err
	}

	if p.globals.Quiet && (ev.Type == domain.EventStatus || ev.Type == domain.EventStats) {
		return nil
	}
	if !p.pipeline.Match(&ev) {
		return nil
	}
	if p.dedupe != nil {
		res := p.dedupe.Check(&ev)
		if !res.ShouldEmit {
			return nil
		}
		if res.Collapsed > 0 && p.globals.Format == "text" {
			fmt.Fprintf(p.globals.Stdout, "           (%d similar lines collapsed)\n", res.Collapsed)
		}
	}
	return p.writer.WriteEvent(ev)
}

func (p *eventPrinter) checkCutoff(ev domain.Event) error {
	if p.maxChecks <= 0 || p.cutoff || ev.Type != domain.EventStats {
		return nil
	}
	if ev.Check < p.maxChecks || !ev.Status.IsActive() {
		return nil
	}
	p.cutoff = true
	if p.stop != nil {
		p.stop()
	}
	if p.globals.Format == "ndjson" {
		return output.NewNDJSONWriter(p.globals.Stdout).WriteCutoff(ev.SessionID, "max_checks", ev.Check)
	}
	_, err := fmt.Fprintf(p.globals.Stderr, "Stopping after %d checks (--max-checks)\n", ev.Check)
	return err
}
