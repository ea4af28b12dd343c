package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/vburojevic/pricewatch/internal/output"
	"github.com/vburojevic/pricewatch/internal/server"
)

// ServeCmd exposes the session manager over HTTP.
type ServeCmd struct {
	Addr     string `help:"Listen address (default from config, 127.0.0.1:8080)"`
	Selector string `help:"CSS selector for the price element"`
}

// ListeningOutput announces the bound address.
type ListeningOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Addr          string `json:"addr"`
	Events        string `json:"events"`
}

// Run executes the serve command
func (c *ServeCmd) Run(globals *Globals) error {
	addr := c.Addr
	if addr == "" {
		addr = globals.Config.Serve.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newEngine(globals, c.Selector)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_CONFIG", err.Error(), "check the notify section of your config")
	}
	defer rt.close(context.Background())

	srv := server.New(rt.manager, rt.hub, globals.Logger().Named("server"))
	err = srv.ListenAndServe(ctx, addr, func(a net.Addr) {
		announceListening(globals, a.String())
	})
	if err != nil {
		return outputErrorCommon(globals, "SERVE_FAILED", err.Error(), "pick a free port with --addr")
	}
	return nil
}

func announceListening(globals *Globals, addr string) {
	if globals.Quiet {
		return
	}
	if globals.Format == "ndjson" {
		_ = json.NewEncoder(globals.Stdout).Encode(ListeningOutput{
			Type:          "listening",
			SchemaVersion: output.SchemaVersion,
			Addr:          addr,
			Events:        "ws://" + addr + "/api/events",
		})
		return
	}
	fmt.Fprintf(globals.Stdout, "Listening on http://%s\n", addr)
	fmt.Fprintf(globals.Stdout, "Events:      ws://%s/api/events\n", addr)
	fmt.Fprintln(globals.Stdout, "Press Ctrl+C to stop")
}
