package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/vburojevic/pricewatch/internal/cli"
	"github.com/vburojevic/pricewatch/internal/config"
)

const quickStart = `pricewatch - track a product page and get alerted on every price change

Quick start:
  pricewatch check -u URL                       Fetch the current price once
  pricewatch watch -u URL -t you@example.com    Track and stream events
  pricewatch ui                                 Interactive terminal UI
  pricewatch serve                              HTTP API + websocket events

For help:
  pricewatch --help                             All commands and flags
  pricewatch schema                             NDJSON record schemas
`

func main() {
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	// a missing .env is normal
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using ndjson\n", err)
		cfg.Format = "ndjson"
	}

	var c cli.CLI
	ctx := kong.Parse(&c,
		kong.Name("pricewatch"),
		kong.Description("Track a product page and alert on every price drop or rise"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Vars{
			"config_format":  cfg.Format,
			"config_quiet":   strconv.FormatBool(cfg.Quiet),
			"config_verbose": strconv.FormatBool(cfg.Verbose),
		},
	)

	globals, err := cli.NewGlobalsWithConfig(&c, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	err = ctx.Run(globals)
	globals.Sync()
	if err != nil {
		os.Exit(1)
	}
}
