// Package cli implements the pricewatch commands.
package cli

import (
	"io"
	"os"

	"github.com/vburojevic/pricewatch/internal/config"
	"go.uber.org/zap"
)

// Set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
)

// CLI is the root command tree.
type CLI struct {
	Format     string `short:"f" default:"${config_format}" enum:"ndjson,text" help:"Output format: ndjson or text"`
	Quiet      bool   `short:"q" default:"${config_quiet}" help:"Suppress status and stats records"`
	Verbose    bool   `short:"v" default:"${config_verbose}" help:"Debug logging to stderr as JSON"`
	ConfigFile string `name:"config" type:"existingfile" help:"Use this config file instead of searching for one"`

	Watch   WatchCmd   `cmd:"" help:"Track a product page and alert on every price change"`
	Check   CheckCmd   `cmd:"" help:"Fetch the current price once"`
	UI      UICmd      `cmd:"" name:"ui" help:"Interactive terminal UI"`
	Serve   ServeCmd   `cmd:"" help:"HTTP control surface with a websocket event stream"`
	Schema  SchemaCmd  `cmd:"" help:"Print JSON Schemas of the NDJSON records"`
	Config  ConfigCmd  `cmd:"" help:"Show or generate configuration"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// Globals is shared by every command.
type Globals struct {
	Format  string
	Quiet   bool
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
	Config  *config.Config

	logger *zap.Logger
}

// NewGlobalsWithConfig merges parsed flags with the loaded configuration.
// An explicit --config file replaces the searched one.
func NewGlobalsWithConfig(c *CLI, cfg *config.Config) (*Globals, error) {
	if c.ConfigFile != "" {
		loaded, err := config.LoadFromFile(c.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return &Globals{
		Format:  c.Format,
		Quiet:   c.Quiet,
		Verbose: c.Verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Config:  cfg,
	}, nil
}

// Logger returns the process logger, built on first use.
func (g *Globals) Logger() *zap.Logger {
	if g.logger == nil {
		g.logger = newLogger(g.Verbose)
	}
	return g.logger
}

// Debug logs at debug level when --verbose is set.
func (g *Globals) Debug(msg string, fields ...zap.Field) {
	g.Logger().Debug(msg, fields...)
}

// Sync flushes the logger.
func (g *Globals) Sync() {
	if g.logger != nil {
		_ = g.logger.Sync()
	}
}
