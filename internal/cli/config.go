package cli

import (
	"encoding/json"
	"fmt"

	"github.com/vburojevic/pricewatch/internal/config"
	"github.com/vburojevic/pricewatch/internal/output"
	"gopkg.in/yaml.v3"
)

// ConfigCmd groups the configuration subcommands
type ConfigCmd struct {
	Show     ConfigShowCmd     `cmd:"" default:"1" help:"Show the effective configuration (secrets masked)"`
	Path     ConfigPathCmd     `cmd:"" help:"Show which config file is in use"`
	Generate ConfigGenerateCmd `cmd:"" help:"Print a sample config file"`
}

type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(globals *Globals) error {
	body, err := yaml.Marshal(globals.Config.Redacted())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if globals.Format == "ndjson" {
		// the yaml keys (and duration strings) double as the record fields
		record := map[string]any{}
		if err := yaml.Unmarshal(body, &record); err != nil {
			return fmt.Errorf("decode config: %w", err)
		}
		record["type"] = "config"
		record["schemaVersion"] = output.SchemaVersion
		return json.NewEncoder(globals.Stdout).Encode(record)
	}

	fmt.Fprintln(globals.Stdout, "Current Configuration:")
	fmt.Fprintln(globals.Stdout)
	_, err = globals.Stdout.Write(body)
	return err
}

type ConfigPathCmd struct{}

// ConfigPathOutput is the NDJSON config_path record
type ConfigPathOutput struct {
	Type          string   `json:"type"`
	SchemaVersion int      `json:"schemaVersion"`
	Path          string   `json:"path"`
	Searched      []string `json:"searched"`
}

func (c *ConfigPathCmd) Run(globals *Globals) error {
	path := config.ConfigFile()
	if globals.Format == "ndjson" {
		return json.NewEncoder(globals.Stdout).Encode(ConfigPathOutput{
			Type:          "config_path",
			SchemaVersion: output.SchemaVersion,
			Path:          path,
			Searched:      config.SearchPaths(),
		})
	}
	if path == "" {
		fmt.Fprintln(globals.Stdout, "No configuration file found. Searched:")
		for _, p := range config.SearchPaths() {
			fmt.Fprintf(globals.Stdout, "  %s\n", p)
		}
		return nil
	}
	fmt.Fprintf(globals.Stdout, "Config file: %s\n", path)
	return nil
}

type ConfigGenerateCmd struct{}

func (c *ConfigGenerateCmd) Run(globals *Globals) error {
	body, err := yaml.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	fmt.Fprintln(globals.Stdout, "# pricewatch configuration file")
	fmt.Fprintln(globals.Stdout, "# Save as .pricewatch.yaml in your project or home directory.")
	fmt.Fprintln(globals.Stdout, "# Secrets can also come from RESEND_API_KEY and TELEGRAM_BOT_TOKEN.")
	_, err = globals.Stdout.Write(body)
	return err
}
