package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Global settings
	Format  string `mapstructure:"format" yaml:"format"`
	Quiet   bool   `mapstructure:"quiet" yaml:"quiet"`
	Verbose bool   `mapstructure:"verbose" yaml:"verbose"`

	// Default values for commands
	Defaults DefaultsConfig `mapstructure:"defaults" yaml:"defaults"`
	Fetch    FetchConfig    `mapstructure:"fetch" yaml:"fetch"`
	Loop     LoopConfig     `mapstructure:"loop" yaml:"loop"`
	Notify   NotifyConfig   `mapstructure:"notify" yaml:"notify"`
	Serve    ServeConfig    `mapstructure:"serve" yaml:"serve"`
}

// DefaultsConfig pre-fills session inputs
type DefaultsConfig struct {
	URL       string        `mapstructure:"url" yaml:"url"`
	Recipient string        `mapstructure:"recipient" yaml:"recipient"`
	Interval  time.Duration `mapstructure:"interval" yaml:"interval"`
	Selector  string        `mapstructure:"selector" yaml:"selector"`
}

// FetchConfig tunes the page fetcher
type FetchConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent    string        `mapstructure:"user_agent" yaml:"user_agent"`
	MinGap       time.Duration `mapstructure:"min_gap" yaml:"min_gap"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// LoopConfig tunes the tracking loop
type LoopConfig struct {
	// Slice bounds how long a stop request can wait during a sleep.
	Slice time.Duration `mapstructure:"slice" yaml:"slice"`
}

// NotifyConfig selects alert channels
type NotifyConfig struct {
	Timeout      time.Duration  `mapstructure:"timeout" yaml:"timeout"`
	From         string         `mapstructure:"from" yaml:"from"`
	ResendAPIKey string         `mapstructure:"resend_api_key" yaml:"resend_api_key"`
	Telegram     TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
	Command      string         `mapstructure:"command" yaml:"command"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token" yaml:"token"`
	ChatID int64  `mapstructure:"chat_id" yaml:"chat_id"`
}

type ServeConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Format:  "ndjson",
		Quiet:   false,
		Verbose: false,
		Defaults: DefaultsConfig{
			Interval: 60 * time.Second,
		},
		Fetch: FetchConfig{
			Timeout:      10 * time.Second,
			MinGap:       2 * time.Second,
			MaxBodyBytes: 2 << 20,
		},
		Loop: LoopConfig{
			Slice: 100 * time.Millisecond,
		},
		Notify: NotifyConfig{
			Timeout: 15 * time.Second,
			From:    "onboarding@resend.dev",
		},
		Serve: ServeConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// Redacted returns a copy with secrets masked, for display
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	c.Notify.ResendAPIKey = mask(c.Notify.ResendAPIKey)
	c.Notify.Telegram.Token = mask(c.Notify.Telegram.Token)
	return c
}

var envBindings = map[string]string{
	"format":             "PRICEWATCH_FORMAT",
	"quiet":              "PRICEWATCH_QUIET",
	"verbose":            "PRICEWATCH_VERBOSE",
	"defaults.url":       "PRICEWATCH_URL",
	"defaults.recipient": "PRICEWATCH_RECIPIENT",
	"defaults.interval":  "PRICEWATCH_INTERVAL",
	"defaults.selector":  "PRICEWATCH_SELECTOR",
	"notify.from":        "PRICEWATCH_FROM",
	"notify.command":     "PRICEWATCH_NOTIFY_COMMAND",
	"serve.addr":         "PRICEWATCH_ADDR",
}

func bindEnv(v *viper.Viper) {
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	_ = v.BindEnv("notify.resend_api_key", "PRICEWATCH_RESEND_API_KEY", "RESEND_API_KEY")
	_ = v.BindEnv("notify.telegram.token", "PRICEWATCH_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("notify.telegram.chat_id", "PRICEWATCH_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("format", cfg.Format)
	v.SetDefault("quiet", cfg.Quiet)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("defaults.url", cfg.Defaults.URL)
	v.SetDefault("defaults.recipient", cfg.Defaults.Recipient)
	v.SetDefault("defaults.interval", cfg.Defaults.Interval)
	v.SetDefault("defaults.selector", cfg.Defaults.Selector)
	v.SetDefault("fetch.timeout", cfg.Fetch.Timeout)
	v.SetDefault("fetch.user_agent", cfg.Fetch.UserAgent)
	v.SetDefault("fetch.min_gap", cfg.Fetch.MinGap)
	v.SetDefault("fetch.max_body_bytes", cfg.Fetch.MaxBodyBytes)
	v.SetDefault("loop.slice", cfg.Loop.Slice)
	v.SetDefault("notify.timeout", cfg.Notify.Timeout)
	v.SetDefault("notify.from", cfg.Notify.From)
	v.SetDefault("notify.resend_api_key", cfg.Notify.ResendAPIKey)
	v.SetDefault("notify.telegram.token", cfg.Notify.Telegram.Token)
	v.SetDefault("notify.telegram.chat_id", cfg.Notify.Telegram.ChatID)
	v.SetDefault("notify.command", cfg.Notify.Command)
	v.SetDefault("serve.addr", cfg.Serve.Addr)
}

// Load loads configuration from the first config file found and the environment
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Environment variables
	v.SetEnvPrefix("PRICEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	cfg := Default()
	setDefaults(v, cfg)

	if path := findConfigFile(); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific file. Environment
// variables still override file values.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// ConfigFile returns the path of the config file Load would use, or ""
func ConfigFile() string {
	return findConfigFile()
}

// SearchPaths lists config file candidates in precedence order
func SearchPaths() []string {
	paths := []string{
		".pricewatch.yaml",
		".pricewatch.yml",
		"pricewatch.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".pricewatch.yaml"),
			filepath.Join(home, ".pricewatch.yml"))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "pricewatch", "pricewatch.yaml"))
	}
	return append(paths, "/etc/pricewatch/pricewatch.yaml")
}

func findConfigFile() string {
	for _, p := range SearchPaths() {
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

// applyEnvOverrides applies the environment on top of an explicitly loaded file
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PRICEWATCH_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("PRICEWATCH_QUIET"); v == "true" || v == "1" {
		cfg.Quiet = true
	}
	if v := os.Getenv("PRICEWATCH_VERBOSE"); v == "true" || v == "1" {
		cfg.Verbose = true
	}
	if v := os.Getenv("PRICEWATCH_RECIPIENT"); v != "" {
		cfg.Defaults.Recipient = v
	}
	if v := os.Getenv("PRICEWATCH_URL"); v != "" {
		cfg.Defaults.URL = v
	}
	if v := os.Getenv("PRICEWATCH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Defaults.Interval = d
		}
	}
	if v := firstEnv("PRICEWATCH_RESEND_API_KEY", "RESEND_API_KEY"); v != "" {
		cfg.Notify.ResendAPIKey = v
	}
	if v := firstEnv("PRICEWATCH_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notify.Telegram.Token = v
	}
	if v := firstEnv("PRICEWATCH_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Notify.Telegram.ChatID = id
		}
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// ErrInvalidFormat is returned by Validate for unknown output formats
var ErrInvalidFormat = errors.New("format must be ndjson or text")

// Validate checks values that kong cannot check on its own
func (c *Config) Validate() error {
	if c.Format != "ndjson" && c.Format != "text" {
		return ErrInvalidFormat
	}
	return nil
}
