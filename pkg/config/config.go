// Package config loads the daemon configuration from an optional TOML
// file with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config is the full daemon configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `toml:"addr"`

	// DatabaseURL enables the durable telemetry archive when set.
	// Accepts the same DSNs as archive.Open (sqlite: or postgres:).
	DatabaseURL string `toml:"database_url"`

	Log       Log       `toml:"log"`
	Trace     Trace     `toml:"trace"`
	Tokenizer Tokenizer `toml:"tokenizer"`
	Watch     Watch     `toml:"watch"`
}

// Log configures structured logging.
type Log struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// Trace configures OpenTelemetry tracing.
type Trace struct {
	Stdout bool `toml:"stdout"`
}

// Tokenizer configures the cached tokenizer registry.
type Tokenizer struct {
	// Rewrites maps served model names to tokenizer model names, for
	// models that share an encoding under a different name.
	Rewrites map[string]string `toml:"rewrites"`
}

// Watch configures the optional workspace file watcher.
type Watch struct {
	Enabled    bool     `toml:"enabled"`
	Paths      []string `toml:"paths"`
	DebounceMS int      `toml:"debounce_ms"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Addr: ":8008",
		Log:  Log{Level: "info"},
		Watch: Watch{
			DebounceMS: 200,
		},
	}
}

// Load reads path (TOML) over the defaults, applies environment overrides,
// and validates the result. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets GHOSTD_* variables override file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("GHOSTD_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("GHOSTD_DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("GHOSTD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("GHOSTD_LOG_JSON"); v != "" {
		c.Log.JSON, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("GHOSTD_TRACE_STDOUT"); v != "" {
		c.Trace.Stdout, _ = strconv.ParseBool(v)
	}
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if c.Watch.Enabled && len(c.Watch.Paths) == 0 {
		return fmt.Errorf("watch enabled but no paths configured")
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch debounce_ms must be >= 0")
	}
	return nil
}
