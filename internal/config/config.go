// Package config loads the gefilte TOML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk configuration. Zero fields fall back to Default.
type Config struct {
	Output    OutputConfig    `toml:"output"`
	Generator GeneratorConfig `toml:"generator"`
	Logging   LoggingConfig   `toml:"logging"`
	Lint      LintConfig      `toml:"lint"`
}

// OutputConfig controls where and how the build command writes.
type OutputConfig struct {
	Path   string `toml:"path"`   // "-" writes to stdout
	Format string `toml:"format"` // "xml", "json" or "api"
}

// GeneratorConfig overrides the provenance comment in the XML feed.
type GeneratorConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	URL     string `toml:"url"`
}

// LoggingConfig mirrors the usual level/format pair.
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text or json
}

// LintConfig lists which finding kinds make lint fail.
type LintConfig struct {
	FailOn []string `toml:"fail_on"`
}

// Formats accepted by OutputConfig.Format.
const (
	FormatXML  = "xml"
	FormatJSON = "json"
	FormatAPI  = "api"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Output:  OutputConfig{Path: "mailFilters.xml", Format: FormatXML},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Lint:    LintConfig{FailOn: []string{"catch-all", "conflict"}},
	}
}

// Load reads path over the defaults. Unknown keys are logged and ignored.
func Load(path string, logger *slog.Logger) (Config, error) {
	cfg := Default()
	content, err := os.ReadFile(path) // #nosec G304 - path supplied by the operator
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	meta, err := toml.Decode(string(content), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 && logger != nil {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		logger.Warn("config contains unknown keys", slog.String("path", path), slog.Any("keys", keys))
	}
	cfg.trim()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) trim() {
	c.Output.Path = strings.TrimSpace(c.Output.Path)
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	c.Generator.Name = strings.TrimSpace(c.Generator.Name)
	c.Generator.Version = strings.TrimSpace(c.Generator.Version)
	c.Generator.URL = strings.TrimSpace(c.Generator.URL)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// Validate rejects values the CLI cannot act on.
func (c Config) Validate() error {
	switch c.Output.Format {
	case FormatXML, FormatJSON, FormatAPI:
	default:
		return fmt.Errorf("output.format must be xml, json or api, got %q", c.Output.Format)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	for _, field := range []string{c.Generator.Name, c.Generator.Version, c.Generator.URL} {
		if strings.Contains(field, "--") {
			return fmt.Errorf("generator fields must not contain \"--\": %q", field)
		}
	}
	return nil
}

// ParseLevel maps a level name to slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}
