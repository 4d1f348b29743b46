// Package config loads the optional .designer.yaml settings file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/DeusData/designer-mcp/internal/patch"
)

// FileName is looked up in the directory of the loaded source file.
const FileName = ".designer.yaml"

// Config holds user-overridable designer settings.
type Config struct {
	Designer DesignerConfig `yaml:"designer"`
}

// DesignerConfig holds the designer settings proper.
type DesignerConfig struct {
	// QuoteStyle for inserted widget ids: single, double or auto.
	// Default: auto.
	QuoteStyle *string `yaml:"quote_style"`

	// SkipFrames is the number of leading stack frames dropped before
	// correlating an event-stream stack trace. Default: 0.
	SkipFrames *int `yaml:"skip_frames"`

	// InternalPaths are extra path segments treated as instrumentation
	// frames, added to the built-in set.
	InternalPaths []string `yaml:"internal_paths"`

	// Transformers run on the patched text before it is written, in order.
	// Default: none.
	Transformers []string `yaml:"transformers"`

	// Journal is the SQLite file recording saves. Empty disables it.
	Journal *string `yaml:"journal"`

	// Workers bounds concurrent files in roundtrip verification.
	// Default: GOMAXPROCS.
	Workers *int `yaml:"workers"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{}
}

// Load reads FileName from dir. It returns the defaults if the file does
// not exist or cannot be parsed.
func Load(dir string) *Config {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Warn("config.invalid", "path", path, "err", err)
		return Default()
	}
	return cfg
}

// LoadFile reads an explicitly named configuration file. Unlike Load, a
// missing or malformed file is an error.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// EffectiveQuoteStyle returns the configured quote style, or auto if unset
// or unknown.
func (c *Config) EffectiveQuoteStyle() patch.QuoteStyle {
	if c.Designer.QuoteStyle == nil {
		return patch.QuoteAuto
	}
	q, err := patch.ParseQuoteStyle(*c.Designer.QuoteStyle)
	if err != nil {
		slog.Warn("config.quote_style", "err", err)
		return patch.QuoteAuto
	}
	return q
}

// EffectiveSkipFrames returns the configured frame skip count, or 0.
func (c *Config) EffectiveSkipFrames() int {
	if c.Designer.SkipFrames != nil && *c.Designer.SkipFrames > 0 {
		return *c.Designer.SkipFrames
	}
	return 0
}

// EffectiveJournal returns the journal path, or "" when disabled.
func (c *Config) EffectiveJournal() string {
	if c.Designer.Journal == nil {
		return ""
	}
	return *c.Designer.Journal
}

// EffectiveWorkers returns the roundtrip worker bound, or GOMAXPROCS.
func (c *Config) EffectiveWorkers() int {
	if c.Designer.Workers != nil && *c.Designer.Workers > 0 {
		return *c.Designer.Workers
	}
	return runtime.GOMAXPROCS(0)
}
