// Package config loads livesync settings from YAML.
//
// A config file is optional; every field has a default. Unknown keys are
// rejected so a typo never silently falls back to a default.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/livesync/internal/database"
	"github.com/roach88/livesync/internal/store"
)

// Storage engine names.
const (
	EngineMemory = "memory"
	EngineSQLite = "sqlite"
)

// Output and log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the top-level settings document.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
	Writes WritesConfig `yaml:"writes"`

	// Output is the CLI output format: "text" or "json".
	Output string `yaml:"output"`
}

// StoreConfig selects the storage engine.
type StoreConfig struct {
	// Engine is "memory" or "sqlite".
	Engine string `yaml:"engine"`

	// Path is the SQLite database file. Required for the sqlite engine.
	Path string `yaml:"path,omitempty"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// WritesConfig sizes the write worker pool.
type WritesConfig struct {
	PoolSize int `yaml:"pool_size"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Store:  StoreConfig{Engine: EngineMemory},
		Log:    LogConfig{Level: "info", Format: FormatText},
		Writes: WritesConfig{PoolSize: database.DefaultPoolSize},
		Output: FormatText,
	}
}

// Load reads path and overlays it on the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document and validates the result. An empty
// document yields the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks enumerated fields and cross-field requirements.
func (c Config) Validate() error {
	switch c.Store.Engine {
	case EngineMemory:
	case EngineSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite engine")
		}
	default:
		return fmt.Errorf("store.engine %q: must be %q or %q", c.Store.Engine, EngineMemory, EngineSQLite)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if !validFormat(c.Log.Format) {
		return fmt.Errorf("log.format %q: must be %q or %q", c.Log.Format, FormatText, FormatJSON)
	}
	if !validFormat(c.Output) {
		return fmt.Errorf("output %q: must be %q or %q", c.Output, FormatText, FormatJSON)
	}
	if c.Writes.PoolSize <= 0 {
		return fmt.Errorf("writes.pool_size must be positive, got %d", c.Writes.PoolSize)
	}
	return nil
}

func validFormat(f string) bool {
	return f == FormatText || f == FormatJSON
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", l.Level, err)
	}
	return level, nil
}

// NewLogger builds a logger writing to w in the configured format.
// An unparseable level falls back to info.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Open creates the configured storage engine. The caller owns it.
func (s StoreConfig) Open() (store.Engine, error) {
	switch s.Engine {
	case EngineMemory, "":
		return store.NewMemory(), nil
	case EngineSQLite:
		eng, err := store.OpenSQLite(s.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store %s: %w", s.Path, err)
		}
		return eng, nil
	default:
		return nil, fmt.Errorf("unknown store engine %q", s.Engine)
	}
}

// DatabaseOptions translates the settings into database options.
func (c Config) DatabaseOptions(logger *slog.Logger) []database.Option {
	opts := []database.Option{database.WithPoolSize(c.Writes.PoolSize)}
	if logger != nil {
		opts = append(opts, database.WithLogger(logger))
	}
	return opts
}
