// Package config loads wgtrace settings from TOML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid is returned for settings outside their allowed values.
var ErrInvalid = errors.New("config: invalid")

// Log formats.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatLogfmt = "logfmt"
)

// Replay backends.
const (
	BackendRecorder = "recorder"
	BackendNoop     = "noop"
)

// Config holds every wgtrace setting.
type Config struct {
	Log    Log    `toml:"log"`
	Trace  Trace  `toml:"trace"`
	Replay Replay `toml:"replay"`
}

// Log configures diagnostic output on stderr.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Trace configures where traces are read from.
type Trace struct {
	// Dir resolves relative trace paths. Empty means the working directory.
	Dir string `toml:"dir"`
	// Codec names the trace encoding. Only "yaml" exists.
	Codec string `toml:"codec"`
}

// Replay configures the backend commands are replayed onto.
type Replay struct {
	Backend string `toml:"backend"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Log:    Log{Level: "warn", Format: FormatText},
		Trace:  Trace{Codec: "yaml"},
		Replay: Replay{Backend: BackendRecorder},
	}
}

// Load reads and validates the file at path. Keys missing from the file
// keep their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalid, strict.String())
		}
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every enumerated setting.
func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.Log.Level)
	}
	switch c.Log.Format {
	case FormatText, FormatJSON, FormatLogfmt:
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.Log.Format)
	}
	if c.Trace.Codec != "yaml" {
		return fmt.Errorf("%w: trace codec %q", ErrInvalid, c.Trace.Codec)
	}
	switch c.Replay.Backend {
	case BackendRecorder, BackendNoop:
	default:
		return fmt.Errorf("%w: replay backend %q", ErrInvalid, c.Replay.Backend)
	}
	return nil
}

// TracePath resolves name against the trace directory.
func (c Config) TracePath(name string) string {
	if c.Trace.Dir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Trace.Dir, name)
}
