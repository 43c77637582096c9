package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Replay.Backend != BackendRecorder {
		t.Errorf("Replay.Backend = %q, want %q", cfg.Replay.Backend, BackendRecorder)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
[log]
level = "debug"
format = "json"

[replay]
backend = "noop"
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != FormatJSON {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Replay.Backend != BackendNoop {
		t.Errorf("Replay.Backend = %q", cfg.Replay.Backend)
	}
	if cfg.Trace.Codec != "yaml" {
		t.Errorf("Trace.Codec = %q, want default yaml", cfg.Trace.Codec)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		invalid bool
	}{
		{"unknown key", "[log]\ncolour = true\n", true},
		{"bad level", "[log]\nlevel = \"loud\"\n", true},
		{"bad format", "[log]\nformat = \"xml\"\n", true},
		{"bad codec", "[trace]\ncodec = \"json\"\n", true},
		{"bad backend", "[replay]\nbackend = \"metal\"\n", true},
		{"syntax", "[log\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatal("Parse() succeeded")
			}
			if got := errors.Is(err, ErrInvalid); got != tt.invalid {
				t.Errorf("errors.Is(err, ErrInvalid) = %v, want %v (err = %v)", got, tt.invalid, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wgtrace.toml")
	if err := os.WriteFile(path, []byte("[trace]\ndir = \"captures\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, want := cfg.TracePath("frame.yaml"), filepath.Join("captures", "frame.yaml"); got != want {
		t.Errorf("TracePath() = %q, want %q", got, want)
	}
	abs := filepath.Join(dir, "frame.yaml")
	if got := cfg.TracePath(abs); got != abs {
		t.Errorf("TracePath(abs) = %q, want unchanged", got)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want os.ErrNotExist", err)
	}
}
