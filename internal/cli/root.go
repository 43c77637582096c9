// Package cli implements the wgtrace commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/fhn666/wgpu"
	"github.com/fhn666/wgpu/internal/config"
	"github.com/fhn666/wgpu/trace"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Format     string // "json" | "text"

	// Config is loaded before any subcommand runs.
	Config config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for wgtrace.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "wgtrace",
		Short: "Inspect and replay command recording traces",
		Long: `wgtrace reads traces of recorded command encoders, summarizes them, and
replays them through barrier insertion onto a command buffer backend.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a TOML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// load reads the config file and installs the logger.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg := config.Default()
	if o.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(o.ConfigPath); err != nil {
			return err
		}
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	o.Config = cfg

	logger, err := NewLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}
	wgpu.SetLogger(logger)
	return nil
}

// readTrace loads the trace named on the command line.
func (o *RootOptions) readTrace(name string) (*trace.Trace, error) {
	return trace.ReadFile(o.Config.TracePath(name), trace.YAMLCodec{})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
