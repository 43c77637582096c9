package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/fhn666/wgpu"
	"github.com/fhn666/wgpu/trace"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <trace>",
		Short: "Summarize a trace every time it is rewritten",
		Long: `Print the summary of a trace, then print it again whenever the file is
written or replaced, until interrupted. Traces that fail to decode are
reported and skipped.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Config.TracePath(args[0])
			w := cmd.OutOrStdout()
			summarize := func() error {
				t, err := trace.ReadFile(path, trace.YAMLCodec{})
				if err != nil {
					wgpu.Logger().Warn("watch: unreadable trace", "path", path, "err", err)
					return nil
				}
				s := trace.Summarize(t)
				if rootOpts.Format == "json" {
					return writeJSON(w, s)
				}
				return s.WriteText(w)
			}
			if err := summarize(); err != nil {
				return err
			}
			return watchFile(cmd.Context(), path, summarize)
		},
	}
}

// watchFile calls onChange after every write, create or rename onto path
// until ctx is done. The parent directory is watched so that files
// replaced by rename are followed.
func watchFile(ctx context.Context, path string, onChange func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			wgpu.Logger().Debug("watch: changed", "path", path, "op", ev.Op)
			if err := onChange(); err != nil {
				return err
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
}
