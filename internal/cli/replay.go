package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fhn666/wgpu"
	"github.com/fhn666/wgpu/hal/recorder"
	"github.com/fhn666/wgpu/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Backend string // overrides the config when set
}

// ReplaySession is the replay result of one encoder.
type ReplaySession struct {
	ID                 trace.Ref `json:"id"`
	Label              string    `json:"label"`
	Finished           bool      `json:"finished"`
	BufferTransitions  int       `json:"buffer_transitions"`
	TextureTransitions int       `json:"texture_transitions"`
	Ops                []string  `json:"ops,omitempty"`
}

// ReplayResult is the output of the replay command.
type ReplayResult struct {
	Trace    string          `json:"trace"`
	Backend  string          `json:"backend"`
	Sessions []ReplaySession `json:"sessions"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <trace>",
		Short: "Replay a trace through barrier insertion",
		Long: `Recreate every resource of a trace and re-record its encoders. Each pass
is validated again and the barriers it needs are emitted on the selected
backend.

Backends:
  recorder - keep every emitted call in memory and print it
  noop     - encode onto a device of the gogpu noop HAL

Examples:
  wgtrace replay frame.yaml
  wgtrace replay frame.yaml --backend noop --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd.OutOrStdout(), args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Backend, "backend", "", "replay backend (recorder|noop)")

	return cmd
}

func runReplay(opts *ReplayOptions, w io.Writer, name string) (err error) {
	t, err := opts.readTrace(name)
	if err != nil {
		return err
	}
	backendName := opts.Backend
	if backendName == "" {
		backendName = opts.Config.Replay.Backend
	}
	b, err := newBackend(backendName)
	if err != nil {
		return err
	}

	replay, err := trace.Play(t, b.options()...)
	defer func() {
		var sessions []*trace.Session
		if replay != nil {
			sessions = replay.Sessions
		}
		if cerr := b.close(sessions); err == nil {
			err = cerr
		}
	}()
	if err != nil {
		return err
	}
	wgpu.Logger().Info("replayed trace", "trace", t.ID, "backend", backendName, "sessions", len(replay.Sessions))

	result := ReplayResult{Trace: t.ID.String(), Backend: backendName}
	for _, s := range replay.Sessions {
		rs := ReplaySession{ID: s.Trace, Label: s.Label, Finished: s.Finished}
		for _, raw := range s.Raws {
			buffers, textures := b.transitions(raw)
			rs.BufferTransitions += buffers
			rs.TextureTransitions += textures
			if rec, ok := raw.(*recorder.CommandBuffer); ok {
				for _, op := range rec.Ops() {
					rs.Ops = append(rs.Ops, op.String())
				}
			}
		}
		result.Sessions = append(result.Sessions, rs)
	}

	if opts.Format == "json" {
		return writeJSON(w, result)
	}
	return writeReplayText(w, replay, result)
}

func writeReplayText(w io.Writer, replay *trace.Replay, r ReplayResult) error {
	for i, s := range r.Sessions {
		if _, err := fmt.Fprintf(w, "session %v %q: finished=%t buffer_transitions=%d texture_transitions=%d\n",
			s.ID, s.Label, s.Finished, s.BufferTransitions, s.TextureTransitions); err != nil {
			return err
		}
		for _, raw := range replay.Sessions[i].Raws {
			rec, ok := raw.(*recorder.CommandBuffer)
			if !ok {
				continue
			}
			if _, err := io.WriteString(w, rec.String()); err != nil {
				return err
			}
		}
	}
	return nil
}
