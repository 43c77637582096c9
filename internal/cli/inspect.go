package cli

import (
	"github.com/spf13/cobra"

	"github.com/fhn666/wgpu/trace"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <trace>",
		Short: "Summarize a trace",
		Long: `Print the resources a trace creates and, per encoder, the passes,
commands and debug labels it records.

Examples:
  wgtrace inspect frame.yaml
  wgtrace inspect frame.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := rootOpts.readTrace(args[0])
			if err != nil {
				return err
			}
			s := trace.Summarize(t)
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			return s.WriteText(cmd.OutOrStdout())
		},
	}
}
