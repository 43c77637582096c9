package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fhn666/wgpu"
	"github.com/fhn666/wgpu/trace"
)

// Version defaults to the module version and may be overridden at build
// time with -ldflags "-X".
var Version = wgpu.Version

// VersionInfo is the JSON form of the version command.
type VersionInfo struct {
	Version     string `json:"version"`
	TraceFormat int    `json:"trace_format"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print the wgtrace version",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{Version: Version, TraceFormat: trace.FormatVersion}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wgtrace %s (trace format %d)\n", info.Version, info.TraceFormat)
			return err
		},
	}
}
