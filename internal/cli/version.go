package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/umicp/internal/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print library, wire, and build versions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			info := version.GetBuildInfo()
			if f.Format == "json" {
				return f.Success(info)
			}
			return f.Success(info.String())
		},
	}
}
