package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/derive/internal/app"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run a pass whenever source files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			verbose, jsonLogs := logFlags(cmd)
			return c.app.Watch(cmd.Context(), app.WatchOptions{
				Verbose: verbose,
				JSON:    jsonLogs,
			})
		},
	}
}
