package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/derive/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove all artifacts and the content store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keepStore, _ := cmd.Flags().GetBool("keep-store")
			return c.app.Clean(cmd.Context(), app.CleanOptions{KeepStore: keepStore})
		},
	}
	cmd.Flags().Bool("keep-store", false, "Only remove artifacts")
	return cmd
}
