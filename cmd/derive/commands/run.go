package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/derive/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [changed files...]",
		Short: "Run one build pass",
		Long: "Run one build pass. The given files form the affected set; " +
			"without files every source unit is treated as affected.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			affected, _ := cmd.Flags().GetStringSlice("affected")
			verbose, jsonLogs := logFlags(cmd)

			return c.app.Run(cmd.Context(), app.RunOptions{
				Affected: append(affected, args...),
				Verbose:  verbose,
				JSON:     jsonLogs,
			})
		},
	}
	cmd.Flags().StringSliceP("affected", "a", nil, "Changed source files (repeatable or comma separated)")
	return cmd
}
