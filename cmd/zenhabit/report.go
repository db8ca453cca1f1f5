package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/warp/zenhabit/report"
)

func newReportCmd() *cobra.Command {
	var month int
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a summary of a month and the year",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			a, err := openApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			state := a.session.State()
			if !cmd.Flags().Changed("month") {
				month = state.CurrentMonth
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Render(state, month))
			return nil
		},
	}
	cmd.Flags().IntVarP(&month, "month", "m", 0, "month to show, 0-11 (default: the viewed month)")
	return cmd
}
