package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/zenhabit/persist"
)

func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored state as a JSON backup",
		Long: `Write the stored state as an indented JSON backup.

Examples:
  # To stdout
  zenhabit export

  # To a dated file in the current directory
  zenhabit export --out auto`,
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

			data, err := a.session.Export()
			if err != nil {
				return err
			}
			switch out {
			case "", "-":
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			case "auto":
				out = persist.BackupFileName(time.Now())
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write backup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d habits to %s\n", len(a.session.State().Habits), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", `output file ("-" for stdout, "auto" for a dated name)`)
	return cmd
}
