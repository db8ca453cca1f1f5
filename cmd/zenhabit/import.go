package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored state with a JSON backup",
		Long: `Replace the stored state with a JSON backup produced by "export".
The file is validated first; a malformed backup changes nothing.

Examples:
  zenhabit import zenhabit-backup-2026-03-01.json
  cat backup.json | zenhabit import -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read backup: %w", err)
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			a, err := openApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			state, err := a.session.Import(data)
			if err != nil {
				a.Close(cmd.Context())
				return fmt.Errorf("invalid backup: %w", err)
			}
			if err := a.Close(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d habits for %d\n", len(state.Habits), state.Year)
			return nil
		},
	}
}
