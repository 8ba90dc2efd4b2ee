package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/mrelo/internal/adapters/repository"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import games from CSV into the games table",
		Long: `Import appends every row of a CSV schedule to the games table.

Required columns are date, team1, team2, score1 and score2; season, neutral
and match_id are optional. Empty scores mark games not played yet. Use "-"
to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				r = f
			}
			games, err := repository.ReadGamesCSV(r)
			if err != nil {
				return err
			}

			store, err := openStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.Import(cmd.Context(), games)
			if err != nil {
				return err
			}
			total, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d games (%d stored)\n", n, total)
			return nil
		},
	}
}
