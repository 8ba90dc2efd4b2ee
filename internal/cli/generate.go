package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/mrelo/internal/adapters/repository"
	"github.com/okian/mrelo/internal/replay"
)

func newGenerateCmd() *cobra.Command {
	var (
		gc    replay.GenerateConfig
		start string
		out   string
		store bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic season",
		Long: `Generate builds a season of random pairings between teams with hidden
strengths and writes it as CSV, or imports it directly with --import.

A fixed --seed always yields the same season, which makes it a repeatable
input for tune and replay.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if gc.Start, err = parseDay(start); err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			games := replay.Generate(gc)

			if store {
				s, err := openStore(cmd, cfg)
				if err != nil {
					return err
				}
				defer func() { _ = s.Close() }()
				n, err := s.Import(cmd.Context(), games)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d games\n", n)
				return nil
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			return repository.WriteGamesCSV(w, games)
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&gc.Teams, "teams", replay.DefaultTeams, "number of teams (rounded up to even)")
	fs.IntVar(&gc.Rounds, "rounds", replay.DefaultRounds, "days of play")
	fs.IntVar(&gc.Unplayed, "unplayed", 0, "trailing rounds left without scores")
	fs.StringVar(&start, "start", "", "date of the first round (YYYY-MM-DD)")
	fs.StringVar(&gc.Season, "season-label", "", "season label (default: year of --start)")
	fs.Uint64Var(&gc.Seed, "game-seed", 0, "random seed (0 picks one)")
	fs.Float64Var(&gc.Spread, "spread", replay.DefaultSpread, "standard deviation of team strength in points")
	fs.Float64Var(&gc.HomeEdge, "home-edge", replay.DefaultHomeEdge, "points added to the home side")
	fs.Float64Var(&gc.Noise, "noise", replay.DefaultNoise, "standard deviation of game margin noise")
	fs.StringVarP(&out, "output", "o", "", "write CSV to this file instead of stdout")
	fs.BoolVar(&store, "import", false, "import into the games table instead of writing CSV")
	return cmd
}
