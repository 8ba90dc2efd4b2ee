package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/mrelo/internal/domain/elo"
	"github.com/okian/mrelo/internal/domain/evaluation"
	"github.com/okian/mrelo/internal/domain/rating"
)

var enrichColumns = []string{
	"date", "season", "team1", "team2", "score1", "score2",
	"elo_pre1", "elo_pre2", "elo_prob1", "elo_post1", "elo_post2",
}

func newEnrichCmd() *cobra.Command {
	var (
		filter filterFlags
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Rate the stored schedule and print pre and post ratings",
		Long: `Enrich rates the stored games in play order with the configured
parameters and prints every game with its ratings and home win probability.

The season and date filters narrow the games that are rated; --team only
narrows the printed rows so ratings still reflect every opponent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			set, err := cfg.Params()
			if err != nil {
				return err
			}
			method, err := cfg.Method()
			if err != nil {
				return err
			}
			f, err := filter.filter()
			if err != nil {
				return err
			}
			team := f.Team
			f.Team = ""

			store, err := openStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			matches, err := store.Load(cmd.Context(), f)
			if err != nil {
				return err
			}
			games := rating.Schedule(matches)
			results, err := elo.Enrich(games, set, elo.WithMOVMethod(method))
			if err != nil {
				return err
			}

			var (
				rows [][]any
				y, p []float64
			)
			for i, g := range games {
				if g.Played() {
					y = append(y, g.Win1())
					p = append(p, results[i].Prob1)
				}
				if team != "" && g.Team1 != team && g.Team2 != team {
					continue
				}
				r := results[i]
				rows = append(rows, []any{
					matches[i].PlayedAt, matches[i].SeasonKey(), g.Team1, g.Team2, g.Score1, g.Score2,
					round(r.Pre1, 2), round(r.Pre2, 2), round(r.Prob1, 4), round(r.Post1, 2), round(r.Post2, 2),
				})
			}
			if limit > 0 && len(rows) > limit {
				rows = rows[len(rows)-limit:]
			}

			out := cmd.OutOrStdout()
			if err := render(out, format, enrichColumns, rows); err != nil {
				return err
			}
			if format == "" || format == formatTable {
				if scores, err := evaluation.Score(y, p); err == nil {
					_, _ = fmt.Fprintf(out, "%d played games: r2=%.4f ll=%.4f ac=%.4f bss=%.4f\n",
						len(y), scores.R2, scores.LogLoss, scores.Accuracy, scores.BSS)
				}
			}
			return nil
		},
	}

	filter.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "print only the last n games (0 prints all)")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format (table|json|csv)")
	return cmd
}
