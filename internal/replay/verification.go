package replay

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/okian/mrelo/internal/domain/model"
	"github.com/okian/mrelo/internal/domain/rating"
	"github.com/okian/mrelo/pkg/logger"
)

// expectedLeaderboard rates matches locally and ranks the teams the way the
// service leaderboard does: rating descending, then team name.
func expectedLeaderboard(ctx context.Context, cfg Config, matches []model.Match) ([]Entry, error) {
	e, err := rating.NewEngine(cfg.Params, rating.WithMOVMethod(cfg.Method), rating.WithLogger(logger.Nop()))
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if _, err := e.Rate(ctx, m); err != nil {
			return nil, err
		}
	}
	teams := e.Teams()
	slices.SortStableFunc(teams, func(a, b model.TeamRating) int {
		if c := cmp.Compare(b.Rating, a.Rating); c != 0 {
			return c
		}
		return strings.Compare(a.Team, b.Team)
	})
	out := make([]Entry, len(teams))
	for i, t := range teams {
		out[i] = Entry{Rank: i + 1, Team: t.Team, Rating: t.Rating, Played: t.Played}
	}
	return out, nil
}

// verifyLeaderboard compares the top n expected entries with got and
// returns one line per difference.
func verifyLeaderboard(expected, got []Entry, n int, tol float64) []string {
	want := expected[:min(n, len(expected))]
	var diffs []string
	if len(got) != len(want) {
		diffs = append(diffs, fmt.Sprintf("service lists %d teams, want %d", len(got), len(want)))
	}
	for i := range min(len(got), len(want)) {
		g, w := got[i], want[i]
		switch {
		case g.Team != w.Team:
			diffs = append(diffs, fmt.Sprintf("rank %d: got %s, want %s", i+1, g.Team, w.Team))
		case math.Abs(g.Rating-w.Rating) > tol:
			diffs = append(diffs, fmt.Sprintf("%s: rating %.6f, want %.6f", g.Team, g.Rating, w.Rating))
		case g.Rank != w.Rank:
			diffs = append(diffs, fmt.Sprintf("%s: rank %d, want %d", g.Team, g.Rank, w.Rank))
		}
	}
	return diffs
}
