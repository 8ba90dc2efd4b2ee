package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/mrelo/internal/adapters/repository"
)

// filterFlags narrow the games a command loads.
type filterFlags struct {
	season string
	team   string
	from   string
	to     string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.season, "season", "", "only games of this season")
	fs.StringVar(&f.team, "team", "", "only games involving this team")
	fs.StringVar(&f.from, "from", "", "only games on or after this date (YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "only games before this date (YYYY-MM-DD)")
}

func (f *filterFlags) filter() (repository.GameFilter, error) {
	out := repository.GameFilter{Season: f.season, Team: f.team}
	var err error
	if out.From, err = parseDay(f.from); err != nil {
		return out, fmt.Errorf("--from: %w", err)
	}
	if out.To, err = parseDay(f.to); err != nil {
		return out, fmt.Errorf("--to: %w", err)
	}
	return out, nil
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}
