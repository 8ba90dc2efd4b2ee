package rating

import (
	"math"
	"time"

	"github.com/okian/mrelo/internal/domain/elo"
	"github.com/okian/mrelo/internal/domain/model"
)

type slot struct {
	season string
	played int
	last   time.Time
}

// Schedule converts matches, in play order, into the rows read by
// elo.Enrich and the optimizer. Games played this season and rest days are
// derived exactly as Rate derives them, so enriching the schedule yields the
// ratings the engine would hold. A match with a NaN score keeps its row but
// is not counted as played.
func Schedule(matches []model.Match) []elo.Game {
	teams := make(map[string]*slot)
	state := func(team, season string) *slot {
		s, ok := teams[team]
		if !ok {
			s = &slot{season: season}
			teams[team] = s
		}
		if s.season != season {
			s.season = season
			s.played = 0
		}
		return s
	}

	games := make([]elo.Game, 0, len(matches))
	for _, m := range matches {
		season := m.SeasonKey()
		home := state(m.Home, season)
		away := state(m.Away, season)
		games = append(games, elo.Game{
			Team1:   m.Home,
			Team2:   m.Away,
			Score1:  m.HomeScore,
			Score2:  m.AwayScore,
			Played1: home.played,
			Played2: away.played,
			Rest1:   restDays(home.last, m.PlayedAt),
			Rest2:   restDays(away.last, m.PlayedAt),
			Neutral: m.Neutral,
		})
		if math.IsNaN(m.MOV()) {
			continue
		}
		for _, s := range [...]*slot{home, away} {
			s.played++
			if m.PlayedAt.After(s.last) {
				s.last = m.PlayedAt
			}
		}
	}
	return games
}
