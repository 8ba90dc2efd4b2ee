// Package rating keeps live Elo ratings for every team seen in submitted
// matches.
package rating

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/mrelo/internal/domain/elo"
	"github.com/okian/mrelo/internal/domain/model"
	"github.com/okian/mrelo/internal/domain/params"
	"github.com/okian/mrelo/pkg/logger"
)

const day = 24 * time.Hour

// Rater rates finished matches.
type Rater interface {
	// Rate applies m to both teams and returns their new state.
	Rate(ctx context.Context, m model.Match) (Outcome, error)
}

// Outcome is the effect of one rated match.
type Outcome struct {
	Match  model.Match      `json:"match"`
	Home   model.TeamRating `json:"home"`
	Away   model.TeamRating `json:"away"`
	Result elo.Result       `json:"result"`
}

// Engine applies matches to per-team state in the order they are rated.
// It is safe for concurrent use; updates are serialized.
type Engine struct {
	mu     sync.RWMutex
	calc   *elo.Calculator
	start  float64
	method elo.Method
	teams  map[string]*model.TeamRating
	log    logger.Logger
}

// NewEngine validates cfg and returns an engine where every team starts at
// the start parameter.
func NewEngine(cfg params.Set, opts ...Option) (*Engine, error) {
	if !cfg.Has(params.Start) {
		return nil, ErrNoStart
	}
	e := &Engine{
		start:  cfg.Get(params.Start),
		method: elo.MOVLog,
		teams:  make(map[string]*model.TeamRating),
		log:    logger.Get().Named("rating"),
	}
	for _, opt := range opts {
		opt(e)
	}
	calc, err := elo.NewCalculator(cfg, elo.WithMOVMethod(e.method))
	if err != nil {
		return nil, err
	}
	e.calc = calc
	return e, nil
}

// Params returns a copy of the parameter set in use.
func (e *Engine) Params() params.Set { return e.calc.Params() }

// Rate derives each team's games played this season and rest days, runs the
// Elo update and stores both new ratings. A team's first match of a season
// counts as n = 0, which triggers mean reversion when elo_avg is set.
func (e *Engine) Rate(ctx context.Context, m model.Match) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if err := m.Validate(); err != nil {
		return Outcome{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	season := m.SeasonKey()
	home := e.stateLocked(m.Home, season)
	away := e.stateLocked(m.Away, season)

	res := e.calc.Calc(elo.Input{
		Pre1:    home.Rating,
		Pre2:    away.Rating,
		MOV:     m.MOV(),
		N1:      home.Played,
		N2:      away.Played,
		Rest1:   restDays(home.LastPlayed, m.PlayedAt),
		Rest2:   restDays(away.LastPlayed, m.PlayedAt),
		Neutral: m.Neutral,
	})
	if !res.Finite() {
		return Outcome{}, fmt.Errorf("%w: match %s (%s vs %s)", ErrNonFinite, m.MatchID, m.Home, m.Away)
	}

	home = e.commitLocked(home, res.Post1, m.PlayedAt)
	away = e.commitLocked(away, res.Post2, m.PlayedAt)

	e.log.Debug(ctx, "match rated",
		logger.String("match_id", m.MatchID),
		logger.String("home", m.Home),
		logger.String("away", m.Away),
		logger.Float64("home_rating", home.Rating),
		logger.Float64("away_rating", away.Rating),
		logger.Float64("prob_home", res.Prob1))

	return Outcome{Match: m, Home: home, Away: away, Result: res}, nil
}

// stateLocked returns team's state as seen by a match in season. A new
// season resets the games played; the stored state is not touched.
func (e *Engine) stateLocked(team, season string) model.TeamRating {
	t, ok := e.teams[team]
	if !ok {
		return model.TeamRating{Team: team, Rating: e.start, Season: season}
	}
	st := *t
	if st.Season != season {
		st.Season = season
		st.Played = 0
	}
	return st
}

func (e *Engine) commitLocked(st model.TeamRating, rating float64, at time.Time) model.TeamRating {
	st.Rating = rating
	st.Played++
	if at.After(st.LastPlayed) {
		st.LastPlayed = at
	}
	st.Seq++
	e.teams[st.Team] = &st
	return st
}

// restDays counts whole days between the previous game and at. It is 0 for
// a team's first game and for matches submitted out of order.
func restDays(last, at time.Time) int {
	if last.IsZero() || !at.After(last) {
		return 0
	}
	return int(at.Sub(last) / day)
}

// Forecast is a prediction together with the ratings it was computed from.
type Forecast struct {
	HomeRating float64
	AwayRating float64
	ProbHome   float64
}

// Predict returns home's win probability from current ratings, read under
// one lock with the ratings themselves. Unknown teams are rated at start.
// No season reversion or rest adjustment applies.
func (e *Engine) Predict(home, away string, neutral bool) Forecast {
	e.mu.RLock()
	defer e.mu.RUnlock()

	r1, n1 := e.current(home)
	r2, n2 := e.current(away)
	return Forecast{
		HomeRating: r1,
		AwayRating: r2,
		ProbHome:   e.calc.Predict(elo.Input{Pre1: r1, Pre2: r2, N1: n1, N2: n2, Neutral: neutral}),
	}
}

// current returns the rating and a games count of at least one, so that
// Predict reads the rating as it stands.
func (e *Engine) current(team string) (float64, int) {
	if t, ok := e.teams[team]; ok {
		return t.Rating, max(t.Played, 1)
	}
	return e.start, 1
}

// Team returns the state of team.
func (e *Engine) Team(team string) (model.TeamRating, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.teams[team]
	if !ok {
		return model.TeamRating{}, false
	}
	return *t, true
}

// Teams returns every team's state ordered by name.
func (e *Engine) Teams() []model.TeamRating {
	e.mu.RLock()
	out := make([]model.TeamRating, 0, len(e.teams))
	for _, t := range e.teams {
		out = append(out, *t)
	}
	e.mu.RUnlock()
	slices.SortFunc(out, func(a, b model.TeamRating) int { return strings.Compare(a.Team, b.Team) })
	return out
}

// Count returns the number of teams with a rating.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.teams)
}

// Restore loads previously persisted states, replacing any current ones.
func (e *Engine) Restore(states ...model.TeamRating) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, st := range states {
		e.teams[st.Team] = &st
	}
}
