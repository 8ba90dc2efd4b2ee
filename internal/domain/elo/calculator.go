package elo

import (
	"fmt"
	"math"

	"github.com/okian/mrelo/internal/domain/params"
)

// Input is one match from team1's side. Team1 is the home team unless
// Neutral is set. MOV is score1 - score2; NaN marks an unplayed match.
type Input struct {
	Pre1, Pre2   float64
	MOV          float64
	N1, N2       int
	Rest1, Rest2 int
	Neutral      bool
}

// Result is the outcome of one update.
type Result struct {
	Pre1  float64 `json:"elo_pre1"`
	Pre2  float64 `json:"elo_pre2"`
	Post1 float64 `json:"elo_post1"`
	Post2 float64 `json:"elo_post2"`
	Prob1 float64 `json:"elo_prob1"`
}

// Finite reports whether every field is a finite number.
func (r Result) Finite() bool {
	for _, v := range [...]float64{r.Pre1, r.Pre2, r.Post1, r.Post2, r.Prob1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithMOVMethod selects the margin of victory scaling. Defaults to MOVLog.
func WithMOVMethod(m Method) Option {
	return func(c *Calculator) {
		c.method = m
	}
}

// Calculator runs the full update pipeline for a fixed parameter set.
type Calculator struct {
	cfg    params.Set
	method Method
}

// NewCalculator validates cfg and returns a Calculator bound to a copy of it.
func NewCalculator(cfg params.Set, opts ...Option) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Calculator{cfg: cfg.Clone(), method: MOVLog}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Params returns a copy of the parameter set.
func (c *Calculator) Params() params.Set { return c.cfg.Clone() }

// Method returns the margin of victory scaling in use.
func (c *Calculator) Method() Method { return c.method }

// Calc shifts both pre-match ratings, computes the win probability from
// the adjusted difference, and applies the post-match shift when the match
// has a decisive or drawn score (MOV non-zero and not NaN).
func (c *Calculator) Calc(in Input) Result {
	pre1 := in.Pre1 + ShiftPre(in.Pre1, in.N1, c.cfg)
	pre2 := in.Pre2 + ShiftPre(in.Pre2, in.N2, c.cfg)
	diff := PreDiff(pre1, pre2, in.Rest1, in.Rest2, in.Neutral, c.cfg)

	shift := 0.0
	if in.MOV != 0 && !math.IsNaN(in.MOV) {
		shift = ShiftPost(diff, in.MOV, in.N1, in.N2, c.cfg, c.method)
	}
	return Result{
		Pre1:  pre1,
		Pre2:  pre2,
		Post1: pre1 + shift,
		Post2: pre2 - shift,
		Prob1: Probability(diff),
	}
}

// Predict returns team1's win probability without updating anything.
func (c *Calculator) Predict(in Input) float64 {
	in.MOV = math.NaN()
	return c.Calc(in).Prob1
}

// Game is one row of a historical schedule.
type Game struct {
	Team1, Team2     string
	Score1, Score2   float64 // NaN when not played yet
	Played1, Played2 int     // games each team played earlier in the season
	Rest1, Rest2     int     // days since each team's previous game
	Neutral          bool
}

// MOV returns score1 - score2 (NaN when unplayed).
func (g Game) MOV() float64 { return g.Score1 - g.Score2 }

// Played reports whether the game has a final score.
func (g Game) Played() bool { return !math.IsNaN(g.MOV()) }

// Win1 returns 1 when team1 won, else 0.
func (g Game) Win1() float64 {
	if g.MOV() > 0 {
		return 1
	}
	return 0
}

// Enrich rates games in order. Every team starts at the start parameter and
// carries its post-match rating into its next game.
func Enrich(games []Game, cfg params.Set, opts ...Option) ([]Result, error) {
	if !cfg.Has(params.Start) {
		return nil, fmt.Errorf("%w: %s", params.ErrMissingParam, params.Start)
	}
	c, err := NewCalculator(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return c.Enrich(games)
}

// Enrich is the package-level Enrich bound to c.
func (c *Calculator) Enrich(games []Game) ([]Result, error) {
	if !c.cfg.Has(params.Start) {
		return nil, fmt.Errorf("%w: %s", params.ErrMissingParam, params.Start)
	}
	start := c.cfg.Get(params.Start)
	ratings := make(map[string]float64, 64)
	rating := func(team string) float64 {
		if r, ok := ratings[team]; ok {
			return r
		}
		return start
	}

	out := make([]Result, len(games))
	for i, g := range games {
		r := c.Calc(Input{
			Pre1:    rating(g.Team1),
			Pre2:    rating(g.Team2),
			MOV:     g.MOV(),
			N1:      g.Played1,
			N2:      g.Played2,
			Rest1:   g.Rest1,
			Rest2:   g.Rest2,
			Neutral: g.Neutral,
		})
		if !r.Finite() {
			return nil, fmt.Errorf("%w: game %d (%s vs %s)", ErrNonFinite, i, g.Team1, g.Team2)
		}
		ratings[g.Team1] = r.Post1
		ratings[g.Team2] = r.Post2
		out[i] = r
	}
	return out, nil
}
