package optimizer

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/okian/mrelo/internal/domain/elo"
	"github.com/okian/mrelo/internal/domain/evaluation"
	"github.com/okian/mrelo/internal/domain/params"
	"github.com/okian/mrelo/pkg/logger"
	"github.com/okian/mrelo/pkg/metrics"
)

// Solution is a scored parameter set.
type Solution struct {
	Params     params.Set        `json:"params"`
	Scores     evaluation.Scores `json:"scores"`
	Fitness    float64           `json:"fitness"`
	Evaluation int               `json:"evaluation"`
	Generation int               `json:"generation"`
}

// String formats the solution as FormatSolution does.
func (s Solution) String() string {
	return FormatSolution(s.Params, s.Scores, s.Generation)
}

// FormatSolution renders a set and its scores on one line, prefixed with
// the generation when gen >= 0:
//
//	3: {start: 1200, k_start: 20}, r2=0.1234 ll=0.6543 ac=0.6500
func FormatSolution(set params.Set, s evaluation.Scores, gen int) string {
	var b strings.Builder
	if gen >= 0 {
		fmt.Fprintf(&b, "%d: ", gen)
	}
	fmt.Fprintf(&b, "%s, r2=%.4f ll=%.4f ac=%.4f", set, s.R2, s.LogLoss, s.Accuracy)
	return b.String()
}

// Fitness scores parameter sets against a fixed schedule and keeps the best
// one seen. It is safe for concurrent use.
type Fitness struct {
	games  []elo.Game
	played []int
	y      []float64
	method elo.Method
	log    logger.Logger

	mu         sync.Mutex
	evals      int
	valid      int
	generation int
	best       *Solution
}

// NewFitness prepares a scorer. Only games with a final score are scored,
// but every game is rated so unplayed fixtures still age the ratings.
func NewFitness(games []elo.Game, method elo.Method, log logger.Logger) (*Fitness, error) {
	f := &Fitness{games: games, method: method, log: log}
	if f.log == nil {
		f.log = logger.Nop()
	}
	for i, g := range games {
		if g.Played() {
			f.played = append(f.played, i)
			f.y = append(f.y, g.Win1())
		}
	}
	if len(f.played) == 0 {
		return nil, ErrNoGames
	}
	return f, nil
}

// SetGeneration tags later improvements with gen.
func (f *Fitness) SetGeneration(gen int) {
	f.mu.Lock()
	f.generation = gen
	f.mu.Unlock()
}

// Evaluate returns the R2 of the set's win probabilities. Sets that fail
// validation or drive ratings non-finite score -Inf.
func (f *Fitness) Evaluate(ctx context.Context, set params.Set) float64 {
	res, err := elo.Enrich(f.games, set, elo.WithMOVMethod(f.method))
	var scores evaluation.Scores
	if err == nil {
		p := make([]float64, len(f.played))
		for i, idx := range f.played {
			p[i] = res[idx].Prob1
		}
		scores, err = evaluation.Score(f.y, p)
	}
	valid := err == nil && !math.IsNaN(scores.R2)
	metrics.RecordOptimizerEvaluation(valid)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.evals++
	if !valid {
		return math.Inf(-1)
	}
	f.valid++
	if f.best == nil || scores.R2 > f.best.Fitness {
		f.best = &Solution{
			Params:     set.Clone(),
			Scores:     scores,
			Fitness:    scores.R2,
			Evaluation: f.evals,
			Generation: f.generation,
		}
		metrics.UpdateOptimizerBestFitness(scores.R2)
		f.log.Info(ctx, "new best", logger.Int("eval", f.evals), logger.String("solution", f.best.String()))
	}
	return scores.R2
}

// Best returns the best solution so far.
func (f *Fitness) Best() (Solution, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.best == nil {
		return Solution{}, false
	}
	s := *f.best
	s.Params = s.Params.Clone()
	return s, true
}

// Counts returns how many sets were evaluated and how many were valid.
func (f *Fitness) Counts() (evals, valid int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.evals, f.valid
}
