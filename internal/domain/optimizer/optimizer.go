// Package optimizer fits Elo parameters to a schedule of played games.
package optimizer

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/mrelo/internal/domain/elo"
	"github.com/okian/mrelo/internal/domain/params"
	"github.com/okian/mrelo/pkg/logger"
	"github.com/okian/mrelo/pkg/metrics"
)

// Default GA settings.
const (
	DefaultPopulation    = 300
	DefaultParents       = 100
	DefaultGenerations   = 1000
	DefaultCrossoverRate = 0.75
	DefaultMutationRate  = 0.25
	DefaultParallelism   = 10
)

// Progress is called after every generation with the best solution so far
// (the zero Solution while nothing valid was found).
type Progress func(gen int, best Solution)

// Optimizer searches the parameter space for the set with the best Fitness.
type Optimizer struct {
	population    int
	parents       int
	generations   int
	crossoverRate float64
	mutationRate  float64
	parallelism   int
	seed          uint64
	stale         int
	method        elo.Method
	log           logger.Logger
	progress      Progress

	fitness *Fitness
	rng     *rand.Rand
}

// New prepares an optimizer for games.
func New(games []elo.Game, opts ...Option) (*Optimizer, error) {
	o := &Optimizer{
		population:    DefaultPopulation,
		parents:       DefaultParents,
		generations:   DefaultGenerations,
		crossoverRate: DefaultCrossoverRate,
		mutationRate:  DefaultMutationRate,
		parallelism:   DefaultParallelism,
		method:        elo.MOVLog,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	if o.seed == 0 {
		o.seed = uint64(time.Now().UnixNano())
	}
	o.rng = rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15))

	f, err := NewFitness(games, o.method, o.log)
	if err != nil {
		return nil, err
	}
	o.fitness = f
	return o, nil
}

func (o *Optimizer) validate() error {
	switch {
	case o.population < 2:
		return fmt.Errorf("%w: population %d", ErrInvalidConfig, o.population)
	case o.parents < 1 || o.parents > o.population:
		return fmt.Errorf("%w: parents %d of %d", ErrInvalidConfig, o.parents, o.population)
	case o.generations < 0:
		return fmt.Errorf("%w: generations %d", ErrInvalidConfig, o.generations)
	case o.crossoverRate < 0 || o.crossoverRate > 1:
		return fmt.Errorf("%w: crossover rate %v", ErrInvalidConfig, o.crossoverRate)
	case o.mutationRate < 0 || o.mutationRate > 1:
		return fmt.Errorf("%w: mutation rate %v", ErrInvalidConfig, o.mutationRate)
	case o.parallelism < 1:
		return fmt.Errorf("%w: parallelism %d", ErrInvalidConfig, o.parallelism)
	}
	return nil
}

// Seed returns the seed in use.
func (o *Optimizer) Seed() uint64 { return o.seed }

// Fitness returns the scorer shared by every search.
func (o *Optimizer) Fitness() *Fitness { return o.fitness }

func (o *Optimizer) sample() []float64 {
	genes := make([]float64, params.Count)
	for i, p := range params.All() {
		genes[i] = p.Space().Sample(o.rng)
	}
	return genes
}

// evaluate scores pop in parallel, skipping entries already scored.
func (o *Optimizer) evaluate(ctx context.Context, pop [][]float64, scores []float64, done []bool) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for i := range pop {
		if done[i] {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			set, err := params.FromGenes(pop[i])
			if err != nil {
				return err
			}
			scores[i] = o.fitness.Evaluate(gctx, set)
			done[i] = true
			return nil
		})
	}
	return g.Wait()
}

func (o *Optimizer) best() (Solution, error) {
	s, ok := o.fitness.Best()
	if !ok {
		return Solution{}, ErrNoSolution
	}
	return s, nil
}

// RandomSearch scores n uniformly drawn sets. Useful as a baseline.
func (o *Optimizer) RandomSearch(ctx context.Context, n int) (Solution, error) {
	pop := make([][]float64, n)
	for i := range pop {
		pop[i] = o.sample()
	}
	scores := make([]float64, n)
	done := make([]bool, n)
	if err := o.evaluate(ctx, pop, scores, done); err != nil {
		s, _ := o.best()
		return s, err
	}
	return o.best()
}

// GA runs a steady-state genetic algorithm: the fittest parents survive
// unchanged, offspring come from single-point crossover of consecutive
// parents followed by per-gene random mutation from the gene's space.
//
// It stops after the configured generations, after the configured number of
// generations without improvement, or when ctx is done. On cancellation the
// best solution so far is returned with ctx's error.
func (o *Optimizer) GA(ctx context.Context) (Solution, error) {
	pop := make([][]float64, o.population)
	for i := range pop {
		pop[i] = o.sample()
	}
	scores := make([]float64, o.population)
	done := make([]bool, o.population)

	o.fitness.SetGeneration(0)
	metrics.UpdateOptimizerGeneration(0)
	if err := o.evaluate(ctx, pop, scores, done); err != nil {
		s, _ := o.best()
		return s, err
	}

	bestFit := math.Inf(-1)
	stale := 0
	for gen := 1; gen <= o.generations; gen++ {
		o.fitness.SetGeneration(gen)
		metrics.UpdateOptimizerGeneration(gen)

		order := o.rank(scores)
		next := make([][]float64, 0, o.population)
		nextScores := make([]float64, 0, o.population)
		nextDone := make([]bool, 0, o.population)
		for _, idx := range order[:o.parents] {
			next = append(next, pop[idx])
			nextScores = append(nextScores, scores[idx])
			nextDone = append(nextDone, true)
		}
		for k := 0; len(next) < o.population; k++ {
			p1 := next[k%o.parents]
			p2 := next[(k+1)%o.parents]
			child := o.crossover(p1, p2)
			o.mutate(child)
			next = append(next, child)
			nextScores = append(nextScores, 0)
			nextDone = append(nextDone, false)
		}
		pop, scores, done = next, nextScores, nextDone

		if err := o.evaluate(ctx, pop, scores, done); err != nil {
			s, _ := o.best()
			return s, err
		}

		best, ok := o.fitness.Best()
		if ok && best.Fitness > bestFit {
			bestFit = best.Fitness
			stale = 0
		} else {
			stale++
		}
		if o.progress != nil {
			o.progress(gen, best)
		}
		o.log.Debug(ctx, "generation done", logger.Int("gen", gen), logger.Float64("best", bestFit), logger.Int("stale", stale))
		if o.stale > 0 && stale >= o.stale {
			o.log.Info(ctx, "stopping on stale generations", logger.Int("gen", gen), logger.Int("stale", stale))
			break
		}
	}
	return o.best()
}

// rank returns population indexes by descending score; ties keep index order.
func (o *Optimizer) rank(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})
	return order
}

func (o *Optimizer) crossover(p1, p2 []float64) []float64 {
	child := slices.Clone(p1)
	if o.rng.Float64() >= o.crossoverRate || len(p1) < 2 {
		return child
	}
	point := 1 + o.rng.IntN(len(p1)-1)
	copy(child[point:], p2[point:])
	return child
}

func (o *Optimizer) mutate(genes []float64) {
	for i := range genes {
		if o.rng.Float64() < o.mutationRate {
			genes[i] = params.Param(i).Space().Sample(o.rng)
		}
	}
}
