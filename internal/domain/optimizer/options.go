package optimizer

import (
	"github.com/okian/mrelo/internal/domain/elo"
	"github.com/okian/mrelo/pkg/logger"
)

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithPopulation sets the number of solutions per generation.
func WithPopulation(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.population = n
		}
	}
}

// WithParents sets how many of the fittest solutions mate and survive.
func WithParents(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.parents = n
		}
	}
}

// WithGenerations caps the number of generations.
func WithGenerations(n int) Option {
	return func(o *Optimizer) {
		o.generations = n
	}
}

// WithCrossoverRate sets the probability that a child mixes two parents.
func WithCrossoverRate(r float64) Option {
	return func(o *Optimizer) {
		o.crossoverRate = r
	}
}

// WithMutationRate sets the per-gene mutation probability.
func WithMutationRate(r float64) Option {
	return func(o *Optimizer) {
		o.mutationRate = r
	}
}

// WithParallelism bounds concurrent fitness evaluations.
func WithParallelism(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// WithSeed fixes the random source. Zero picks a time-based seed.
func WithSeed(seed uint64) Option {
	return func(o *Optimizer) {
		o.seed = seed
	}
}

// WithStaleGenerations stops the GA after n generations without a better
// solution. Zero disables the check.
func WithStaleGenerations(n int) Option {
	return func(o *Optimizer) {
		if n >= 0 {
			o.stale = n
		}
	}
}

// WithMOVMethod selects the margin of victory scaling used while fitting.
func WithMOVMethod(m elo.Method) Option {
	return func(o *Optimizer) {
		o.method = m
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.log = l
		}
	}
}

// WithProgress registers a per-generation callback.
func WithProgress(fn Progress) Option {
	return func(o *Optimizer) {
		o.progress = fn
	}
}
