package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/mrelo/internal/domain/optimizer"
	"github.com/okian/mrelo/internal/domain/params"
	"github.com/okian/mrelo/internal/domain/rating"
	"github.com/okian/mrelo/pkg/logger"
)

// Search methods accepted by --method.
const (
	methodGA     = "ga"
	methodRandom = "random"
)

// ErrMethod is returned for an unknown --method value.
var ErrMethod = errors.New("unknown search method")

func newTuneCmd() *cobra.Command {
	var (
		filter  filterFlags
		method  string
		samples int
		every   int
	)

	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Fit the Elo parameters to the stored schedule",
		Long: `Tune searches the parameter space for the set whose win probabilities
best explain the stored results (highest R2).

The genetic algorithm settings come from the optimizer section of the config
and may be overridden with the flags below. Interrupting a run prints the best
set found so far.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			mov, err := cfg.Method()
			if err != nil {
				return err
			}
			f, err := filter.filter()
			if err != nil {
				return err
			}

			store, err := openStore(cmd, cfg)
			if err != nil {
				return err
			}
			matches, err := store.Load(cmd.Context(), f)
			_ = store.Close()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			log := logger.Get().Named("tune")
			out := cmd.OutOrStdout()
			oc := cfg.Optimizer
			opt, err := optimizer.New(rating.Schedule(matches),
				optimizer.WithPopulation(oc.Population),
				optimizer.WithParents(oc.Parents),
				optimizer.WithGenerations(oc.Generations),
				optimizer.WithCrossoverRate(oc.CrossoverRate),
				optimizer.WithMutationRate(oc.MutationRate),
				optimizer.WithParallelism(oc.Parallelism),
				optimizer.WithSeed(oc.Seed),
				optimizer.WithStaleGenerations(oc.StaleGenerations),
				optimizer.WithMOVMethod(mov),
				optimizer.WithLogger(log),
				optimizer.WithProgress(func(gen int, best optimizer.Solution) {
					if every > 0 && gen%every == 0 && best.Params != nil {
						_, _ = fmt.Fprintln(cmd.ErrOrStderr(), optimizer.FormatSolution(best.Params, best.Scores, gen))
					}
				}))
			if err != nil {
				return err
			}
			log.Info(ctx, "tuning",
				logger.String("method", method),
				logger.Int("games", len(matches)),
				logger.Int64("seed", int64(opt.Seed())))

			var best optimizer.Solution
			switch method {
			case methodGA:
				best, err = opt.GA(ctx)
			case methodRandom:
				best, err = opt.RandomSearch(ctx, samples)
			default:
				return fmt.Errorf("%w: %q", ErrMethod, method)
			}
			if best.Params == nil {
				return err
			}
			if err != nil {
				log.Warn(ctx, "search stopped early", logger.Error(err))
			}

			evals, valid := opt.Fitness().Counts()
			_, _ = fmt.Fprintln(out, best.String())
			if err := renderParams(cmd, best.Params); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "best at evaluation %d of %d (%d valid), seed %d\n",
				best.Evaluation, evals, valid, opt.Seed())
			return nil
		},
	}

	filter.register(cmd)
	fs := cmd.Flags()
	fs.StringVar(&method, "method", methodGA, "search method (ga|random)")
	fs.IntVar(&samples, "samples", 1000, "parameter sets drawn by the random search")
	fs.IntVar(&every, "progress", 10, "print the best set every n generations (0 disables)")
	fs.Int("population", 0, "solutions per generation")
	fs.Int("parents", 0, "fittest solutions kept each generation")
	fs.Int("generations", 0, "maximum generations")
	fs.Float64("crossover-rate", 0, "probability a child mixes two parents")
	fs.Float64("mutation-rate", 0, "per-gene mutation probability")
	fs.Int("parallelism", 0, "concurrent fitness evaluations")
	fs.Uint64("seed", 0, "random seed (0 picks one)")
	fs.Int("stale-generations", 0, "stop after n generations without improvement")

	_ = cmd.RegisterFlagCompletionFunc("method", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{methodGA, methodRandom}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func renderParams(cmd *cobra.Command, set params.Set) error {
	pretty := set.Pretty(4)
	rows := make([][]any, 0, len(pretty))
	for _, name := range set.Names() {
		p, _ := params.Lookup(name)
		rows = append(rows, []any{name, p.Desc(), pretty[name]})
	}
	return renderTable(cmd.OutOrStdout(), []string{"param", "description", "value"}, rows)
}
