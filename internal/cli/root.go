// Package cli provides the elotune command-line interface: importing
// historical schedules, rating them offline, fitting parameters and
// replaying schedules against a running service.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/mrelo/internal/adapters/repository"
	"github.com/okian/mrelo/internal/config"
	"github.com/okian/mrelo/pkg/logger"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// ErrNoConfig is returned when a command runs without the root pre-run.
var ErrNoConfig = errors.New("configuration not loaded")

type configKey struct{}

// NewRootCmd creates the root command. Log output goes to stderr so command
// output on stdout stays machine readable.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "elotune",
		Short: "elotune - Elo schedule tooling",
		Long: `elotune works with historical schedules for the mrelo rating service.

It imports games from CSV into SQLite, rates them offline, fits the Elo
parameters with a genetic algorithm and replays schedules against a running
service to verify its ratings.`,
		Version: Version + " (" + GitCommit + ")",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.LoadWithFlags(cmd.Context(), cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			if err := setupLogger(cmd.ErrOrStderr(), cfg); err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $MRELO_CONFIG)")
	pf.String("db-path", "", "SQLite database holding the games table")
	pf.String("mov-method", "", "margin of victory scaling (log|exp)")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-format", "", "log format (text|json)")

	_ = root.RegisterFlagCompletionFunc("mov-method", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"log", "exp"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newEnrichCmd())
	root.AddCommand(newTuneCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newReplayCmd())
	return root
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func setupLogger(w io.Writer, cfg *config.Config) error {
	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		return err
	}
	if err := logger.InitWithWriter(w); err != nil {
		return err
	}
	return logger.SetLevelString(cfg.LogLevel)
}

func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configKey{}).(*config.Config)
	if !ok || cfg == nil {
		return nil, ErrNoConfig
	}
	return cfg, nil
}

// openStore opens the games table of the configured database.
func openStore(cmd *cobra.Command, cfg *config.Config) (*repository.GameStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("%w: db_path is empty", config.ErrInvalidConfig)
	}
	return repository.NewGameStore(cmd.Context(), cfg.DBPath,
		repository.WithGameLogger(logger.Get().Named("games")))
}
