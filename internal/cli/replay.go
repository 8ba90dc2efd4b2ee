package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/mrelo/internal/replay"
	"github.com/okian/mrelo/pkg/logger"
)

func newReplayCmd() *cobra.Command {
	var (
		filter filterFlags
		rc     replay.Config
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the stored schedule against a running service",
		Long: `Replay posts every played game to a running service in play order,
waits until the service has rated them, then checks its leaderboard against
ratings computed locally with the same parameters.

The service must start without prior history and with the same parameters
and margin of victory method as this command's configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if rc.Params, err = cfg.Params(); err != nil {
				return err
			}
			if rc.Method, err = cfg.Method(); err != nil {
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

			stats, err := replay.Run(cmd.Context(), logger.Get().Named("replay"), rc, matches)
			if stats != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(),
					"submitted %d (accepted %d, duplicate %d, failed %d, skipped %d), compared %d teams, %d mismatches\n",
					stats.Matches, stats.Accepted, stats.Duplicate, stats.Failed, stats.Skipped,
					stats.Compared, len(stats.Mismatches))
			}
			return err
		},
	}

	filter.register(cmd)
	fs := cmd.Flags()
	fs.StringVar(&rc.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	fs.IntVar(&rc.TopN, "top", replay.DefaultTopN, "leaderboard entries to compare")
	fs.DurationVar(&rc.Timeout, "timeout", replay.DefaultTimeout, "HTTP request timeout")
	fs.DurationVar(&rc.Wait, "wait", replay.DefaultWait, "how long to wait for the service to rate everything")
	fs.Float64Var(&rc.Tolerance, "tolerance", replay.DefaultTolerance, "allowed rating difference per team")
	fs.BoolVar(&rc.Verbose, "verbose", false, "log every submission")
	return cmd
}
