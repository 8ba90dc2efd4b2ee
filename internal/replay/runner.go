// Package replay posts a stored schedule to a running service and checks
// that the service ends up with the ratings a local engine computes.
package replay

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/mrelo/internal/domain/model"
	"github.com/okian/mrelo/pkg/logger"
)

// Run submits the played matches in order, waits until the service has
// rated them, then compares its leaderboard with a local rating of the same
// matches. The service must start without prior history for the comparison
// to hold; duplicates are reported but not resubmitted.
func Run(ctx context.Context, log logger.Logger, c Config, matches []model.Match) (*Stats, error) {
	cfg := c.withDefaults()
	stats := &Stats{StartTime: time.Now()}
	if log == nil {
		log = logger.Nop()
	}

	played := make([]model.Match, 0, len(matches))
	for _, m := range matches {
		if math.IsNaN(m.MOV()) {
			stats.Skipped++
			continue
		}
		played = append(played, m)
	}
	stats.Matches = len(played)
	if len(played) == 0 {
		return stats, ErrNoMatches
	}

	log.Info(ctx, "starting replay",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("matches", len(played)),
		logger.Int("skipped", stats.Skipped),
		logger.Int("topN", cfg.TopN))

	client := newHTTPClient(cfg.Timeout)
	if err := checkServiceHealth(ctx, client, cfg); err != nil {
		return stats, err
	}
	base, err := processed(ctx, client, cfg)
	if err != nil {
		return stats, err
	}

	if err := submitMatches(ctx, log, cfg, client, played, stats); err != nil {
		return stats, fmt.Errorf("submission failed: %w", err)
	}
	log.Info(ctx, "submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed))

	if err := waitProcessed(ctx, client, cfg, base+int64(stats.Accepted)); err != nil {
		return stats, err
	}

	expected, err := expectedLeaderboard(ctx, cfg, played)
	if err != nil {
		return stats, fmt.Errorf("local rating failed: %w", err)
	}
	var got []Entry
	if err := client.getJSON(ctx, cfg.BaseURL+"/leaderboard?limit="+strconv.Itoa(cfg.TopN), &got); err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.Compared = len(got)
	stats.Mismatches = verifyLeaderboard(expected, got, cfg.TopN, cfg.Tolerance)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if len(stats.Mismatches) > 0 {
		for _, d := range stats.Mismatches {
			log.Warn(ctx, "leaderboard mismatch", logger.String("diff", d))
		}
		return stats, fmt.Errorf("%w: %d differences", ErrMismatch, len(stats.Mismatches))
	}
	log.Info(ctx, "leaderboard verified", logger.Int("teams", stats.Compared))
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, cfg Config) error {
	resp, err := client.Get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// The service answers healthz with Prometheus metrics.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// processed reads the number of matches the service workers have rated.
func processed(ctx context.Context, client *HTTPClient, cfg Config) (int64, error) {
	var stats map[string]any
	if err := client.getJSON(ctx, cfg.BaseURL+"/stats", &stats); err != nil {
		return 0, err
	}
	n, _ := stats["processed"].(float64)
	return int64(n), nil
}

func waitProcessed(ctx context.Context, client *HTTPClient, cfg Config, target int64) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Wait)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		n, err := processed(ctx, client, cfg)
		if err == nil && n >= target {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %d of %d", ErrTimeout, n, target)
		case <-ticker.C:
		}
	}
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Accepted+stats.Duplicate+stats.Failed) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("matches", stats.Matches),
		logger.Int("skipped", stats.Skipped),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Int("retries", stats.Retries),
		logger.Int("compared", stats.Compared),
		logger.Int("mismatches", len(stats.Mismatches)),
		logger.Duration("duration", stats.Duration),
		logger.Float64("matchesPerSecond", perSecond))
}
