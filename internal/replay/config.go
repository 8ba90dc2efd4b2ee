package replay

import (
	"time"

	"github.com/okian/mrelo/internal/domain/elo"
	"github.com/okian/mrelo/internal/domain/params"
	"github.com/okian/mrelo/internal/domain/types"
)

// Defaults for Config fields left zero.
const (
	DefaultTopN      = 30
	DefaultTimeout   = 10 * time.Second
	DefaultWait      = 2 * time.Minute
	DefaultTolerance = 1e-6
	pollInterval     = 50 * time.Millisecond
)

// Config holds configuration for a replay run.
type Config struct {
	BaseURL   string        // Base URL of the service
	TopN      int           // Leaderboard entries to compare
	Timeout   time.Duration // HTTP request timeout
	Wait      time.Duration // How long to wait for the service to rate everything
	Tolerance float64       // Allowed rating difference per team
	Params    params.Set    // Parameters the service runs with
	Method    elo.Method    // MoV method the service runs with
	Verbose   bool          // Log every submission
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.TopN <= 0 {
		out.TopN = DefaultTopN
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.Wait <= 0 {
		out.Wait = DefaultWait
	}
	if out.Tolerance <= 0 {
		out.Tolerance = DefaultTolerance
	}
	if len(out.Params) == 0 {
		out.Params = params.Defaults()
	}
	return out
}

// Entry is one leaderboard row.
type Entry = types.Entry

// matchRequest is the POST /matches body.
type matchRequest struct {
	MatchID   string  `json:"match_id"`
	Home      string  `json:"home"`
	Away      string  `json:"away"`
	HomeScore float64 `json:"home_score"`
	AwayScore float64 `json:"away_score"`
	Neutral   bool    `json:"neutral"`
	Season    string  `json:"season"`
	PlayedAt  string  `json:"played_at"`
}

// AckResponse represents the response from match submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	Matches    int
	Skipped    int
	Accepted   int
	Duplicate  int
	Failed     int
	Retries    int // resubmissions after 429
	Compared   int
	Mismatches []string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
