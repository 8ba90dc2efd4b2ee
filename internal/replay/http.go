package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/mrelo/internal/domain/model"
	"github.com/okian/mrelo/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// getJSON decodes the body of a 200 response into v.
func (c *HTTPClient) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, bytes.TrimSpace(body))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

type submitResult int

const (
	resultAccepted submitResult = iota
	resultDuplicate
	resultFailed
	resultBackpressure
)

// submitMatches posts matches one at a time, retrying while the queue is
// full. Ratings depend on order, so submissions are never concurrent.
func submitMatches(ctx context.Context, log logger.Logger, cfg Config, client *HTTPClient, matches []model.Match, stats *Stats) error {
	url := cfg.BaseURL + "/matches"
	lastReport := time.Now()

	for i, m := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := submitSingleMatch(ctx, client, url, m)
		for res == resultBackpressure {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollInterval):
			}
			stats.Retries++
			res = submitSingleMatch(ctx, client, url, m)
		}
		switch res {
		case resultAccepted:
			stats.Accepted++
		case resultDuplicate:
			stats.Duplicate++
		default:
			stats.Failed++
			log.Warn(ctx, "match rejected", logger.String("match_id", m.MatchID))
		}
		if cfg.Verbose {
			log.Debug(ctx, "match submitted", logger.String("match_id", m.MatchID), logger.Int("n", i+1))
		}
		if time.Since(lastReport) >= time.Second {
			lastReport = time.Now()
			log.Info(ctx, "progress",
				logger.Int("submitted", i+1),
				logger.Int("total", len(matches)),
				logger.Int("accepted", stats.Accepted),
				logger.Int("duplicate", stats.Duplicate),
				logger.Int("failed", stats.Failed))
		}
	}
	return nil
}

func submitSingleMatch(ctx context.Context, client *HTTPClient, url string, m model.Match) submitResult {
	resp, err := client.Post(ctx, url, matchRequest{
		MatchID:   m.MatchID,
		Home:      m.Home,
		Away:      m.Away,
		HomeScore: m.HomeScore,
		AwayScore: m.AwayScore,
		Neutral:   m.Neutral,
		Season:    m.SeasonKey(),
		PlayedAt:  m.PlayedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return resultFailed
	}
	defer func() { _ = resp.Body.Close() }()

	var ack AckResponse
	_ = json.NewDecoder(resp.Body).Decode(&ack)
	switch resp.StatusCode {
	case http.StatusAccepted:
		return resultAccepted
	case http.StatusOK:
		return resultDuplicate
	case http.StatusTooManyRequests:
		return resultBackpressure
	default:
		return resultFailed
	}
}
