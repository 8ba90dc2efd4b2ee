// Package model contains domain models passed between layers.
package model

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Match is a finished game submitted by clients.
// Fields mirror the OpenAPI schema for /matches.
type Match struct {
	MatchID   string    `json:"match_id"`   // unique id for idempotency
	Home      string    `json:"home"`       // team1, gets home advantage unless Neutral
	Away      string    `json:"away"`       // team2
	HomeScore float64   `json:"home_score"` // final score of Home
	AwayScore float64   `json:"away_score"` // final score of Away
	Neutral   bool      `json:"neutral"`    // played at a neutral venue
	Season    string    `json:"season"`     // e.g. "2023-24"; defaults to the year of PlayedAt
	PlayedAt  time.Time `json:"played_at"`
}

// MOV returns the margin of victory from the home side.
func (m Match) MOV() float64 { return m.HomeScore - m.AwayScore }

// SeasonKey returns Season, or the year of PlayedAt when Season is empty.
func (m Match) SeasonKey() string {
	if s := strings.TrimSpace(m.Season); s != "" {
		return s
	}
	return strconv.Itoa(m.PlayedAt.Year())
}

// Validate checks the fields the rating engine relies on.
func (m Match) Validate() error {
	switch {
	case strings.TrimSpace(m.MatchID) == "":
		return ErrMissingMatchID
	case strings.TrimSpace(m.Home) == "" || strings.TrimSpace(m.Away) == "":
		return ErrMissingTeam
	case m.Home == m.Away:
		return ErrSameTeam
	case !validScore(m.HomeScore) || !validScore(m.AwayScore):
		return ErrInvalidScore
	case m.PlayedAt.IsZero():
		return ErrMissingPlayedAt
	}
	return nil
}

func validScore(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// TeamRating is a team's current Elo rating and season progress.
type TeamRating struct {
	Team       string    `json:"team"`
	Rating     float64   `json:"rating"`
	Season     string    `json:"season"`
	Played     int       `json:"played"` // games played in Season
	LastPlayed time.Time `json:"last_played"`
	Seq        uint64    `json:"seq"` // bumps on every rated match
}
