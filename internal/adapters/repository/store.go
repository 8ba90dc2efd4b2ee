// Package repository holds the leaderboard and match history stores.
package repository

import (
	"context"

	"github.com/okian/mrelo/internal/domain/types"
)

// Entry represents a leaderboard row.
type Entry = types.Entry

// Store provides read/write access to the leaderboard.
type Store interface {
	// Upsert stores team's rating when seq is newer than the stored one.
	// Returns true if the store changed.
	Upsert(ctx context.Context, team string, rating float64, played int, seq uint64) (bool, error)

	// Rank returns the current rank and rating for a team.
	// Returns ErrNotFound if the team is unknown.
	Rank(ctx context.Context, team string) (Entry, error)

	// TopN returns the top-N entries ordered by rating desc, team asc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of teams on the leaderboard.
	Count(ctx context.Context) int
}
