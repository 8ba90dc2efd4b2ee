package repository

import "errors"

// Sentinel kinds for leaderboard and history errors.
var (
	ErrNotFound     = errors.New("team not found")
	ErrInvalidLimit = errors.New("invalid limit")
	ErrInvalidTeam  = errors.New("invalid team")
)
