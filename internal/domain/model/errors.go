package model

import "errors"

// Validation errors for Match.
var (
	ErrMissingMatchID  = errors.New("match_id is required")
	ErrMissingTeam     = errors.New("home and away are required")
	ErrSameTeam        = errors.New("home and away must differ")
	ErrInvalidScore    = errors.New("scores must be finite and non-negative")
	ErrMissingPlayedAt = errors.New("played_at is required")
)
