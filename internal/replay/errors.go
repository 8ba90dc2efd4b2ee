package replay

import "errors"

// Sentinel errors returned by Run.
var (
	ErrUnhealthy = errors.New("service unhealthy")
	ErrTimeout   = errors.New("timed out waiting for matches to be rated")
	ErrMismatch  = errors.New("leaderboard does not match local ratings")
	ErrNoMatches = errors.New("no matches to replay")
)
