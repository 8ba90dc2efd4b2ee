package rating

import "errors"

// Errors returned by the rating engine.
var (
	ErrNoStart   = errors.New("rating: start parameter is required")
	ErrNonFinite = errors.New("rating: update produced a non-finite rating")
)
