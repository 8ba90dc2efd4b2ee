package elo

import "errors"

var (
	// ErrNonFinite reports a parameter set that drove a rating to Inf or NaN.
	ErrNonFinite     = errors.New("non-finite rating")
	ErrUnknownMethod = errors.New("unknown margin of victory method")
)
