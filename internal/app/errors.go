package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrBackpressure = errors.New("match queue is full")
	ErrNoHistory    = errors.New("match history is disabled")
)
