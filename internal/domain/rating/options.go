package rating

import (
	"github.com/okian/mrelo/internal/domain/elo"
	"github.com/okian/mrelo/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithMOVMethod selects the margin of victory scaling. Defaults to elo.MOVLog.
func WithMOVMethod(m elo.Method) Option {
	return func(e *Engine) {
		e.method = m
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}
