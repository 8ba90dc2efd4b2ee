package worker

import (
	"github.com/okian/mrelo/internal/domain/rating"
	"github.com/okian/mrelo/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithHistory records every rated match. Without it nothing is persisted.
func WithHistory(h History) Option {
	return func(w *InMemoryWorker) {
		w.history = h
	}
}

// WithOnProcessed registers a callback run after each match is fully handled.
func WithOnProcessed(fn func(rating.Outcome)) Option {
	return func(w *InMemoryWorker) {
		w.onProcessed = fn
	}
}
