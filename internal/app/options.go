package service

import (
	"github.com/okian/mrelo/internal/domain/elo"
	"github.com/okian/mrelo/internal/domain/params"
	"github.com/okian/mrelo/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of rating workers. Ratings depend on
// match order; more than one worker only keeps per-worker order.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued matches.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many match ids are remembered for idempotency.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithParams sets the Elo parameters. Defaults to params.Defaults().
func WithParams(p params.Set) Option {
	return func(s *Service) {
		if len(p) > 0 {
			s.params = p.Clone()
		}
	}
}

// WithMOVMethod selects the margin of victory scaling.
func WithMOVMethod(m elo.Method) Option {
	return func(s *Service) {
		s.method = m
	}
}

// WithHistoryPath persists rated matches in the SQLite database at path and
// replays them on Start. An empty path disables history.
func WithHistoryPath(path string) Option {
	return func(s *Service) {
		s.historyPath = path
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
