package repository

import "github.com/okian/mrelo/pkg/logger"

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithPrioritySeed fixes the seed of the treap priorities so tree shapes
// are reproducible.
func WithPrioritySeed(seed uint64) Option {
	return func(s *TreapStore) {
		s.seed = seed
	}
}

// HistoryOption applies a configuration option to the HistoryStore.
type HistoryOption func(*HistoryStore)

// WithHistoryLogger sets the logger used by the history store and its
// query builder.
func WithHistoryLogger(l logger.Logger) HistoryOption {
	return func(h *HistoryStore) {
		if l != nil {
			h.log = l
		}
	}
}

// WithHistoryTable overrides the table name. Defaults to "matches".
func WithHistoryTable(name string) HistoryOption {
	return func(h *HistoryStore) {
		if name != "" {
			h.table = name
		}
	}
}

// GameOption applies a configuration option to the GameStore.
type GameOption func(*GameStore)

// WithGameLogger sets the logger used by the game store and its query
// builder.
func WithGameLogger(l logger.Logger) GameOption {
	return func(g *GameStore) {
		if l != nil {
			g.log = l
		}
	}
}

// WithGameTable overrides the table name. Defaults to "games".
func WithGameTable(name string) GameOption {
	return func(g *GameStore) {
		if name != "" {
			g.table = name
		}
	}
}
