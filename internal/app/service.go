// Package service wires the rating engine, queue, workers and stores into
// the operations the HTTP API exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	matchqueue "github.com/okian/mrelo/internal/adapters/mq/queue"
	workerpool "github.com/okian/mrelo/internal/adapters/mq/worker"
	repository "github.com/okian/mrelo/internal/adapters/repository"
	"github.com/okian/mrelo/internal/domain/dedupe"
	"github.com/okian/mrelo/internal/domain/elo"
	"github.com/okian/mrelo/internal/domain/model"
	"github.com/okian/mrelo/internal/domain/params"
	"github.com/okian/mrelo/internal/domain/rating"
	"github.com/okian/mrelo/internal/domain/types"
	"github.com/okian/mrelo/pkg/logger"
	"github.com/okian/mrelo/pkg/metrics"
)

// Default service configuration.
const (
	defaultWorkerCount = 1
	defaultQueueSize   = 10000
	defaultDedupeSize  = 50000
)

// Prediction is the expected outcome of an unplayed match.
type Prediction struct {
	Home       string  `json:"home"`
	Away       string  `json:"away"`
	Neutral    bool    `json:"neutral"`
	HomeRating float64 `json:"home_rating"`
	AwayRating float64 `json:"away_rating"`
	ProbHome   float64 `json:"prob_home"`
}

// Service implements the API dependencies for the rating system.
type Service struct {
	mu sync.RWMutex

	leaderboard *repository.TreapStore
	history     *repository.HistoryStore
	deduper     dedupe.Deduper
	queue       *matchqueue.InMemoryQueue
	engine      *rating.Engine
	pool        *workerpool.Pool

	workerCount int
	queueSize   int
	dedupeSize  int
	params      params.Set
	method      elo.Method
	historyPath string

	started bool
	logger  logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: defaultWorkerCount,
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		params:      params.Defaults(),
		method:      elo.MOVLog,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds every component, replays stored history into the engine and
// leaderboard, then starts the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting rating service...")

	engine, err := rating.NewEngine(s.params,
		rating.WithMOVMethod(s.method),
		rating.WithLogger(s.logger.Named("rating")))
	if err != nil {
		return fmt.Errorf("rating engine: %w", err)
	}
	s.engine = engine
	s.leaderboard = repository.NewTreapStore()
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	wopts := []workerpool.Option{workerpool.WithLogger(s.logger.Named("worker"))}
	if s.historyPath != "" {
		h, err := repository.NewHistoryStore(ctx, s.historyPath,
			repository.WithHistoryLogger(s.logger.Named("history")))
		if err != nil {
			return fmt.Errorf("history store: %w", err)
		}
		s.history = h
		if err := s.replay(ctx); err != nil {
			_ = h.Close()
			s.history = nil
			return fmt.Errorf("replay history: %w", err)
		}
		wopts = append(wopts, workerpool.WithHistory(h))
	}

	s.queue = matchqueue.NewInMemoryQueue(matchqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.engine, s.leaderboard, wopts...)
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("teams", s.engine.Count()),
		logger.String("mov_method", s.method.String()),
	)
	return nil
}

// replay re-rates stored matches so a restart resumes from the same state.
func (s *Service) replay(ctx context.Context) error {
	n := 0
	err := s.history.Matches(ctx, func(m model.Match) error {
		out, err := s.engine.Rate(ctx, m)
		if err != nil {
			return err
		}
		for _, st := range [...]model.TeamRating{out.Home, out.Away} {
			if _, err := s.leaderboard.Upsert(ctx, st.Team, st.Rating, st.Played, st.Seq); err != nil {
				return err
			}
		}
		s.deduper.SeenAndRecord(ctx, m.MatchID)
		n++
		return nil
	})
	if n > 0 {
		s.logger.Info(ctx, "replayed match history", logger.Int("matches", n))
	}
	return err
}

// Stop drains the queue, waits for the workers and closes the stores.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping rating service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.started = false
	s.logger.Info(ctx, "rating service stopped")
	return errors.Join(errs...)
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// SeenAndRecord reports whether id was already submitted and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordMatchDuplicate()
	}
	return seen
}

// Unrecord forgets id so the match can be submitted again.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the number of remembered match ids.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Submit validates m and queues it for rating. A match id seen before is
// reported as a duplicate and not queued again.
func (s *Service) Submit(ctx context.Context, m model.Match) (duplicate bool, err error) {
	if !s.running() {
		return false, ErrNotStarted
	}
	if err := m.Validate(); err != nil {
		metrics.RecordMatchRejected("invalid")
		return false, err
	}
	// History keeps whole seconds; rate the same instant a restart replays.
	m.PlayedAt = m.PlayedAt.UTC().Truncate(time.Second)
	if s.SeenAndRecord(ctx, m.MatchID) {
		s.logger.Debug(ctx, "duplicate match", logger.String("match_id", m.MatchID))
		return true, nil
	}
	if err := s.queue.Enqueue(ctx, m); err != nil {
		s.Unrecord(ctx, m.MatchID)
		if errors.Is(err, matchqueue.ErrFull) {
			metrics.RecordMatchRejected("backpressure")
			return false, ErrBackpressure
		}
		if errors.Is(err, matchqueue.ErrClosed) {
			metrics.RecordMatchRejected("closed")
			return false, ErrNotStarted
		}
		metrics.RecordMatchRejected("enqueue")
		return false, err
	}
	return false, nil
}

// TopN returns the top N leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	return s.leaderboard.TopN(ctx, n)
}

// Rank returns the leaderboard entry of team.
func (s *Service) Rank(ctx context.Context, team string) (types.Entry, error) {
	if !s.running() {
		return types.Entry{}, ErrNotStarted
	}
	return s.leaderboard.Rank(ctx, team)
}

// Predict returns home's win probability against away from current ratings.
func (s *Service) Predict(_ context.Context, home, away string, neutral bool) (Prediction, error) {
	if !s.running() {
		return Prediction{}, ErrNotStarted
	}
	f := s.engine.Predict(home, away, neutral)
	p := Prediction{
		Home:       home,
		Away:       away,
		Neutral:    neutral,
		HomeRating: f.HomeRating,
		AwayRating: f.AwayRating,
		ProbHome:   f.ProbHome,
	}
	return p, nil
}

// History returns team's most recent rated matches.
func (s *Service) History(ctx context.Context, team string, limit int) ([]repository.HistoryEntry, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	if s.history == nil {
		return nil, ErrNoHistory
	}
	return s.history.Team(ctx, team, limit)
}

// Processed returns how many matches the workers have rated.
func (s *Service) Processed() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return 0
	}
	return s.pool.Processed()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"movMethod":   s.method.String(),
		"params":      s.params.Pretty(5),
	}
	if !s.started {
		return stats
	}

	stats["queueLength"] = s.queue.Len(ctx)
	stats["teams"] = s.leaderboard.Count(ctx)
	stats["processed"] = s.pool.Processed()
	stats["dedupeEntries"] = s.deduper.Size()
	if s.history != nil {
		sum, err := s.history.Summary(ctx)
		if err != nil {
			s.logger.Warn(ctx, "history summary failed", logger.Error(err))
		} else {
			stats["history"] = sum
		}
	}
	return stats
}
