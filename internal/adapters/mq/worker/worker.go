// Package worker rates queued matches and publishes the new ratings.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/mrelo/internal/domain/model"
	"github.com/okian/mrelo/internal/domain/rating"
	"github.com/okian/mrelo/pkg/logger"
	"github.com/okian/mrelo/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Queue defines how workers receive matches.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Match
}

// Rater applies a match to the live ratings.
type Rater interface {
	Rate(ctx context.Context, m model.Match) (rating.Outcome, error)
}

// Leaderboard stores the latest rating per team. Upsert ignores updates
// whose seq is not newer than the stored one.
type Leaderboard interface {
	Upsert(ctx context.Context, team string, rating float64, played int, seq uint64) (bool, error)
}

// History persists rated matches.
type History interface {
	Record(ctx context.Context, o rating.Outcome) error
}

// Worker processes matches until its queue is drained or ctx is done.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue       Queue
	rater       Rater
	board       Leaderboard
	history     History
	onProcessed func(rating.Outcome)
	name        string

	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, r Rater, b Leaderboard, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:  q,
		rater:  r,
		board:  b,
		name:   "worker",
		done:   make(chan struct{}),
		logger: logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. It returns once the queue is closed and
// drained, or ctx is done.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	for m := range w.queue.Dequeue(ctx) {
		if err := w.process(ctx, m); err != nil {
			w.logger.Error(ctx, "error processing match", logger.String("match_id", m.MatchID), logger.Error(err))
		}
	}
}

// Shutdown waits for Run to return. Stopping is driven by closing the queue
// or cancelling the context given to Run.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, m model.Match) error { //nolint:gocritic // hugeParam: received by value from the queue
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	rateStart := time.Now()
	out, err := w.rater.Rate(ctx, m)
	metrics.RecordRatingLatency(float64(time.Since(rateStart).Milliseconds()))
	if err != nil {
		metrics.RecordRatingError()
		metrics.RecordWorkerError("rate")
		return fmt.Errorf("rate match %s: %w", m.MatchID, err)
	}

	for _, st := range [...]model.TeamRating{out.Home, out.Away} {
		updated, err := w.board.Upsert(ctx, st.Team, st.Rating, st.Played, st.Seq)
		if err != nil {
			metrics.RecordWorkerError("leaderboard")
			return fmt.Errorf("leaderboard update for %s: %w", st.Team, err)
		}
		if updated {
			metrics.RecordLeaderboardUpdate()
		}
	}

	if w.history != nil {
		if err := w.history.Record(ctx, out); err != nil {
			// ratings are already published; history is best effort
			metrics.RecordWorkerError("history")
			w.logger.Warn(ctx, "history write failed", logger.String("match_id", m.MatchID), logger.Error(err))
		}
	}

	metrics.RecordMatchProcessed()
	if w.onProcessed != nil {
		w.onProcessed(out)
	}
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	cancel    context.CancelFunc
	processed atomic.Int64
	logger    logger.Logger
}

// NewPool creates workerCount workers. Ratings depend on match order, so a
// count above one trades strict submission order for throughput.
func NewPool(workerCount int, q Queue, r Rater, b Leaderboard, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, r, b, wopts...)
		next := w.onProcessed
		w.onProcessed = func(o rating.Outcome) {
			p.processed.Add(1)
			if next != nil {
				next(o)
			}
		}
		p.workers[i] = w
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many matches were rated and published.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue, lets workers drain it and waits for them. When
// ctx expires first the remaining matches are abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
			break
		}
	}
	if p.cancel != nil {
		p.cancel()
	}
	if firstErr != nil {
		for _, w := range p.workers {
			<-w.done
		}
	}
	return firstErr
}
