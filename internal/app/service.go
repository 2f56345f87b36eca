// Package service runs many bouts at once on sharded workers and exposes
// the operations required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/varbox/internal/adapters/mq/queue"
	workerpool "github.com/okian/varbox/internal/adapters/mq/worker"
	"github.com/okian/varbox/internal/adapters/repository"
	"github.com/okian/varbox/internal/domain/bout"
	"github.com/okian/varbox/internal/domain/dedupe"
	"github.com/okian/varbox/internal/domain/model"
	"github.com/okian/varbox/pkg/logger"
	"github.com/okian/varbox/pkg/metrics"
)

type boutState struct {
	mu      sync.Mutex
	id      string
	engine  *bout.Engine
	created time.Time
	saved   bool

	// admit orders frame admission against FinishBout and guards closed.
	admit  sync.Mutex
	closed bool
}

// Service owns the live bouts and the worker pool that feeds them.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	sequencer dedupe.Sequencer
	pool      *workerpool.ShardedPool
	bouts     map[string]*boutState

	workerCount   int
	queueSize     int
	sequencerSize int
	boutCfg       bout.Config

	started bool
	logger  logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		queueSize:     1024,
		sequencerSize: 10000,
		boutCfg:       bout.DefaultConfig(),
		bouts:         make(map[string]*boutState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}

	s.logger.Info(ctx, "starting scoring service...")

	s.sequencer = dedupe.NewInMemorySequencer(dedupe.WithMaxSize(s.sequencerSize))
	s.pool = workerpool.NewShardedPool(s.workerCount, workerpool.ProcessorFunc(s.process),
		workerpool.WithShardCapacity(s.queueSize),
		workerpool.WithPoolLogger(s.logger.Named("worker")),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("sequencerSize", s.sequencerSize),
	)
	return nil
}

// Stop drains the workers and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	pool, store := s.pool, s.store
	unfinished := len(s.bouts)
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping scoring service...")

	// Queued frames still reach their bouts while the pool drains.
	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker shutdown failed", logger.Error(err))
	}
	if err := store.Close(); err != nil {
		s.logger.Error(ctx, "closing store failed", logger.Error(err))
	}
	s.logger.Info(ctx, "scoring service stopped", logger.Int("unfinishedBouts", unfinished))
}

// CreateBout registers a new bout and returns its id.
func (s *Service) CreateBout(ctx context.Context, settings bout.Settings) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return "", ErrNotStarted
	}

	id := uuid.NewString()
	s.bouts[id] = &boutState{
		id: id,
		engine: bout.New(settings.Apply(s.boutCfg),
			bout.WithLogger(s.logger.With(logger.String("bout_id", id))),
		),
		created: time.Now(),
	}
	metrics.UpdateActiveBouts(len(s.bouts))
	s.logger.Info(ctx, "bout created", logger.String("bout_id", id))
	return id, nil
}

func (s *Service) lookup(boutID string) (*boutState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.boutLocked(boutID)
}

// boutLocked finds a bout; callers hold s.mu.
func (s *Service) boutLocked(boutID string) (*boutState, error) {
	b, ok := s.bouts[boutID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", boutID, ErrBoutNotFound)
	}
	return b, nil
}

// SubmitFrame admits frame for asynchronous processing. Indices must be
// strictly increasing per bout; a frame that cannot be queued is released
// so the caller can retry it.
func (s *Service) SubmitFrame(ctx context.Context, boutID string, frame *model.Frame) error {
	if frame == nil {
		return fmt.Errorf("nil frame: %w", dedupe.ErrOutOfOrder)
	}
	b, err := s.lookup(boutID)
	if err != nil {
		return err
	}
	b.admit.Lock()
	defer b.admit.Unlock()
	if b.closed {
		return ErrBoutFinished
	}

	prev, err := s.sequencer.Admit(ctx, boutID, frame.Index)
	if err != nil {
		metrics.RecordFrameRejected("sequence")
		return fmt.Errorf("frame %d: %w", frame.Index, err)
	}
	if !s.pool.Submit(ctx, queue.Job{BoutID: boutID, Frame: frame}) {
		s.sequencer.Rollback(ctx, boutID, prev)
		metrics.RecordFrameRejected("backpressure")
		return ErrBackpressure
	}
	return nil
}

// process runs on the bout's shard worker.
func (s *Service) process(ctx context.Context, job queue.Job) error {
	s.mu.RLock()
	b, err := s.boutLocked(job.BoutID)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	res, err := b.engine.ProcessFrame(ctx, job.Frame)
	if err != nil {
		return err
	}
	if res.Tick.BoutOver && !b.saved {
		if _, err := s.save(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// save persists the bout; callers hold b.mu.
func (s *Service) save(ctx context.Context, b *boutState) (model.Scorecard, error) {
	sc := b.engine.Scorecard()
	sc.BoutID = b.id
	if err := s.store.SaveScorecard(ctx, sc); err != nil {
		metrics.RecordErrorByComponent("service", "save")
		return sc, fmt.Errorf("save %s: %w", b.id, err)
	}
	b.saved = true
	return sc, nil
}

// AddKnockdown records a knockdown against role in the bout's current round.
func (s *Service) AddKnockdown(ctx context.Context, boutID string, role model.Role, count int) error {
	b, err := s.lookup(boutID)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.engine.AddKnockdown(role, count); err != nil {
		return err
	}
	s.logger.Info(ctx, "knockdown recorded",
		logger.String("bout_id", boutID), logger.String("role", string(role)), logger.Int("count", count))
	return nil
}

// AddDeduction deducts points from role in the bout's current round.
func (s *Service) AddDeduction(ctx context.Context, boutID string, role model.Role, points int) error {
	b, err := s.lookup(boutID)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.engine.AddDeduction(role, points); err != nil {
		return err
	}
	s.logger.Info(ctx, "deduction recorded",
		logger.String("bout_id", boutID), logger.String("role", string(role)), logger.Int("points", points))
	return nil
}

// Scorecard returns the live scorecard of a running bout, or the saved one
// of a finished bout.
func (s *Service) Scorecard(ctx context.Context, boutID string) (model.Scorecard, error) {
	b, err := s.lookup(boutID)
	if err == nil {
		b.mu.Lock()
		defer b.mu.Unlock()
		sc := b.engine.Scorecard()
		sc.BoutID = b.id
		return sc, nil
	}
	if errors.Is(err, ErrBoutNotFound) {
		return s.SavedScorecard(ctx, boutID)
	}
	return model.Scorecard{}, err
}

// SavedScorecard reads a scorecard from the store.
func (s *Service) SavedScorecard(ctx context.Context, boutID string) (model.Scorecard, error) {
	store, err := s.activeStore()
	if err != nil {
		return model.Scorecard{}, err
	}
	sc, err := store.Scorecard(ctx, boutID)
	if err != nil {
		return model.Scorecard{}, fmt.Errorf("%s: %w", boutID, err)
	}
	return sc, nil
}

// ListScorecards lists saved scorecards, most recent first.
func (s *Service) ListScorecards(ctx context.Context, limit int) ([]repository.Summary, error) {
	store, err := s.activeStore()
	if err != nil {
		return nil, err
	}
	return store.List(ctx, limit)
}

func (s *Service) activeStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// FinishBout waits for the bout's queued frames, judges an unfinished round,
// saves the scorecard and releases the bout.
func (s *Service) FinishBout(ctx context.Context, boutID string) (model.Scorecard, error) {
	b, err := s.lookup(boutID)
	if err != nil {
		return model.Scorecard{}, err
	}

	b.admit.Lock()
	if b.closed {
		b.admit.Unlock()
		return model.Scorecard{}, ErrBoutFinished
	}
	b.closed = true
	b.admit.Unlock()

	if err := s.pool.Flush(ctx, boutID); err != nil {
		b.admit.Lock()
		b.closed = false
		b.admit.Unlock()
		if errors.Is(err, queue.ErrFull) {
			return model.Scorecard{}, ErrBackpressure
		}
		return model.Scorecard{}, err
	}

	b.mu.Lock()
	b.engine.Finish(ctx)
	sc, err := s.save(ctx, b)
	b.mu.Unlock()
	if err != nil {
		return sc, err
	}

	s.mu.Lock()
	delete(s.bouts, boutID)
	active := len(s.bouts)
	s.mu.Unlock()
	s.sequencer.Forget(ctx, boutID)

	metrics.RecordBoutFinished()
	metrics.UpdateActiveBouts(active)
	s.logger.Info(ctx, "bout finished",
		logger.String("bout_id", boutID),
		logger.Int("red", sc.Totals.Red),
		logger.Int("blue", sc.Totals.Blue),
		logger.Duration("elapsed", time.Since(b.created)),
	)
	return sc, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"sequencerSize": s.sequencerSize,
	}

	if s.started {
		queueLen := s.pool.Len(ctx)
		stats["queueLength"] = queueLen
		stats["queueCapacity"] = s.pool.Capacity()
		stats["activeBouts"] = len(s.bouts)
		stats["savedBouts"] = s.store.Count(ctx)
		stats["trackedSequences"] = s.sequencer.Size()

		metrics.UpdateActiveBouts(len(s.bouts))
	}
	return stats
}
