package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/varbox/internal/domain/model"
	"github.com/okian/varbox/pkg/metrics"
)

// MemoryStore keeps scorecards in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	cards map[string]model.Scorecard
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cards: make(map[string]model.Scorecard)}
}

func (s *MemoryStore) SaveScorecard(ctx context.Context, sc model.Scorecard) error {
	if err := validate(sc); err != nil {
		metrics.RecordScorecardSaveError()
		return err
	}
	s.mu.Lock()
	s.cards[sc.BoutID] = clone(sc)
	s.mu.Unlock()
	metrics.RecordScorecardSaved()
	return nil
}

func (s *MemoryStore) Scorecard(ctx context.Context, boutID string) (model.Scorecard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.cards[boutID]
	if !ok {
		return model.Scorecard{}, ErrNotFound
	}
	return clone(sc), nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	out := make([]Summary, 0, len(s.cards))
	for _, sc := range s.cards {
		out = append(out, summarize(sc))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].BoutID < out[j].BoutID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cards)
}

func (s *MemoryStore) Close() error { return nil }

func clone(sc model.Scorecard) model.Scorecard {
	sc.Events = append([]model.StrikeEvent(nil), sc.Events...)
	sc.Decisions = append([]model.RoundDecision(nil), sc.Decisions...)
	sc.Rounds = append([]model.RoundStats(nil), sc.Rounds...)
	return sc
}
