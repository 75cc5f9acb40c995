package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/avolkoff/pixbatch/internal/domain"
)

// BatchStore keeps finished batches in memory for the lifetime of a user
// session. There is deliberately no persistence behind it: buffers exist
// until downloaded, deleted, or expired by the janitor.
type BatchStore struct {
	mu      sync.RWMutex
	batches map[string]*domain.Batch
	ttl     time.Duration
}

func NewBatchStore(ttl time.Duration) *BatchStore {
	return &BatchStore{
		batches: make(map[string]*domain.Batch),
		ttl:     ttl,
	}
}

func (s *BatchStore) Put(batch *domain.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[batch.ID] = batch
}

func (s *BatchStore) Get(id string) (*domain.Batch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batch, ok := s.batches[id]
	return batch, ok
}

func (s *BatchStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[id]; !ok {
		return false
	}
	delete(s.batches, id)
	return true
}

// StartJanitor evicts expired batches until ctx is cancelled.
func (s *BatchStore) StartJanitor(ctx context.Context) {
	interval := s.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.evictExpired()
			}
		}
	}()
}

func (s *BatchStore) evictExpired() {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, batch := range s.batches {
		if batch.CreatedAt.Before(cutoff) {
			delete(s.batches, id)
			zlog.Logger.Info().
				Str("batch_id", id).
				Time("created_at", batch.CreatedAt).
				Msg("expired batch evicted")
		}
	}
}
