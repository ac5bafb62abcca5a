package repo

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/miradorstack/netpulse/internal/models"
)

// MemoryStore keeps samples in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	samples []models.PerformanceSample
	nextID  int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Save appends sample with the next sequential ID.
func (s *MemoryStore) Save(_ context.Context, sample models.PerformanceSample) (models.PerformanceSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sample.ID = s.nextID
	s.nextID++
	s.samples = append(s.samples, sample)
	return sample, nil
}

// FindAll returns a copy of every sample ordered by timestamp.
func (s *MemoryStore) FindAll(_ context.Context) ([]models.PerformanceSample, error) {
	s.mu.RLock()
	out := slices.Clone(s.samples)
	s.mu.RUnlock()
	sortByTimestamp(out)
	return out, nil
}

// FindAfter returns samples recorded strictly after t.
func (s *MemoryStore) FindAfter(_ context.Context, t time.Time) ([]models.PerformanceSample, error) {
	s.mu.RLock()
	out := make([]models.PerformanceSample, 0)
	for _, sample := range s.samples {
		if sample.Timestamp.After(t) {
			out = append(out, sample)
		}
	}
	s.mu.RUnlock()
	sortByTimestamp(out)
	return out, nil
}

// Count reports the number of stored samples.
func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.samples)), nil
}

func sortByTimestamp(samples []models.PerformanceSample) {
	slices.SortStableFunc(samples, func(a, b models.PerformanceSample) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
}

var _ SampleStore = (*MemoryStore)(nil)
