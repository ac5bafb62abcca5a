package repo

import (
	"context"
	"time"

	"github.com/miradorstack/netpulse/internal/models"
)

// SampleStore persists performance samples.
type SampleStore interface {
	// Save appends a sample and returns it with the store-assigned ID.
	Save(ctx context.Context, sample models.PerformanceSample) (models.PerformanceSample, error)
	// FindAll returns every stored sample ordered by timestamp.
	FindAll(ctx context.Context) ([]models.PerformanceSample, error)
	// FindAfter returns samples with a timestamp strictly after t, ordered by timestamp.
	FindAfter(ctx context.Context, t time.Time) ([]models.PerformanceSample, error)
	Count(ctx context.Context) (int64, error)
}
