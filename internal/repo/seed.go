package repo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/miradorstack/netpulse/internal/models"
	"github.com/miradorstack/netpulse/internal/utils"
)

// seedNodes is the number of nodes given an initial reading, starting at node 100.
const seedNodes = 20

// SeedSamples builds the initial readings used to populate an empty store.
func SeedSamples(now time.Time) []models.PerformanceSample {
	out := make([]models.PerformanceSample, 0, seedNodes)
	for i := 0; i < seedNodes; i++ {
		nodeID := 100 + i
		out = append(out, models.PerformanceSample{
			NodeID:     nodeID,
			NetworkID:  201 + i/5,
			Latency:    float64(15 + i%10),
			Throughput: float64(95 + i%15),
			ErrorRate:  utils.Round(0.2*float64(i%5), 3),
			Timestamp:  utils.MinutesBefore(now, 3*i),
		})
	}
	return out
}

// Seed inserts SeedSamples when the store is empty and reports how many were written.
func Seed(ctx context.Context, store SampleStore, now time.Time, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	count, err := store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	if count > 0 {
		logger.Info("sample store already populated, skipping seed", slog.Int64("records", count))
		return 0, nil
	}

	written := 0
	for _, sample := range SeedSamples(now) {
		if _, err := store.Save(ctx, sample); err != nil {
			return written, fmt.Errorf("seed node %d: %w", sample.NodeID, err)
		}
		written++
	}
	logger.Info("seeded sample store", slog.Int("records", written))
	return written, nil
}
