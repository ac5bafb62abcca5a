package engine

import (
	"slices"

	"github.com/miradorstack/netpulse/internal/models"
)

// LatestPerNode reduces samples to the newest reading per node, ordered by node id.
// Arrival order is irrelevant: the greatest timestamp wins, ties keep the first seen.
func LatestPerNode(samples []models.PerformanceSample) []models.PerformanceSample {
	if len(samples) == 0 {
		return []models.PerformanceSample{}
	}

	latest := make(map[int]models.PerformanceSample)
	for _, sample := range samples {
		current, ok := latest[sample.NodeID]
		if !ok || sample.Timestamp.After(current.Timestamp) {
			latest[sample.NodeID] = sample
		}
	}

	out := make([]models.PerformanceSample, 0, len(latest))
	for _, sample := range latest {
		out = append(out, sample)
	}
	slices.SortFunc(out, func(a, b models.PerformanceSample) int {
		return a.NodeID - b.NodeID
	})
	return out
}
