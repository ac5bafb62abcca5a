package engine

import (
	"cmp"
	"slices"

	"github.com/miradorstack/netpulse/internal/models"
)

// RankAnomalies keeps non-healthy samples and orders them critical first, then by
// descending latency, then by node id.
func RankAnomalies(latest []models.PerformanceSample) []models.Anomaly {
	anomalies := make([]models.Anomaly, 0)
	for _, sample := range latest {
		if IsHealthy(sample) {
			continue
		}
		anomalies = append(anomalies, models.Anomaly{
			Sample:   sample,
			Tier:     Classify(sample),
			Breaches: Breaches(sample),
		})
	}

	slices.SortStableFunc(anomalies, compareAnomalies)
	return anomalies
}

func compareAnomalies(a, b models.Anomaly) int {
	aCritical := a.Tier == models.TierCritical
	bCritical := b.Tier == models.TierCritical
	if aCritical != bCritical {
		if aCritical {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(b.Sample.Latency, a.Sample.Latency); c != 0 {
		return c
	}
	return cmp.Compare(a.Sample.NodeID, b.Sample.NodeID)
}
