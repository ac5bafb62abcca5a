package engine

import "github.com/miradorstack/netpulse/internal/models"

// Fixed health thresholds.
const (
	HighLatencyThreshold   = 100.0 // ms
	LowThroughputThreshold = 50.0  // Mbps
	HighErrorRateThreshold = 2.0   // %
)

// IsHealthy reports whether a sample is inside every healthy bound.
func IsHealthy(s models.PerformanceSample) bool {
	return s.Latency < HighLatencyThreshold &&
		s.Throughput > LowThroughputThreshold &&
		s.ErrorRate < HighErrorRateThreshold
}

// IsCritical reports whether a sample is past any critical bound. It is evaluated
// independently of IsHealthy.
func IsCritical(s models.PerformanceSample) bool {
	return s.Latency > HighLatencyThreshold*1.5 ||
		s.Throughput < LowThroughputThreshold*0.5 ||
		s.ErrorRate > HighErrorRateThreshold*2.0
}

// Classify maps a sample to its health tier. Critical takes precedence.
func Classify(s models.PerformanceSample) models.HealthTier {
	switch {
	case IsCritical(s):
		return models.TierCritical
	case IsHealthy(s):
		return models.TierHealthy
	default:
		return models.TierWarning
	}
}

// Breaches lists the healthy bounds a sample fails, in latency, throughput, error-rate order.
func Breaches(s models.PerformanceSample) []models.Breach {
	var out []models.Breach
	if s.Latency >= HighLatencyThreshold {
		out = append(out, models.BreachLatency)
	}
	if s.Throughput <= LowThroughputThreshold {
		out = append(out, models.BreachThroughput)
	}
	if s.ErrorRate >= HighErrorRateThreshold {
		out = append(out, models.BreachErrorRate)
	}
	return out
}

// GroupByHealth partitions latest samples into tiers, preserving input order within each.
func GroupByHealth(latest []models.PerformanceSample) models.HealthGroups {
	groups := models.HealthGroups{
		Healthy:  []models.PerformanceSample{},
		Warning:  []models.PerformanceSample{},
		Critical: []models.PerformanceSample{},
	}
	for _, sample := range latest {
		switch Classify(sample) {
		case models.TierCritical:
			groups.Critical = append(groups.Critical, sample)
		case models.TierHealthy:
			groups.Healthy = append(groups.Healthy, sample)
		default:
			groups.Warning = append(groups.Warning, sample)
		}
	}
	return groups
}
