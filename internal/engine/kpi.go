package engine

import (
	"math"
	"time"

	"github.com/miradorstack/netpulse/internal/models"
	"github.com/miradorstack/netpulse/internal/utils"
)

// Summarize computes the fleet KPI summary over the latest sample of every node.
func Summarize(latest []models.PerformanceSample, now time.Time) models.KPISummary {
	if len(latest) == 0 {
		return models.KPISummary{
			Message:      models.NoDataMessage,
			SystemStatus: models.StatusNoData,
			LastUpdated:  now,
		}
	}

	var (
		sumLatency, sumThroughput, sumErrorRate float64
		healthy, critical                       int
	)
	maxLatency := latest[0].Latency
	minThroughput := latest[0].Throughput
	maxErrorRate := latest[0].ErrorRate

	for _, s := range latest {
		sumLatency += s.Latency
		sumThroughput += s.Throughput
		sumErrorRate += s.ErrorRate
		if IsHealthy(s) {
			healthy++
		}
		if IsCritical(s) {
			critical++
		}
		maxLatency = math.Max(maxLatency, s.Latency)
		minThroughput = math.Min(minThroughput, s.Throughput)
		maxErrorRate = math.Max(maxErrorRate, s.ErrorRate)
	}

	total := len(latest)
	n := float64(total)
	return models.KPISummary{
		TotalNodes:        total,
		HealthyNodes:      healthy,
		CriticalNodes:     critical,
		HealthPercentage:  int(math.Round(float64(healthy) * 100 / n)),
		AverageLatency:    round2(sumLatency / n),
		AverageThroughput: round2(sumThroughput / n),
		AverageErrorRate:  round3(sumErrorRate / n),
		MaxLatency:        round2(maxLatency),
		MinThroughput:     round2(minThroughput),
		MaxErrorRate:      round3(maxErrorRate),
		SystemStatus:      DetermineStatus(healthy, total, critical),
		LastUpdated:       now,
		Networks:          SummarizeNetworks(latest),
	}
}

// DetermineStatus derives the overall status. The health ratio is compared unrounded,
// so 89.5% healthy is WARNING even though it displays as 90.
func DetermineStatus(healthy, total, critical int) models.SystemStatus {
	if total == 0 {
		return models.StatusNoData
	}
	if critical > 0 {
		return models.StatusCritical
	}
	pct := float64(healthy) * 100 / float64(total)
	switch {
	case pct >= 90:
		return models.StatusHealthy
	case pct >= 70:
		return models.StatusWarning
	default:
		return models.StatusDegraded
	}
}

// SummarizeNetworks groups latest samples by network and computes per-group statistics.
func SummarizeNetworks(latest []models.PerformanceSample) map[string]models.NetworkSummary {
	type acc struct {
		total, healthy                          int
		sumLatency, sumThroughput, sumErrorRate float64
	}
	byNetwork := make(map[int]*acc)
	for _, s := range latest {
		a, ok := byNetwork[s.NetworkID]
		if !ok {
			a = &acc{}
			byNetwork[s.NetworkID] = a
		}
		a.total++
		if IsHealthy(s) {
			a.healthy++
		}
		a.sumLatency += s.Latency
		a.sumThroughput += s.Throughput
		a.sumErrorRate += s.ErrorRate
	}

	out := make(map[string]models.NetworkSummary, len(byNetwork))
	for id, a := range byNetwork {
		n := float64(a.total)
		out[models.NetworkKey(id)] = models.NetworkSummary{
			NetworkID:     id,
			TotalNodes:    a.total,
			HealthyNodes:  a.healthy,
			AvgLatency:    round2(a.sumLatency / n),
			AvgThroughput: round2(a.sumThroughput / n),
			AvgErrorRate:  round3(a.sumErrorRate / n),
		}
	}
	return out
}

func round2(v float64) float64 { return utils.Round(v, 2) }

func round3(v float64) float64 { return utils.Round(v, 3) }
