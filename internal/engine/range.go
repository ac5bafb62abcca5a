package engine

import (
	"time"

	"github.com/miradorstack/netpulse/internal/models"
)

// SummarizeRange averages every sample recorded since the start of the window.
// Unlike Summarize it does not reduce to one sample per node, and values are not rounded.
func SummarizeRange(r models.TimeRange, since time.Time, samples []models.PerformanceSample) models.RangeSummary {
	summary := models.RangeSummary{Range: r, SampleSize: len(samples), Since: since}
	if len(samples) == 0 {
		return summary
	}

	var latency, throughput, errorRate float64
	for _, s := range samples {
		latency += s.Latency
		throughput += s.Throughput
		errorRate += s.ErrorRate
	}
	n := float64(len(samples))
	summary.AvgLatency = latency / n
	summary.AvgThroughput = throughput / n
	summary.AvgErrorRate = errorRate / n
	return summary
}
