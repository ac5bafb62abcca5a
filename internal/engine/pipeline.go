package engine

import (
	"log/slog"
	"time"

	"github.com/miradorstack/netpulse/internal/models"
)

// Snapshot is the evaluated state of the fleet at one instant.
type Snapshot struct {
	Latest    []models.PerformanceSample
	Summary   models.KPISummary
	Anomalies []models.Anomaly
	Groups    models.HealthGroups
}

// Pipeline runs the latest-index, classification, aggregation and ranking stages
// over a raw sample set.
type Pipeline struct {
	logger *slog.Logger
	rules  *RuleEngine
}

// NewPipeline constructs a pipeline; rules may be nil.
func NewPipeline(logger *slog.Logger, rules *RuleEngine) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{logger: logger, rules: rules}
}

// Evaluate reduces samples to one per node and derives every read model from that set.
func (p *Pipeline) Evaluate(samples []models.PerformanceSample, now time.Time) Snapshot {
	latest := LatestPerNode(samples)
	if len(latest) == 0 {
		p.logger.Warn("no performance data available")
	}

	snapshot := Snapshot{
		Latest:    latest,
		Summary:   Summarize(latest, now),
		Anomalies: p.Anomalies(latest),
		Groups:    GroupByHealth(latest),
	}

	p.logger.Debug("evaluated fleet snapshot",
		slog.Int("samples", len(samples)),
		slog.Int("nodes", len(latest)),
		slog.Int("anomalies", len(snapshot.Anomalies)),
		slog.String("status", string(snapshot.Summary.SystemStatus)),
	)
	return snapshot
}

// Anomalies ranks non-healthy latest samples and attaches rule-pack recommendations.
func (p *Pipeline) Anomalies(latest []models.PerformanceSample) []models.Anomaly {
	anomalies := RankAnomalies(latest)
	if p.rules == nil {
		return anomalies
	}
	for i := range anomalies {
		anomalies[i].Recommendations = p.rules.Recommend(anomalies[i])
	}
	return anomalies
}
