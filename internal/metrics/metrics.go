package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miradorstack/netpulse/internal/models"
)

// Generation modes used as the "mode" label.
const (
	ModeScheduled  = "scheduled"
	ModeHistorical = "historical"
	ModeScenario   = "scenario"
	ModeDiverse    = "diverse"
	ModeManual     = "manual"
)

// Ingestion failure reasons used as the "reason" label.
const (
	ReasonDecode   = "decode"
	ReasonInvalid  = "invalid"
	ReasonPersist  = "persist"
	ReasonConsumer = "consumer"
)

var (
	samplesGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netpulse",
			Name:      "samples_generated_total",
			Help:      "Synthetic samples published by the simulator, partitioned by generation mode.",
		},
		[]string{"mode"},
	)

	publishFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "netpulse",
			Name:      "publish_failures_total",
			Help:      "Samples the transport refused to publish.",
		},
	)

	samplesIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "netpulse",
			Name:      "samples_ingested_total",
			Help:      "Samples consumed from the transport and appended to the store.",
		},
	)

	ingestFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netpulse",
			Name:      "ingest_failures_total",
			Help:      "Messages dropped during ingestion, partitioned by reason.",
		},
		[]string{"reason"},
	)

	aggregationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "netpulse",
			Name:      "aggregation_seconds",
			Help:      "Read-model computation latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	nodesByTier = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "netpulse",
			Name:      "nodes_by_tier",
			Help:      "Nodes per health tier in the most recent KPI summary.",
		},
		[]string{"tier"},
	)

	healthPercentage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "netpulse",
			Name:      "health_percentage",
			Help:      "Rounded share of healthy nodes in the most recent KPI summary.",
		},
	)

	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netpulse",
			Name:      "simulator_jobs_total",
			Help:      "Background simulator jobs by terminal state.",
		},
		[]string{"state"},
	)
)

// Register attaches netpulse collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		samplesGeneratedTotal,
		publishFailuresTotal,
		samplesIngestedTotal,
		ingestFailuresTotal,
		aggregationSeconds,
		nodesByTier,
		healthPercentage,
		jobsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveGenerated counts one published sample.
func ObserveGenerated(mode string) {
	samplesGeneratedTotal.WithLabelValues(mode).Inc()
}

// ObservePublishFailure counts one rejected publish.
func ObservePublishFailure() {
	publishFailuresTotal.Inc()
}

// ObserveIngested counts one stored sample.
func ObserveIngested() {
	samplesIngestedTotal.Inc()
}

// ObserveIngestFailure counts one dropped message.
func ObserveIngestFailure(reason string) {
	ingestFailuresTotal.WithLabelValues(reason).Inc()
}

// ObserveAggregation records how long a read-model computation took.
func ObserveAggregation(operation string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	aggregationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveJob counts a job reaching a terminal state.
func ObserveJob(state string) {
	jobsTotal.WithLabelValues(state).Inc()
}

// SetFleetHealth publishes tier gauges from a KPI summary.
func SetFleetHealth(summary models.KPISummary) {
	warning := summary.TotalNodes - summary.HealthyNodes - summary.CriticalNodes
	if warning < 0 {
		warning = 0
	}
	nodesByTier.WithLabelValues(string(models.TierHealthy)).Set(float64(summary.HealthyNodes))
	nodesByTier.WithLabelValues(string(models.TierWarning)).Set(float64(warning))
	nodesByTier.WithLabelValues(string(models.TierCritical)).Set(float64(summary.CriticalNodes))
	healthPercentage.Set(float64(summary.HealthPercentage))
}
