package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/miradorstack/netpulse/internal/cache"
	"github.com/miradorstack/netpulse/internal/engine"
	"github.com/miradorstack/netpulse/internal/metrics"
	"github.com/miradorstack/netpulse/internal/models"
	"github.com/miradorstack/netpulse/internal/repo"
	"github.com/miradorstack/netpulse/internal/tracing"
	"github.com/miradorstack/netpulse/internal/utils"
)

// SummaryCacheKey is the cache entry holding the serialized KPI summary.
const SummaryCacheKey = "kpi_summary"

// MetricsService answers the read API from the sample store.
type MetricsService struct {
	logger     *slog.Logger
	store      repo.SampleStore
	pipeline   *engine.Pipeline
	cache      cache.Provider
	summaryTTL time.Duration
	now        func() time.Time
	latencies  *utils.LatencyTracker
	tracer     trace.Tracer
}

// MetricsOption customises a MetricsService.
type MetricsOption func(*MetricsService)

// WithCache caches KPI summaries in provider for ttl. A non-positive ttl disables caching.
func WithCache(provider cache.Provider, ttl time.Duration) MetricsOption {
	return func(s *MetricsService) {
		if provider != nil && ttl > 0 {
			s.cache = provider
			s.summaryTTL = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) MetricsOption {
	return func(s *MetricsService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMetricsService constructs the read service. pipeline may be nil.
func NewMetricsService(logger *slog.Logger, store repo.SampleStore, pipeline *engine.Pipeline, opts ...MetricsOption) *MetricsService {
	if logger == nil {
		logger = slog.Default()
	}
	if pipeline == nil {
		pipeline = engine.NewPipeline(logger, nil)
	}
	s := &MetricsService{
		logger:    logger,
		store:     store,
		pipeline:  pipeline,
		cache:     cache.NoopProvider{},
		now:       time.Now,
		latencies: utils.NewLatencyTracker(1024),
		tracer:    tracing.Tracer("services"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LatestMetrics returns the newest sample of every node, ordered by node id.
func (s *MetricsService) LatestMetrics(ctx context.Context) ([]models.PerformanceSample, error) {
	var latest []models.PerformanceSample
	err := s.aggregate(ctx, "latest", func(samples []models.PerformanceSample) {
		latest = engine.LatestPerNode(samples)
	})
	return latest, err
}

// KPISummary returns the fleet summary, served from cache while it is fresh.
func (s *MetricsService) KPISummary(ctx context.Context) (models.KPISummary, error) {
	if summary, ok := s.cachedSummary(ctx); ok {
		return summary, nil
	}

	var summary models.KPISummary
	err := s.aggregate(ctx, "kpi_summary", func(samples []models.PerformanceSample) {
		summary = engine.Summarize(engine.LatestPerNode(samples), s.now())
	})
	if err != nil {
		return models.KPISummary{}, err
	}
	metrics.SetFleetHealth(summary)
	s.storeSummary(ctx, summary)
	return summary, nil
}

// Anomalies returns non-healthy nodes, critical first, with rule recommendations attached.
func (s *MetricsService) Anomalies(ctx context.Context) ([]models.Anomaly, error) {
	var anomalies []models.Anomaly
	err := s.aggregate(ctx, "anomalies", func(samples []models.PerformanceSample) {
		anomalies = s.pipeline.Anomalies(engine.LatestPerNode(samples))
	})
	return anomalies, err
}

// HealthGroups partitions the latest samples by tier.
func (s *MetricsService) HealthGroups(ctx context.Context) (models.HealthGroups, error) {
	var groups models.HealthGroups
	err := s.aggregate(ctx, "health_groups", func(samples []models.PerformanceSample) {
		groups = engine.GroupByHealth(engine.LatestPerNode(samples))
	})
	return groups, err
}

// Snapshot evaluates every read model over one store read.
func (s *MetricsService) Snapshot(ctx context.Context) (engine.Snapshot, error) {
	var snapshot engine.Snapshot
	err := s.aggregate(ctx, "snapshot", func(samples []models.PerformanceSample) {
		snapshot = s.pipeline.Evaluate(samples, s.now())
	})
	if err == nil {
		metrics.SetFleetHealth(snapshot.Summary)
	}
	return snapshot, err
}

// RangeSummary averages every sample recorded inside the named window.
func (s *MetricsService) RangeSummary(ctx context.Context, token string) (models.RangeSummary, error) {
	const op = "services.RangeSummary"
	r, err := models.ParseTimeRange(token)
	if err != nil {
		return models.RangeSummary{}, utils.InvalidInput(op, err.Error())
	}
	if s.store == nil {
		return models.RangeSummary{}, utils.NewAppError(op, utils.KindUnavailable, "sample store not configured", nil)
	}

	ctx, span := s.tracer.Start(ctx, "metrics.range_summary", trace.WithAttributes(attribute.String("netpulse.range", string(r))))
	defer span.End()

	start := time.Now()
	since := s.now().Add(-r.Window())
	samples, err := s.store.FindAfter(ctx, since)
	if err != nil {
		span.RecordError(err)
		return models.RangeSummary{}, fmt.Errorf("load samples after %s: %w", utils.FormatTimestamp(since), err)
	}
	summary := engine.SummarizeRange(r, since, samples)
	s.observe("range_summary", time.Since(start))
	return summary, nil
}

// LatencyP95 returns the current p95 aggregation latency.
func (s *MetricsService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *MetricsService) aggregate(ctx context.Context, operation string, fn func([]models.PerformanceSample)) error {
	if s.store == nil {
		return utils.NewAppError("services."+operation, utils.KindUnavailable, "sample store not configured", nil)
	}

	ctx, span := s.tracer.Start(ctx, "metrics."+operation)
	defer span.End()

	start := time.Now()
	samples, err := s.store.FindAll(ctx)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("load samples failed", slog.String("operation", operation), slog.Any("error", err))
		return fmt.Errorf("load samples: %w", err)
	}
	span.SetAttributes(attribute.Int("netpulse.samples", len(samples)))
	fn(samples)
	s.observe(operation, time.Since(start))
	return nil
}

func (s *MetricsService) observe(operation string, duration time.Duration) {
	metrics.ObserveAggregation(operation, duration)
	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("aggregation latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}
}

func (s *MetricsService) cachedSummary(ctx context.Context) (models.KPISummary, bool) {
	raw, err := s.cache.Get(ctx, SummaryCacheKey)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("summary cache read failed", slog.Any("error", err))
		}
		return models.KPISummary{}, false
	}
	var summary models.KPISummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		s.logger.Warn("discarding undecodable cached summary", slog.Any("error", err))
		_ = s.cache.Del(ctx, SummaryCacheKey)
		return models.KPISummary{}, false
	}
	return summary, true
}

func (s *MetricsService) storeSummary(ctx context.Context, summary models.KPISummary) {
	if s.summaryTTL <= 0 {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		s.logger.Warn("encode summary for cache failed", slog.Any("error", err))
		return
	}
	if err := s.cache.Set(ctx, SummaryCacheKey, raw, s.summaryTTL); err != nil {
		s.logger.Warn("summary cache write failed", slog.Any("error", err))
	}
}
