package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/miradorstack/netpulse/internal/metrics"
	"github.com/miradorstack/netpulse/internal/models"
	"github.com/miradorstack/netpulse/internal/tracing"
	"github.com/miradorstack/netpulse/internal/utils"
)

// MaxHistoricalBatch caps a single historical generation request.
const MaxHistoricalBatch = 500

// Publisher accepts generated samples. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, sample models.PerformanceSample) error
}

// Config controls generation pacing.
type Config struct {
	Interval        time.Duration
	HistoricalDelay time.Duration
	DiverseDelay    time.Duration
}

// DefaultConfig mirrors the stock generation cadence.
func DefaultConfig() Config {
	return Config{
		Interval:        3 * time.Second,
		HistoricalDelay: 100 * time.Millisecond,
		DiverseDelay:    200 * time.Millisecond,
	}
}

// Stats describes the simulator setup.
type Stats struct {
	TotalNodes         int     `json:"totalNodes"`
	TotalNetworks      int     `json:"totalNetworks"`
	LatencyBaseline    float64 `json:"averageLatencyBaseline"`
	ThroughputBaseline float64 `json:"averageThroughputBaseline"`
	Interval           string  `json:"simulationInterval"`
	Generator          string  `json:"dataGenerator"`
	NodeProfiles       int     `json:"nodeProfiles"`
}

// Simulator publishes generated samples onto a Publisher.
type Simulator struct {
	gen    *Generator
	pub    Publisher
	cfg    Config
	logger *slog.Logger
	tracer trace.Tracer
}

// New constructs a Simulator.
func New(gen *Generator, pub Publisher, cfg Config, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Simulator{
		gen:    gen,
		pub:    pub,
		cfg:    cfg,
		logger: logger,
		tracer: tracing.Tracer("simulator"),
	}
}

// Config returns the pacing configuration in use.
func (s *Simulator) Config() Config { return s.cfg }

// GenerateOnce publishes one normal sample for a random node.
func (s *Simulator) GenerateOnce(ctx context.Context) (models.PerformanceSample, error) {
	sample := s.gen.Normal()
	if err := s.publish(ctx, sample, metrics.ModeScheduled); err != nil {
		return sample, err
	}
	s.logger.Debug("generated sample",
		slog.Int("node_id", sample.NodeID),
		slog.Int("network_id", sample.NetworkID),
		slog.Float64("latency", sample.Latency),
		slog.Float64("throughput", sample.Throughput),
		slog.Float64("error_rate", sample.ErrorRate),
	)
	return sample, nil
}

// SimulateScenario publishes one sample for nodeID shaped by the named scenario.
// Unrecognised scenario names fall back to normal generation.
func (s *Simulator) SimulateScenario(ctx context.Context, name string, nodeID int) (models.PerformanceSample, error) {
	const op = "simulator.SimulateScenario"
	if !IsKnownNode(nodeID) {
		return models.PerformanceSample{}, utils.InvalidInput(op,
			fmt.Sprintf("node id must be between %d and %d", FirstNodeID, LastNodeID))
	}

	sc := ParseScenario(name)
	sample := s.gen.Scenario(sc, nodeID)
	if err := s.publish(ctx, sample, metrics.ModeScenario); err != nil {
		return sample, err
	}
	s.logger.Info("simulated scenario",
		slog.String("scenario", sc.String()),
		slog.Int("node_id", nodeID),
		slog.Float64("latency", sample.Latency),
		slog.Float64("throughput", sample.Throughput),
		slog.Float64("error_rate", sample.ErrorRate),
	)
	return sample, nil
}

// ValidateHistoricalCount rejects batch sizes outside [0, MaxHistoricalBatch].
func ValidateHistoricalCount(count int) error {
	if count < 0 || count > MaxHistoricalBatch {
		return utils.InvalidInput("simulator.GenerateHistoricalBatch",
			fmt.Sprintf("count must be between 0 and %d", MaxHistoricalBatch))
	}
	return nil
}

// GenerateHistoricalBatch publishes count backdated samples, pausing HistoricalDelay
// between them. Cancellation stops early without error; the emitted count is returned.
func (s *Simulator) GenerateHistoricalBatch(ctx context.Context, count int) (int, error) {
	if err := ValidateHistoricalCount(count); err != nil {
		return 0, err
	}

	ctx, span := s.tracer.Start(ctx, "simulator.historical_batch",
		trace.WithAttributes(attribute.Int("netpulse.batch.requested", count)))
	defer span.End()

	s.logger.Info("generating historical data", slog.Int("count", count))
	emitted := 0
	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			break
		}
		if err := s.publish(ctx, s.gen.Historical(), metrics.ModeHistorical); err != nil {
			if ctx.Err() != nil {
				break
			}
			span.RecordError(err)
			return emitted, err
		}
		emitted++
		if emitted == count {
			break
		}
		if !sleepCtx(ctx, s.cfg.HistoricalDelay) {
			break
		}
	}

	span.SetAttributes(attribute.Int("netpulse.batch.emitted", emitted))
	if emitted < count {
		s.logger.Warn("historical data generation interrupted", slog.Int("emitted", emitted), slog.Int("requested", count))
	} else {
		s.logger.Info("historical data generation complete", slog.Int("emitted", emitted))
	}
	return emitted, nil
}

// GenerateDiverseTestData publishes one scenario sample per node, cycling through
// DiverseRotation by node index and pausing DiverseDelay between samples.
func (s *Simulator) GenerateDiverseTestData(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "simulator.diverse_test_data")
	defer span.End()

	s.logger.Info("generating diverse test data")
	emitted := 0
	for i, nodeID := range NodeIDs() {
		if ctx.Err() != nil {
			break
		}
		sc := DiverseRotation[i%len(DiverseRotation)]
		if err := s.publish(ctx, s.gen.Scenario(sc, nodeID), metrics.ModeDiverse); err != nil {
			if ctx.Err() != nil {
				break
			}
			span.RecordError(err)
			return emitted, err
		}
		emitted++
		if emitted == TotalNodes {
			break
		}
		if !sleepCtx(ctx, s.cfg.DiverseDelay) {
			break
		}
	}

	if emitted < TotalNodes {
		s.logger.Warn("diverse test data generation interrupted", slog.Int("emitted", emitted))
	} else {
		s.logger.Info("diverse test data generation complete", slog.Int("emitted", emitted))
	}
	return emitted, nil
}

// TestAllScenarios publishes each named scenario once, on consecutive nodes from FirstNodeID.
func (s *Simulator) TestAllScenarios(ctx context.Context) ([]models.PerformanceSample, error) {
	out := make([]models.PerformanceSample, 0, len(DiverseRotation))
	for i, sc := range DiverseRotation {
		sample, err := s.SimulateScenario(ctx, sc.String(), FirstNodeID+i)
		if err != nil {
			return out, err
		}
		out = append(out, sample)
	}
	return out, nil
}

// Stats reports the simulator setup.
func (s *Simulator) Stats() Stats {
	return Stats{
		TotalNodes:         TotalNodes,
		TotalNetworks:      TotalNetworks,
		LatencyBaseline:    BaseLatency,
		ThroughputBaseline: BaseThroughput,
		Interval:           fmt.Sprintf("%dms", s.cfg.Interval.Milliseconds()),
		Generator:          "math/rand/v2 PCG",
		NodeProfiles:       s.gen.Registry().Len(),
	}
}

func (s *Simulator) publish(ctx context.Context, sample models.PerformanceSample, mode string) error {
	if err := s.pub.Publish(ctx, sample); err != nil {
		metrics.ObservePublishFailure()
		return utils.NewAppError("simulator.publish", utils.KindTransport, "publish sample", err)
	}
	metrics.ObserveGenerated(mode)
	return nil
}

// sleepCtx waits for d and reports false when ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
