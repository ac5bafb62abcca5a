package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/miradorstack/netpulse/internal/metrics"
	"github.com/miradorstack/netpulse/internal/models"
	"github.com/miradorstack/netpulse/internal/simulator"
	"github.com/miradorstack/netpulse/internal/utils"
)

// Job kinds reported by JobStatus.
const (
	JobKindHistorical = "historical"
	JobKindDiverse    = "diverse"
)

// SimulatorService exposes simulator control and manual publishing.
type SimulatorService struct {
	logger    *slog.Logger
	sim       *simulator.Simulator
	jobs      *simulator.JobRunner
	publisher simulator.Publisher
}

// NewSimulatorService wires the control surface. sim may be nil when generation is
// disabled; publishing external samples still works through publisher.
func NewSimulatorService(logger *slog.Logger, sim *simulator.Simulator, jobs *simulator.JobRunner, publisher simulator.Publisher) *SimulatorService {
	if logger == nil {
		logger = slog.Default()
	}
	if jobs == nil {
		jobs = simulator.NewJobRunner(context.Background(), logger)
	}
	return &SimulatorService{logger: logger, sim: sim, jobs: jobs, publisher: publisher}
}

// PublishSample validates an externally produced sample and hands it to the transport.
func (s *SimulatorService) PublishSample(ctx context.Context, sample models.PerformanceSample) error {
	const op = "services.PublishSample"
	if err := sample.Validate(); err != nil {
		return utils.InvalidInput(op, err.Error())
	}
	if s.publisher == nil {
		return utils.NewAppError(op, utils.KindUnavailable, "publisher not configured", nil)
	}
	if err := s.publisher.Publish(ctx, sample); err != nil {
		metrics.ObservePublishFailure()
		s.logger.Error("publish sample failed", slog.Int("node_id", sample.NodeID), slog.Any("error", err))
		return utils.NewAppError(op, utils.KindTransport, "publish sample", err)
	}
	metrics.ObserveGenerated(metrics.ModeManual)
	return nil
}

// GenerateSample publishes one normal sample for a random node.
func (s *SimulatorService) GenerateSample(ctx context.Context) (models.PerformanceSample, error) {
	if err := s.requireSimulator("services.GenerateSample"); err != nil {
		return models.PerformanceSample{}, err
	}
	return s.sim.GenerateOnce(ctx)
}

// GenerateHistorical validates count and starts a historical batch as a background job.
func (s *SimulatorService) GenerateHistorical(_ context.Context, count int) (simulator.Job, error) {
	if err := simulator.ValidateHistoricalCount(count); err != nil {
		return simulator.Job{}, err
	}
	if err := s.requireSimulator("services.GenerateHistorical"); err != nil {
		return simulator.Job{}, err
	}
	return s.jobs.Start(JobKindHistorical, count, func(ctx context.Context) (int, error) {
		return s.sim.GenerateHistoricalBatch(ctx, count)
	}), nil
}

// SimulateScenario publishes one scenario-shaped sample for nodeID.
func (s *SimulatorService) SimulateScenario(ctx context.Context, scenario string, nodeID int) (models.PerformanceSample, error) {
	const op = "services.SimulateScenario"
	if !simulator.IsKnownNode(nodeID) {
		return models.PerformanceSample{}, utils.InvalidInput(op,
			fmt.Sprintf("node id must be between %d and %d", simulator.FirstNodeID, simulator.LastNodeID))
	}
	if err := s.requireSimulator(op); err != nil {
		return models.PerformanceSample{}, err
	}
	return s.sim.SimulateScenario(ctx, scenario, nodeID)
}

// GenerateTestScenarios starts the diverse per-node batch as a background job.
func (s *SimulatorService) GenerateTestScenarios(_ context.Context) (simulator.Job, error) {
	if err := s.requireSimulator("services.GenerateTestScenarios"); err != nil {
		return simulator.Job{}, err
	}
	return s.jobs.Start(JobKindDiverse, simulator.TotalNodes, s.sim.GenerateDiverseTestData), nil
}

// TestAllScenarios publishes every named scenario once and returns the samples.
func (s *SimulatorService) TestAllScenarios(ctx context.Context) ([]models.PerformanceSample, error) {
	if err := s.requireSimulator("services.TestAllScenarios"); err != nil {
		return nil, err
	}
	return s.sim.TestAllScenarios(ctx)
}

// Stats describes the simulator setup.
func (s *SimulatorService) Stats() (simulator.Stats, error) {
	if err := s.requireSimulator("services.Stats"); err != nil {
		return simulator.Stats{}, err
	}
	return s.sim.Stats(), nil
}

// JobStatus returns a background job snapshot.
func (s *SimulatorService) JobStatus(id string) (simulator.Job, error) {
	if id == "" {
		return simulator.Job{}, utils.InvalidInput("services.JobStatus", "job id is required")
	}
	return s.jobs.Get(id)
}

// CancelJob stops a running background job.
func (s *SimulatorService) CancelJob(id string) (simulator.Job, error) {
	if id == "" {
		return simulator.Job{}, utils.InvalidInput("services.CancelJob", "job id is required")
	}
	return s.jobs.Cancel(id)
}

func (s *SimulatorService) requireSimulator(op string) error {
	if s.sim == nil {
		return utils.NewAppError(op, utils.KindUnavailable, "simulator disabled", nil)
	}
	return nil
}
