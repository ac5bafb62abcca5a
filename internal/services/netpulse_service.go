package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/netpulse/internal/api"
	"github.com/miradorstack/netpulse/internal/utils"
)

// NetPulseService implements the gRPC NetPulse service.
type NetPulseService struct {
	api.UnimplementedNetPulseServer

	logger    *slog.Logger
	reads     *MetricsService
	simulator *SimulatorService
	now       func() time.Time
}

var _ api.NetPulseServer = (*NetPulseService)(nil)

// NewNetPulseService constructs the gRPC facade over the read and simulator services.
func NewNetPulseService(logger *slog.Logger, reads *MetricsService, sim *SimulatorService) *NetPulseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NetPulseService{logger: logger, reads: reads, simulator: sim, now: time.Now}
}

// LatestMetrics returns {"samples": [...], "count": n}.
func (s *NetPulseService) LatestMetrics(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.reads == nil {
		return nil, status.Error(codes.FailedPrecondition, "metrics service not configured")
	}
	latest, err := s.reads.LatestMetrics(ctx)
	if err != nil {
		return nil, s.toStatus("LatestMetrics", err)
	}
	return s.respond("LatestMetrics")(api.ToProtoSamples(latest))
}

// KPISummary returns the fleet KPI summary.
func (s *NetPulseService) KPISummary(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.reads == nil {
		return nil, status.Error(codes.FailedPrecondition, "metrics service not configured")
	}
	summary, err := s.reads.KPISummary(ctx)
	if err != nil {
		return nil, s.toStatus("KPISummary", err)
	}
	return s.respond("KPISummary")(api.ToProtoKPISummary(summary))
}

// Anomalies returns {"anomalies": [...], "count": n} in rank order.
func (s *NetPulseService) Anomalies(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.reads == nil {
		return nil, status.Error(codes.FailedPrecondition, "metrics service not configured")
	}
	anomalies, err := s.reads.Anomalies(ctx)
	if err != nil {
		return nil, s.toStatus("Anomalies", err)
	}
	return s.respond("Anomalies")(api.ToProtoAnomalies(anomalies))
}

// HealthGroups returns {"healthy": [...], "warning": [...], "critical": [...]}.
func (s *NetPulseService) HealthGroups(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.reads == nil {
		return nil, status.Error(codes.FailedPrecondition, "metrics service not configured")
	}
	groups, err := s.reads.HealthGroups(ctx)
	if err != nil {
		return nil, s.toStatus("HealthGroups", err)
	}
	return s.respond("HealthGroups")(api.ToProtoHealthGroups(groups))
}

// RangeSummary expects {"range": "last_5_minutes"|"last_1_hour"|"last_24_hours"}.
func (s *NetPulseService) RangeSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.reads == nil {
		return nil, status.Error(codes.FailedPrecondition, "metrics service not configured")
	}
	summary, err := s.reads.RangeSummary(ctx, api.StringField(req, "range"))
	if err != nil {
		return nil, s.toStatus("RangeSummary", err)
	}
	return s.respond("RangeSummary")(api.ToProtoRangeSummary(summary))
}

// PublishSample accepts a sample document and forwards it to the transport.
func (s *NetPulseService) PublishSample(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.simulator == nil {
		return nil, status.Error(codes.FailedPrecondition, "simulator service not configured")
	}
	sample, err := api.FromProtoSample(req, s.now())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.simulator.PublishSample(ctx, sample); err != nil {
		return nil, s.toStatus("PublishSample", err)
	}
	return s.respond("PublishSample")(api.ToProtoSample(sample))
}

// GenerateSample publishes one normal sample and returns it.
func (s *NetPulseService) GenerateSample(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.simulator == nil {
		return nil, status.Error(codes.FailedPrecondition, "simulator service not configured")
	}
	sample, err := s.simulator.GenerateSample(ctx)
	if err != nil {
		return nil, s.toStatus("GenerateSample", err)
	}
	return s.respond("GenerateSample")(api.ToProtoSample(sample))
}

// GenerateHistorical expects {"count": n} with 0 <= n <= 500 and returns the started job.
func (s *NetPulseService) GenerateHistorical(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.simulator == nil {
		return nil, status.Error(codes.FailedPrecondition, "simulator service not configured")
	}
	count, ok, err := api.IntField(req, "count")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "count is required")
	}
	job, err := s.simulator.GenerateHistorical(ctx, count)
	if err != nil {
		return nil, s.toStatus("GenerateHistorical", err)
	}
	return s.respond("GenerateHistorical")(api.ToProtoJob(job))
}

// SimulateScenario expects {"scenario": name, "nodeId": id}.
func (s *NetPulseService) SimulateScenario(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.simulator == nil {
		return nil, status.Error(codes.FailedPrecondition, "simulator service not configured")
	}
	nodeID, ok, err := api.IntField(req, "nodeId")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "nodeId is required")
	}
	sample, err := s.simulator.SimulateScenario(ctx, api.StringField(req, "scenario"), nodeID)
	if err != nil {
		return nil, s.toStatus("SimulateScenario", err)
	}
	return s.respond("SimulateScenario")(api.ToProtoSample(sample))
}

// GenerateTestScenarios starts the diverse batch and returns the job.
func (s *NetPulseService) GenerateTestScenarios(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.simulator == nil {
		return nil, status.Error(codes.FailedPrecondition, "simulator service not configured")
	}
	job, err := s.simulator.GenerateTestScenarios(ctx)
	if err != nil {
		return nil, s.toStatus("GenerateTestScenarios", err)
	}
	return s.respond("GenerateTestScenarios")(api.ToProtoJob(job))
}

// TestAllScenarios publishes each scenario once and returns the samples.
func (s *NetPulseService) TestAllScenarios(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.simulator == nil {
		return nil, status.Error(codes.FailedPrecondition, "simulator service not configured")
	}
	samples, err := s.simulator.TestAllScenarios(ctx)
	if err != nil {
		return nil, s.toStatus("TestAllScenarios", err)
	}
	return s.respond("TestAllScenarios")(api.ToProtoSamples(samples))
}

// SimulationStats describes the simulator setup.
func (s *NetPulseService) SimulationStats(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.simulator == nil {
		return nil, status.Error(codes.FailedPrecondition, "simulator service not configured")
	}
	stats, err := s.simulator.Stats()
	if err != nil {
		return nil, s.toStatus("SimulationStats", err)
	}
	return s.respond("SimulationStats")(api.ToProtoStats(stats))
}

// JobStatus expects {"id": jobID}.
func (s *NetPulseService) JobStatus(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.simulator == nil {
		return nil, status.Error(codes.FailedPrecondition, "simulator service not configured")
	}
	job, err := s.simulator.JobStatus(api.StringField(req, "id"))
	if err != nil {
		return nil, s.toStatus("JobStatus", err)
	}
	return s.respond("JobStatus")(api.ToProtoJob(job))
}

// CancelJob expects {"id": jobID} and returns the job snapshot after cancellation was requested.
func (s *NetPulseService) CancelJob(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.simulator == nil {
		return nil, status.Error(codes.FailedPrecondition, "simulator service not configured")
	}
	job, err := s.simulator.CancelJob(api.StringField(req, "id"))
	if err != nil {
		return nil, s.toStatus("CancelJob", err)
	}
	return s.respond("CancelJob")(api.ToProtoJob(job))
}

func (s *NetPulseService) respond(method string) func(*structpb.Struct, error) (*structpb.Struct, error) {
	return func(resp *structpb.Struct, err error) (*structpb.Struct, error) {
		if err != nil {
			s.logger.Error("encode response failed", slog.String("method", method), slog.Any("error", err))
			return nil, status.Error(codes.Internal, "failed to encode response")
		}
		return resp, nil
	}
}

func (s *NetPulseService) toStatus(method string, err error) error {
	code := StatusCode(err)
	if code == codes.Internal || code == codes.Unavailable {
		s.logger.Error("request failed", slog.String("method", method), slog.Any("error", err))
	} else {
		s.logger.Debug("request rejected", slog.String("method", method), slog.Any("error", err))
	}
	return status.Error(code, err.Error())
}

// StatusCode maps an error to the gRPC code callers should see.
func StatusCode(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	switch utils.KindOf(err) {
	case utils.KindInvalidInput:
		return codes.InvalidArgument
	case utils.KindNotFound:
		return codes.NotFound
	case utils.KindTransport, utils.KindUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}
