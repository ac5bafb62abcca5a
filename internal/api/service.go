package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "netpulse.v1.NetPulse"

// Method names exposed by the NetPulse service.
const (
	MethodLatestMetrics         = "LatestMetrics"
	MethodKPISummary            = "KPISummary"
	MethodAnomalies             = "Anomalies"
	MethodHealthGroups          = "HealthGroups"
	MethodRangeSummary          = "RangeSummary"
	MethodPublishSample         = "PublishSample"
	MethodGenerateSample        = "GenerateSample"
	MethodGenerateHistorical    = "GenerateHistorical"
	MethodSimulateScenario      = "SimulateScenario"
	MethodGenerateTestScenarios = "GenerateTestScenarios"
	MethodTestAllScenarios      = "TestAllScenarios"
	MethodSimulationStats       = "SimulationStats"
	MethodJobStatus             = "JobStatus"
	MethodCancelJob             = "CancelJob"
)

// NetPulseServer is the server API for the NetPulse service. Requests and
// responses are google.protobuf.Struct documents; see handlers.go for their fields.
type NetPulseServer interface {
	LatestMetrics(context.Context, *structpb.Struct) (*structpb.Struct, error)
	KPISummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Anomalies(context.Context, *structpb.Struct) (*structpb.Struct, error)
	HealthGroups(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RangeSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PublishSample(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GenerateSample(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GenerateHistorical(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SimulateScenario(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GenerateTestScenarios(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TestAllScenarios(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SimulationStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	JobStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedNetPulseServer answers every method with codes.Unimplemented.
// Embed it to implement a subset of the service.
type UnimplementedNetPulseServer struct{}

func (UnimplementedNetPulseServer) LatestMetrics(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method LatestMetrics not implemented")
}

func (UnimplementedNetPulseServer) KPISummary(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method KPISummary not implemented")
}

func (UnimplementedNetPulseServer) Anomalies(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Anomalies not implemented")
}

func (UnimplementedNetPulseServer) HealthGroups(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method HealthGroups not implemented")
}

func (UnimplementedNetPulseServer) RangeSummary(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RangeSummary not implemented")
}

func (UnimplementedNetPulseServer) PublishSample(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method PublishSample not implemented")
}

func (UnimplementedNetPulseServer) GenerateSample(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GenerateSample not implemented")
}

func (UnimplementedNetPulseServer) GenerateHistorical(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GenerateHistorical not implemented")
}

func (UnimplementedNetPulseServer) SimulateScenario(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SimulateScenario not implemented")
}

func (UnimplementedNetPulseServer) GenerateTestScenarios(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GenerateTestScenarios not implemented")
}

func (UnimplementedNetPulseServer) TestAllScenarios(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method TestAllScenarios not implemented")
}

func (UnimplementedNetPulseServer) SimulationStats(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SimulationStats not implemented")
}

func (UnimplementedNetPulseServer) JobStatus(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method JobStatus not implemented")
}

func (UnimplementedNetPulseServer) CancelJob(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method CancelJob not implemented")
}

type unaryCall func(NetPulseServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

var serviceMethods = []struct {
	name string
	call unaryCall
}{
	{MethodLatestMetrics, NetPulseServer.LatestMetrics},
	{MethodKPISummary, NetPulseServer.KPISummary},
	{MethodAnomalies, NetPulseServer.Anomalies},
	{MethodHealthGroups, NetPulseServer.HealthGroups},
	{MethodRangeSummary, NetPulseServer.RangeSummary},
	{MethodPublishSample, NetPulseServer.PublishSample},
	{MethodGenerateSample, NetPulseServer.GenerateSample},
	{MethodGenerateHistorical, NetPulseServer.GenerateHistorical},
	{MethodSimulateScenario, NetPulseServer.SimulateScenario},
	{MethodGenerateTestScenarios, NetPulseServer.GenerateTestScenarios},
	{MethodTestAllScenarios, NetPulseServer.TestAllScenarios},
	{MethodSimulationStats, NetPulseServer.SimulationStats},
	{MethodJobStatus, NetPulseServer.JobStatus},
	{MethodCancelJob, NetPulseServer.CancelJob},
}

// ServiceDesc describes the NetPulse service for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NetPulseServer)(nil),
	Methods:     methodDescs(),
	Streams:     []grpc.StreamDesc{},
	Metadata:    "netpulse/v1/netpulse.proto",
}

func methodDescs() []grpc.MethodDesc {
	descs := make([]grpc.MethodDesc, 0, len(serviceMethods))
	for _, m := range serviceMethods {
		descs = append(descs, grpc.MethodDesc{
			MethodName: m.name,
			Handler:    unaryHandler(FullMethod(m.name), m.call),
		})
	}
	return descs
}

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NetPulseServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(NetPulseServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// FullMethod returns the "/service/method" path for a method name.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// RegisterNetPulseServer registers srv with the gRPC registrar.
func RegisterNetPulseServer(s grpc.ServiceRegistrar, srv NetPulseServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls NetPulse methods over a client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with req, which may be nil.
func (c *Client) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
