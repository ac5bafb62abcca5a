// Command probe drives a local netpulse instance over gRPC: it can queue a
// historical batch, push one scenario sample and print the resulting read models.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/netpulse/internal/api"
	"github.com/miradorstack/netpulse/internal/utils"
)

func main() {
	var (
		addr       = flag.String("addr", "localhost:50051", "netpulse gRPC address")
		historical = flag.Int("historical", 0, "queue a historical batch of this size (0 skips)")
		scenario   = flag.String("scenario", "", "publish one sample with this scenario (empty skips)")
		node       = flag.Int("node", 100, "node id for -scenario")
		settle     = flag.Duration("settle", 2*time.Second, "wait before reading so ingestion can catch up")
		timeout    = flag.Duration("timeout", 10*time.Second, "per-call timeout")
	)
	flag.Parse()

	logger := utils.NewLogger("info", false)

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logger.Error("dial netpulse", slog.String("address", *addr), slog.Any("error", err))
		os.Exit(1)
	}
	defer conn.Close()

	p := &probe{client: api.NewClient(conn), logger: logger, timeout: *timeout}

	if *historical > 0 {
		req, _ := structpb.NewStruct(map[string]any{"count": *historical})
		if _, err := p.call(api.MethodGenerateHistorical, req); err != nil {
			os.Exit(1)
		}
	}
	if *scenario != "" {
		req, _ := structpb.NewStruct(map[string]any{"scenario": *scenario, "nodeId": *node})
		if _, err := p.call(api.MethodSimulateScenario, req); err != nil {
			os.Exit(1)
		}
	}
	if *historical > 0 || *scenario != "" {
		time.Sleep(*settle)
	}

	for _, method := range []string{api.MethodKPISummary, api.MethodAnomalies} {
		resp, err := p.call(method, nil)
		if err != nil {
			os.Exit(1)
		}
		out, err := protojson.MarshalOptions{Multiline: true}.Marshal(resp)
		if err != nil {
			logger.Error("encode response", slog.String("method", method), slog.Any("error", err))
			os.Exit(1)
		}
		fmt.Printf("%s\n%s\n", method, out)
	}
}

type probe struct {
	client  *api.Client
	logger  *slog.Logger
	timeout time.Duration
}

func (p *probe) call(method string, req *structpb.Struct) (*structpb.Struct, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.Call(ctx, method, req)
	if err != nil {
		p.logger.Error("call failed", slog.String("method", method), slog.Duration("took", time.Since(start)), slog.Any("error", err))
		return nil, err
	}
	p.logger.Info("call ok", slog.String("method", method), slog.Duration("took", time.Since(start)))
	return resp, nil
}
