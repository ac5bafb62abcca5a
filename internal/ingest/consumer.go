// Package ingest moves samples from a transport into the sample store.
package ingest

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/miradorstack/netpulse/internal/metrics"
	"github.com/miradorstack/netpulse/internal/repo"
	"github.com/miradorstack/netpulse/internal/tracing"
	"github.com/miradorstack/netpulse/internal/transport"
	"github.com/miradorstack/netpulse/internal/utils"
)

// Consumer appends every valid transport message to the store. Messages that cannot
// be decoded, validated or persisted are logged, counted and dropped.
type Consumer struct {
	source transport.Consumer
	store  repo.SampleStore
	logger *slog.Logger
	tracer trace.Tracer
}

// NewConsumer wires a transport consumer to a store.
func NewConsumer(source transport.Consumer, store repo.SampleStore, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{source: source, store: store, logger: logger, tracer: tracing.Tracer("ingest")}
}

// Run consumes until ctx is cancelled or the transport closes.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("ingestion consumer started", slog.String("topic", transport.Topic))
	err := c.source.Consume(ctx, c.Handle)
	if err != nil {
		metrics.ObserveIngestFailure(metrics.ReasonConsumer)
		c.logger.Error("ingestion consumer stopped", slog.String("error", err.Error()))
		return err
	}
	c.logger.Info("ingestion consumer stopped")
	return nil
}

// Handle decodes, validates and stores one message.
func (c *Consumer) Handle(ctx context.Context, msg transport.Message) error {
	const op = "ingest.Handle"
	ctx, span := c.tracer.Start(ctx, "ingest.sample", trace.WithAttributes(attribute.String("netpulse.source", msg.Source)))
	defer span.End()

	sample, err := transport.Decode(msg.Value)
	if err != nil {
		metrics.ObserveIngestFailure(metrics.ReasonDecode)
		span.SetStatus(codes.Error, "decode")
		c.logger.Warn("dropping malformed sample", slog.String("source", msg.Source), slog.String("error", err.Error()))
		return utils.NewAppError(op, utils.KindInvalidInput, "decode sample", err)
	}
	span.SetAttributes(attribute.Int("netpulse.node_id", sample.NodeID))

	if err := sample.Validate(); err != nil {
		metrics.ObserveIngestFailure(metrics.ReasonInvalid)
		span.SetStatus(codes.Error, "invalid")
		c.logger.Warn("dropping invalid sample", slog.Int("node_id", sample.NodeID), slog.String("error", err.Error()))
		return utils.NewAppError(op, utils.KindInvalidInput, "validate sample", err)
	}

	saved, err := c.store.Save(ctx, sample)
	if err != nil {
		metrics.ObserveIngestFailure(metrics.ReasonPersist)
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist")
		c.logger.Error("failed to persist sample", slog.Int("node_id", sample.NodeID), slog.String("error", err.Error()))
		return err
	}

	metrics.ObserveIngested()
	c.logger.Debug("stored sample",
		slog.Int64("id", saved.ID),
		slog.Int("node_id", saved.NodeID),
		slog.Float64("latency", saved.Latency),
		slog.Float64("throughput", saved.Throughput),
		slog.Float64("error_rate", saved.ErrorRate),
	)
	return nil
}
