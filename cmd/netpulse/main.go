package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miradorstack/netpulse/internal/api"
	"github.com/miradorstack/netpulse/internal/cache"
	"github.com/miradorstack/netpulse/internal/config"
	"github.com/miradorstack/netpulse/internal/db"
	"github.com/miradorstack/netpulse/internal/db/migrate"
	"github.com/miradorstack/netpulse/internal/engine"
	"github.com/miradorstack/netpulse/internal/ingest"
	"github.com/miradorstack/netpulse/internal/metrics"
	"github.com/miradorstack/netpulse/internal/models"
	"github.com/miradorstack/netpulse/internal/repo"
	"github.com/miradorstack/netpulse/internal/services"
	"github.com/miradorstack/netpulse/internal/simulator"
	"github.com/miradorstack/netpulse/internal/tracing"
	"github.com/miradorstack/netpulse/internal/transport"
	"github.com/miradorstack/netpulse/internal/utils"
)

// fleetRefreshInterval paces the background refresh of the fleet health gauges.
const fleetRefreshInterval = 15 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting netpulse",
		slog.String("address", cfg.Server.Address),
		slog.String("transport", cfg.Transport.Kind),
		slog.String("store", cfg.Store.Kind),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := tracing.NewProvider(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName)
	if err != nil {
		logger.Error("failed to configure tracing", slog.Any("error", err))
		os.Exit(1)
	}
	tracerProvider.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown", slog.Any("error", err))
		}
	}()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	store, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open sample store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	if cfg.Store.Seed {
		if _, err := repo.Seed(ctx, store, time.Now(), logger); err != nil {
			logger.Warn("seeding sample store failed", slog.Any("error", err))
		}
	}

	publisher, consumer, err := openTransport(ctx, cfg.Transport, logger)
	if err != nil {
		logger.Error("failed to open transport", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeQuietly(logger, "publisher", publisher)
	if any(consumer) != any(publisher) {
		defer closeQuietly(logger, "consumer", consumer)
	}

	go func() {
		if err := ingest.NewConsumer(consumer, store, logger).Run(ctx); err != nil {
			logger.Error("ingestion stopped", slog.Any("error", err))
		}
	}()

	ruleEngine, err := engine.NewRuleEngine(cfg.Rules.Path, logger)
	if err != nil {
		logger.Error("failed to load rule pack", slog.Any("error", err))
		os.Exit(1)
	}
	pipeline := engine.NewPipeline(logger, ruleEngine)

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled {
		cacheProvider = cache.NewMemoryProvider()
	}
	defer cacheProvider.Close()

	reads := services.NewMetricsService(logger, store, pipeline, services.WithCache(cacheProvider, cfg.Cache.SummaryTTL))

	var sim *simulator.Simulator
	if cfg.Simulator.Enabled {
		gen := simulator.NewGenerator(simulator.NewRand(cfg.Simulator.Seed))
		sim = simulator.New(gen, publisher, simulator.Config{
			Interval:        cfg.Simulator.Interval,
			HistoricalDelay: cfg.Simulator.HistoricalDelay,
			DiverseDelay:    cfg.Simulator.DiverseDelay,
		}, logger)
		go simulator.NewScheduler(sim, logger).Run(ctx)
	}
	jobs := simulator.NewJobRunner(ctx, logger, simulator.WithRetention(cfg.Simulator.JobRetention))
	control := services.NewSimulatorService(logger, sim, jobs, publisher)

	go refreshFleetHealth(ctx, reads, logger)

	server, err := api.NewServer(cfg.Server, services.NewNetPulseService(logger, reads, control))
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		logger.Info("gRPC server listening", slog.String("address", server.Address()))
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("netpulse stopped")
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (repo.SampleStore, func(), error) {
	if cfg.Kind != config.StorePostgres {
		return repo.NewMemoryStore(), func() {}, nil
	}

	if cfg.Migrate {
		if err := migrate.Run(cfg.DSN, migrate.Up); err != nil {
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("database migrations applied")
	}

	conn, err := db.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := conn.Close(); err != nil {
			logger.Warn("close database", slog.Any("error", err))
		}
	}
	return repo.NewPostgresStore(conn, cfg.Table), closeFn, nil
}

func openTransport(ctx context.Context, cfg config.TransportConfig, logger *slog.Logger) (transport.Publisher, transport.Consumer, error) {
	switch cfg.Kind {
	case config.TransportKafka:
		kafkaCfg := transport.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			GroupID:      cfg.Kafka.GroupID,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}
		pub, err := transport.NewKafkaPublisher(kafkaCfg, logger)
		if err != nil {
			return nil, nil, err
		}
		sub, err := transport.NewKafkaConsumer(kafkaCfg, logger)
		if err != nil {
			_ = pub.Close()
			return nil, nil, err
		}
		return pub, sub, nil
	case config.TransportMQTT:
		mqttCfg := transport.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      cfg.MQTT.QoS,
			Buffer:   cfg.Buffer,
		}
		pub, err := transport.NewMQTTPublisher(ctx, mqttCfg, logger)
		if err != nil {
			return nil, nil, err
		}
		sub, err := transport.NewMQTTConsumer(ctx, mqttCfg, logger)
		if err != nil {
			_ = pub.Close()
			return nil, nil, err
		}
		return pub, sub, nil
	default:
		bus := transport.NewChannelBus(cfg.Buffer)
		return bus, bus, nil
	}
}

func refreshFleetHealth(ctx context.Context, reads *services.MetricsService, logger *slog.Logger) {
	ticker := time.NewTicker(fleetRefreshInterval)
	defer ticker.Stop()
	var last models.SystemStatus
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot, err := reads.Snapshot(ctx)
			if err != nil {
				logger.Warn("fleet health refresh failed", slog.Any("error", err))
				continue
			}
			if status := snapshot.Summary.SystemStatus; status != last {
				logger.Info("fleet status changed",
					slog.String("status", string(status)),
					slog.Int("healthy", snapshot.Summary.HealthyNodes),
					slog.Int("critical", snapshot.Summary.CriticalNodes),
					slog.Int("anomalies", len(snapshot.Anomalies)),
				)
				last = status
			}
		}
	}
}

func closeQuietly(logger *slog.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn("close "+name, slog.Any("error", err))
	}
}
