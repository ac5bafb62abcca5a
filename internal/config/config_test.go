package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NETPULSE_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":50051" {
		t.Fatalf("unexpected address %q", cfg.Server.Address)
	}
	if cfg.Simulator.Interval != 3*time.Second || !cfg.Simulator.Enabled || cfg.Simulator.JobRetention != time.Hour {
		t.Fatalf("unexpected simulator defaults: %+v", cfg.Simulator)
	}
	if cfg.Transport.Kind != TransportMemory || cfg.Store.Kind != StoreMemory {
		t.Fatalf("expected in-memory defaults, got %s/%s", cfg.Transport.Kind, cfg.Store.Kind)
	}
	if cfg.Transport.Kafka.Topic != "network-performance" || cfg.Transport.Kafka.GroupID != "network-performance-group" {
		t.Fatalf("unexpected kafka defaults: %+v", cfg.Transport.Kafka)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "netpulse.yaml")
	content := `
server:
  address: ":6000"
simulator:
  interval: 5s
  seed: 42
transport:
  kind: kafka
  kafka:
    brokers: ["kafka-1:9092"]
store:
  kind: postgres
  dsn: postgres://netpulse@db/netpulse
  migrate: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("NETPULSE_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("NETPULSE_LOG_FORMAT", "json")
	t.Setenv("NETPULSE_CACHE_SUMMARY_TTL", "10s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":6000" || cfg.Simulator.Interval != 5*time.Second || cfg.Simulator.Seed != 42 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if len(cfg.Transport.Kafka.Brokers) != 2 || cfg.Transport.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Fatalf("env brokers not applied: %v", cfg.Transport.Kafka.Brokers)
	}
	if !cfg.Logging.JSON || cfg.Cache.SummaryTTL != 10*time.Second {
		t.Fatalf("env overrides not applied: %+v %+v", cfg.Logging, cfg.Cache)
	}
	if cfg.Server.MetricsAddress != ":2112" {
		t.Fatalf("defaults should survive partial files, got %q", cfg.Server.MetricsAddress)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"kafka without brokers": func(c *Config) { c.Transport.Kind = TransportKafka },
		"mqtt without broker":   func(c *Config) { c.Transport.Kind = TransportMQTT },
		"unknown transport":     func(c *Config) { c.Transport.Kind = "carrier-pigeon" },
		"postgres without dsn":  func(c *Config) { c.Store.Kind = StorePostgres },
		"unknown store":         func(c *Config) { c.Store.Kind = "tape" },
		"zero interval":         func(c *Config) { c.Simulator.Interval = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
