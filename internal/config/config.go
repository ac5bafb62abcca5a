package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport kinds.
const (
	TransportMemory = "memory"
	TransportKafka  = "kafka"
	TransportMQTT   = "mqtt"
)

// Store kinds.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config captures the settings required to boot netpulse.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Transport TransportConfig `yaml:"transport"`
	Store     StoreConfig     `yaml:"store"`
	Cache     CacheConfig     `yaml:"cache"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Rules     RulesConfig     `yaml:"rules"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// SimulatorConfig controls synthetic telemetry generation.
type SimulatorConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Interval        time.Duration `yaml:"interval"`
	Seed            uint64        `yaml:"seed"`
	HistoricalDelay time.Duration `yaml:"historicalDelay"`
	DiverseDelay    time.Duration `yaml:"diverseDelay"`
	JobRetention    time.Duration `yaml:"jobRetention"`
}

// TransportConfig selects and configures the sample transport.
type TransportConfig struct {
	Kind   string      `yaml:"kind"`
	Buffer int         `yaml:"buffer"`
	Kafka  KafkaConfig `yaml:"kafka"`
	MQTT   MQTTConfig  `yaml:"mqtt"`
}

// KafkaConfig configures the Kafka transport.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	GroupID      string        `yaml:"groupID"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"clientID"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

// StoreConfig selects and configures the sample store.
type StoreConfig struct {
	Kind    string `yaml:"kind"`
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
	Table   string `yaml:"table"`
	Migrate bool   `yaml:"migrate"`
	Seed    bool   `yaml:"seed"`
}

// CacheConfig controls caching of computed KPI summaries.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	SummaryTTL time.Duration `yaml:"summaryTTL"`
}

// TracingConfig controls OpenTelemetry span export.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"serviceName"`
}

// RulesConfig controls rule-pack loading for anomaly recommendations.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("NETPULSE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the process cannot start with.
func (c *Config) Validate() error {
	switch c.Transport.Kind {
	case TransportMemory:
	case TransportKafka:
		if len(c.Transport.Kafka.Brokers) == 0 {
			return errors.New("transport.kafka.brokers is required for the kafka transport")
		}
	case TransportMQTT:
		if c.Transport.MQTT.Broker == "" {
			return errors.New("transport.mqtt.broker is required for the mqtt transport")
		}
	default:
		return fmt.Errorf("unknown transport kind %q", c.Transport.Kind)
	}

	switch c.Store.Kind {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}

	if c.Simulator.Enabled && c.Simulator.Interval <= 0 {
		return errors.New("simulator.interval must be positive")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Simulator: SimulatorConfig{
			Enabled:         true,
			Interval:        3 * time.Second,
			HistoricalDelay: 100 * time.Millisecond,
			DiverseDelay:    200 * time.Millisecond,
			JobRetention:    time.Hour,
		},
		Transport: TransportConfig{
			Kind:   TransportMemory,
			Buffer: 1024,
			Kafka: KafkaConfig{
				Topic:        "network-performance",
				GroupID:      "network-performance-group",
				WriteTimeout: 5 * time.Second,
			},
			MQTT: MQTTConfig{
				ClientID: "netpulse",
				Topic:    "network-performance",
				QoS:      1,
			},
		},
		Store: StoreConfig{
			Kind:   StoreMemory,
			Driver: "pgx",
			Table:  "performance_data",
			Seed:   true,
		},
		Cache:   CacheConfig{Enabled: true, SummaryTTL: 2 * time.Second},
		Tracing: TracingConfig{ServiceName: "netpulse"},
		Rules:   RulesConfig{Path: "configs/rules/default.yaml"},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NETPULSE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("NETPULSE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("NETPULSE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NETPULSE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("NETPULSE_SIMULATOR_ENABLED"); v != "" {
		cfg.Simulator.Enabled = parseBool(v)
	}
	if v := os.Getenv("NETPULSE_SIMULATOR_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Simulator.Interval = d
		}
	}
	if v := os.Getenv("NETPULSE_SIMULATOR_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Simulator.Seed = seed
		}
	}
	if v := os.Getenv("NETPULSE_TRANSPORT"); v != "" {
		cfg.Transport.Kind = strings.ToLower(v)
	}
	if v := os.Getenv("NETPULSE_KAFKA_BROKERS"); v != "" {
		cfg.Transport.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("NETPULSE_KAFKA_TOPIC"); v != "" {
		cfg.Transport.Kafka.Topic = v
	}
	if v := os.Getenv("NETPULSE_KAFKA_GROUP_ID"); v != "" {
		cfg.Transport.Kafka.GroupID = v
	}
	if v := os.Getenv("NETPULSE_MQTT_BROKER"); v != "" {
		cfg.Transport.MQTT.Broker = v
	}
	if v := os.Getenv("NETPULSE_MQTT_CLIENT_ID"); v != "" {
		cfg.Transport.MQTT.ClientID = v
	}
	if v := os.Getenv("NETPULSE_STORE"); v != "" {
		cfg.Store.Kind = strings.ToLower(v)
	}
	if v := os.Getenv("NETPULSE_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("NETPULSE_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("NETPULSE_STORE_MIGRATE"); v != "" {
		cfg.Store.Migrate = parseBool(v)
	}
	if v := os.Getenv("NETPULSE_STORE_SEED"); v != "" {
		cfg.Store.Seed = parseBool(v)
	}
	if v := os.Getenv("NETPULSE_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("NETPULSE_CACHE_SUMMARY_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.SummaryTTL = d
		}
	}
	if v := os.Getenv("NETPULSE_OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
	if v := os.Getenv("NETPULSE_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
