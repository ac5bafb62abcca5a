package models

import (
	"fmt"
	"time"
)

// PerformanceSample is one timestamped latency/throughput/error-rate reading for a node.
// ID is assigned by the sample store and is zero until persisted.
type PerformanceSample struct {
	ID         int64     `json:"id,omitempty"`
	NodeID     int       `json:"nodeId"`
	NetworkID  int       `json:"networkId"`
	Latency    float64   `json:"latency"`
	Throughput float64   `json:"throughput"`
	ErrorRate  float64   `json:"errorRate"`
	Timestamp  time.Time `json:"timestamp"`
}

// Validate reports whether the sample carries the fields ingestion relies on.
func (s PerformanceSample) Validate() error {
	if s.NodeID <= 0 {
		return fmt.Errorf("nodeId must be positive, got %d", s.NodeID)
	}
	if s.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if s.Latency < 0 || s.Throughput < 0 || s.ErrorRate < 0 {
		return fmt.Errorf("metrics must be non-negative")
	}
	return nil
}

// HealthTier is the derived health classification of a sample.
type HealthTier string

const (
	TierHealthy  HealthTier = "HEALTHY"
	TierWarning  HealthTier = "WARNING"
	TierCritical HealthTier = "CRITICAL"
)

// Breach names a healthy-threshold a sample failed.
type Breach string

const (
	BreachLatency    Breach = "latency"
	BreachThroughput Breach = "throughput"
	BreachErrorRate  Breach = "error_rate"
)
