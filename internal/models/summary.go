package models

import (
	"fmt"
	"strings"
	"time"
)

// SystemStatus is the fleet-wide verdict attached to a KPI summary.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "HEALTHY"
	StatusWarning  SystemStatus = "WARNING"
	StatusDegraded SystemStatus = "DEGRADED"
	StatusCritical SystemStatus = "CRITICAL"
	StatusNoData   SystemStatus = "NO_DATA"
)

// NoDataMessage marks summaries computed over an empty sample set.
const NoDataMessage = "No data available"

// KPISummary aggregates the latest sample of every node.
type KPISummary struct {
	Message           string                    `json:"message,omitempty"`
	TotalNodes        int                       `json:"totalNodes"`
	HealthyNodes      int                       `json:"healthyNodes"`
	CriticalNodes     int                       `json:"criticalNodes"`
	HealthPercentage  int                       `json:"healthPercentage"`
	AverageLatency    float64                   `json:"averageLatency"`
	AverageThroughput float64                   `json:"averageThroughput"`
	AverageErrorRate  float64                   `json:"averageErrorRate"`
	MaxLatency        float64                   `json:"maxLatency"`
	MinThroughput     float64                   `json:"minThroughput"`
	MaxErrorRate      float64                   `json:"maxErrorRate"`
	SystemStatus      SystemStatus              `json:"systemStatus"`
	LastUpdated       time.Time                 `json:"lastUpdated"`
	Networks          map[string]NetworkSummary `json:"networkSummary,omitempty"`
}

// NetworkSummary carries the same statistics restricted to one network.
type NetworkSummary struct {
	NetworkID     int     `json:"networkId"`
	TotalNodes    int     `json:"totalNodes"`
	HealthyNodes  int     `json:"healthyNodes"`
	AvgLatency    float64 `json:"avgLatency"`
	AvgThroughput float64 `json:"avgThroughput"`
	AvgErrorRate  float64 `json:"avgErrorRate"`
}

// NetworkKey returns the map key used for a network in KPISummary.Networks.
func NetworkKey(networkID int) string {
	return fmt.Sprintf("network_%d", networkID)
}

// Anomaly is a non-healthy node reading queued for operator review.
type Anomaly struct {
	Sample          PerformanceSample
	Tier            HealthTier
	Breaches        []Breach
	Recommendations []string
}

// HealthGroups partitions the latest samples by tier.
type HealthGroups struct {
	Healthy  []PerformanceSample
	Warning  []PerformanceSample
	Critical []PerformanceSample
}

// TimeRange is one of the supported look-back windows.
type TimeRange string

const (
	RangeLast5Minutes TimeRange = "last_5_minutes"
	RangeLast1Hour    TimeRange = "last_1_hour"
	RangeLast24Hours  TimeRange = "last_24_hours"
)

// ParseTimeRange validates a range token case-insensitively.
func ParseTimeRange(value string) (TimeRange, error) {
	switch r := TimeRange(strings.ToLower(strings.TrimSpace(value))); r {
	case RangeLast5Minutes, RangeLast1Hour, RangeLast24Hours:
		return r, nil
	default:
		return "", fmt.Errorf("invalid range %q", value)
	}
}

// Window returns the look-back duration for the range.
func (r TimeRange) Window() time.Duration {
	switch r {
	case RangeLast5Minutes:
		return 5 * time.Minute
	case RangeLast1Hour:
		return time.Hour
	case RangeLast24Hours:
		return 24 * time.Hour
	default:
		return 0
	}
}

// RangeSummary averages every sample recorded inside a window.
type RangeSummary struct {
	Range         TimeRange `json:"range"`
	AvgLatency    float64   `json:"avgLatency"`
	AvgThroughput float64   `json:"avgThroughput"`
	AvgErrorRate  float64   `json:"avgErrorRate"`
	SampleSize    int       `json:"sampleSize"`
	Since         time.Time `json:"since"`
}
