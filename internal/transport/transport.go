// Package transport carries performance samples between the simulator and ingestion.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/miradorstack/netpulse/internal/models"
	"github.com/miradorstack/netpulse/internal/utils"
)

// Defaults shared by every broker-backed transport.
const (
	Topic          = "network-performance"
	DefaultGroupID = "network-performance-group"
)

// ErrClosed is returned by publishers and consumers used after Close.
var ErrClosed = errors.New("transport closed")

// Message is one payload read from a transport.
type Message struct {
	Key    []byte
	Value  []byte
	Source string
}

// Handler processes one message. Handler errors never stop consumption.
type Handler func(ctx context.Context, msg Message) error

// Publisher sends samples to the performance topic.
type Publisher interface {
	Publish(ctx context.Context, sample models.PerformanceSample) error
	Close() error
}

// Consumer delivers messages from the performance topic until ctx ends.
type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

type wireSample struct {
	ID         int64   `json:"id,omitempty"`
	NodeID     int     `json:"nodeId"`
	NetworkID  int     `json:"networkId"`
	Latency    float64 `json:"latency"`
	Throughput float64 `json:"throughput"`
	ErrorRate  float64 `json:"errorRate"`
	Timestamp  string  `json:"timestamp"`
}

// Encode serialises a sample as JSON with an RFC 3339 timestamp.
func Encode(sample models.PerformanceSample) ([]byte, error) {
	return json.Marshal(wireSample{
		ID:         sample.ID,
		NodeID:     sample.NodeID,
		NetworkID:  sample.NetworkID,
		Latency:    sample.Latency,
		Throughput: sample.Throughput,
		ErrorRate:  sample.ErrorRate,
		Timestamp:  utils.FormatTimestamp(sample.Timestamp),
	})
}

// Decode parses a JSON sample. Timestamps without a zone are read as UTC.
func Decode(payload []byte) (models.PerformanceSample, error) {
	var w wireSample
	if err := json.Unmarshal(payload, &w); err != nil {
		return models.PerformanceSample{}, fmt.Errorf("decode sample: %w", err)
	}
	ts, err := utils.ParseTimestamp(w.Timestamp)
	if err != nil {
		return models.PerformanceSample{}, fmt.Errorf("decode sample timestamp: %w", err)
	}
	return models.PerformanceSample{
		ID:         w.ID,
		NodeID:     w.NodeID,
		NetworkID:  w.NetworkID,
		Latency:    w.Latency,
		Throughput: w.Throughput,
		ErrorRate:  w.ErrorRate,
		Timestamp:  ts,
	}, nil
}

func nodeKey(sample models.PerformanceSample) []byte {
	return []byte(strconv.Itoa(sample.NodeID))
}
