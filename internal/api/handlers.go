package api

import (
	"fmt"
	"math"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/netpulse/internal/models"
	"github.com/miradorstack/netpulse/internal/simulator"
	"github.com/miradorstack/netpulse/internal/utils"
)

// FromProtoSample maps a PublishSample request into a domain sample. A missing
// timestamp defaults to now.
func FromProtoSample(req *structpb.Struct, now time.Time) (models.PerformanceSample, error) {
	if req == nil {
		return models.PerformanceSample{}, fmt.Errorf("request is nil")
	}
	nodeID, ok, err := IntField(req, "nodeId")
	if err != nil {
		return models.PerformanceSample{}, err
	}
	if !ok {
		return models.PerformanceSample{}, fmt.Errorf("nodeId is required")
	}
	networkID, ok, err := IntField(req, "networkId")
	if err != nil {
		return models.PerformanceSample{}, err
	}
	if !ok {
		networkID, _ = simulator.NetworkFor(nodeID)
	}

	sample := models.PerformanceSample{
		NodeID:     nodeID,
		NetworkID:  networkID,
		Latency:    numberField(req, "latency"),
		Throughput: numberField(req, "throughput"),
		ErrorRate:  numberField(req, "errorRate"),
		Timestamp:  now.UTC(),
	}
	if raw := StringField(req, "timestamp"); raw != "" {
		ts, err := utils.ParseTimestamp(raw)
		if err != nil {
			return models.PerformanceSample{}, fmt.Errorf("timestamp: %w", err)
		}
		sample.Timestamp = ts
	}
	return sample, nil
}

// IntField reads an integral number field. ok is false when the field is absent.
func IntField(req *structpb.Struct, name string) (value int, ok bool, err error) {
	field, present := req.GetFields()[name]
	if !present {
		return 0, false, nil
	}
	num, isNumber := field.GetKind().(*structpb.Value_NumberValue)
	if !isNumber {
		return 0, true, fmt.Errorf("%s must be a number", name)
	}
	if num.NumberValue != math.Trunc(num.NumberValue) {
		return 0, true, fmt.Errorf("%s must be an integer", name)
	}
	return int(num.NumberValue), true, nil
}

// StringField reads a string field, returning "" when absent or not a string.
func StringField(req *structpb.Struct, name string) string {
	return strings.TrimSpace(req.GetFields()[name].GetStringValue())
}

func numberField(req *structpb.Struct, name string) float64 {
	return req.GetFields()[name].GetNumberValue()
}

func sampleValue(s models.PerformanceSample) map[string]any {
	out := map[string]any{
		"nodeId":     s.NodeID,
		"networkId":  s.NetworkID,
		"latency":    s.Latency,
		"throughput": s.Throughput,
		"errorRate":  s.ErrorRate,
		"timestamp":  utils.FormatTimestamp(s.Timestamp),
	}
	if s.ID != 0 {
		out["id"] = s.ID
	}
	return out
}

func sampleList(samples []models.PerformanceSample) []any {
	out := make([]any, 0, len(samples))
	for _, s := range samples {
		out = append(out, sampleValue(s))
	}
	return out
}

// ToProtoSample converts one sample into a response document.
func ToProtoSample(s models.PerformanceSample) (*structpb.Struct, error) {
	return structpb.NewStruct(sampleValue(s))
}

// ToProtoSamples wraps samples under "samples".
func ToProtoSamples(samples []models.PerformanceSample) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"samples": sampleList(samples),
		"count":   len(samples),
	})
}

// ToProtoKPISummary converts a KPI summary, including the per-network breakdown.
func ToProtoKPISummary(summary models.KPISummary) (*structpb.Struct, error) {
	out := map[string]any{
		"totalNodes":        summary.TotalNodes,
		"healthyNodes":      summary.HealthyNodes,
		"criticalNodes":     summary.CriticalNodes,
		"healthPercentage":  summary.HealthPercentage,
		"averageLatency":    summary.AverageLatency,
		"averageThroughput": summary.AverageThroughput,
		"averageErrorRate":  summary.AverageErrorRate,
		"maxLatency":        summary.MaxLatency,
		"minThroughput":     summary.MinThroughput,
		"maxErrorRate":      summary.MaxErrorRate,
		"systemStatus":      string(summary.SystemStatus),
		"lastUpdated":       utils.FormatTimestamp(summary.LastUpdated),
	}
	if summary.Message != "" {
		out["message"] = summary.Message
	}
	if len(summary.Networks) > 0 {
		networks := make(map[string]any, len(summary.Networks))
		for key, n := range summary.Networks {
			networks[key] = map[string]any{
				"networkId":     n.NetworkID,
				"totalNodes":    n.TotalNodes,
				"healthyNodes":  n.HealthyNodes,
				"avgLatency":    n.AvgLatency,
				"avgThroughput": n.AvgThroughput,
				"avgErrorRate":  n.AvgErrorRate,
			}
		}
		out["networkSummary"] = networks
	}
	return structpb.NewStruct(out)
}

// ToProtoAnomalies converts ranked anomalies, preserving order.
func ToProtoAnomalies(anomalies []models.Anomaly) (*structpb.Struct, error) {
	list := make([]any, 0, len(anomalies))
	for _, a := range anomalies {
		entry := sampleValue(a.Sample)
		entry["status"] = string(a.Tier)
		breaches := make([]any, 0, len(a.Breaches))
		for _, b := range a.Breaches {
			breaches = append(breaches, string(b))
		}
		entry["breaches"] = breaches
		if len(a.Recommendations) > 0 {
			recs := make([]any, 0, len(a.Recommendations))
			for _, r := range a.Recommendations {
				recs = append(recs, r)
			}
			entry["recommendations"] = recs
		}
		list = append(list, entry)
	}
	return structpb.NewStruct(map[string]any{
		"anomalies": list,
		"count":     len(anomalies),
	})
}

// ToProtoHealthGroups converts the tier partition.
func ToProtoHealthGroups(groups models.HealthGroups) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"healthy":  sampleList(groups.Healthy),
		"warning":  sampleList(groups.Warning),
		"critical": sampleList(groups.Critical),
	})
}

// ToProtoRangeSummary converts a range summary.
func ToProtoRangeSummary(summary models.RangeSummary) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"range":         string(summary.Range),
		"avgLatency":    summary.AvgLatency,
		"avgThroughput": summary.AvgThroughput,
		"avgErrorRate":  summary.AvgErrorRate,
		"sampleSize":    summary.SampleSize,
		"since":         utils.FormatTimestamp(summary.Since),
	})
}

// ToProtoJob converts a background job snapshot.
func ToProtoJob(job simulator.Job) (*structpb.Struct, error) {
	out := map[string]any{
		"id":        job.ID,
		"kind":      job.Kind,
		"state":     string(job.State),
		"requested": job.Requested,
		"emitted":   job.Emitted,
		"startedAt": utils.FormatTimestamp(job.StartedAt),
	}
	if job.Error != "" {
		out["error"] = job.Error
	}
	if job.FinishedAt != nil {
		out["finishedAt"] = utils.FormatTimestamp(*job.FinishedAt)
	}
	return structpb.NewStruct(out)
}

// ToProtoStats converts the simulator setup description.
func ToProtoStats(stats simulator.Stats) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"totalNodes":                stats.TotalNodes,
		"totalNetworks":             stats.TotalNetworks,
		"averageLatencyBaseline":    stats.LatencyBaseline,
		"averageThroughputBaseline": stats.ThroughputBaseline,
		"simulationInterval":        stats.Interval,
		"dataGenerator":             stats.Generator,
		"nodeProfiles":              stats.NodeProfiles,
	})
}
