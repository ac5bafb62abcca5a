package engine

import (
	"testing"
	"time"

	"github.com/miradorstack/netpulse/internal/models"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sample(node, network int, latency, throughput, errorRate float64, ts time.Time) models.PerformanceSample {
	return models.PerformanceSample{
		NodeID:     node,
		NetworkID:  network,
		Latency:    latency,
		Throughput: throughput,
		ErrorRate:  errorRate,
		Timestamp:  ts,
	}
}

func TestLatestPerNodeKeepsNewestRegardlessOfOrder(t *testing.T) {
	samples := []models.PerformanceSample{
		sample(101, 1, 20, 90, 0.1, base.Add(2*time.Minute)),
		sample(100, 1, 10, 90, 0.1, base),
		sample(101, 1, 30, 90, 0.1, base),
		sample(100, 1, 40, 90, 0.1, base.Add(time.Minute)),
		sample(101, 1, 50, 90, 0.1, base.Add(time.Minute)),
	}

	latest := LatestPerNode(samples)
	if len(latest) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(latest))
	}
	if latest[0].NodeID != 100 || latest[0].Latency != 40 {
		t.Fatalf("unexpected node 100 latest: %+v", latest[0])
	}
	if latest[1].NodeID != 101 || latest[1].Latency != 20 {
		t.Fatalf("unexpected node 101 latest: %+v", latest[1])
	}
}

func TestLatestPerNodeEmpty(t *testing.T) {
	latest := LatestPerNode(nil)
	if latest == nil || len(latest) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", latest)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		s    models.PerformanceSample
		want models.HealthTier
	}{
		{"healthy", sample(100, 1, 25, 100, 0.5, base), models.TierHealthy},
		{"latency at threshold warns", sample(100, 1, 100, 100, 1, base), models.TierWarning},
		{"latency warning band", sample(100, 1, 150, 100, 1, base), models.TierWarning},
		{"latency critical", sample(100, 1, 151, 100, 1, base), models.TierCritical},
		{"throughput at threshold warns", sample(100, 1, 20, 50, 1, base), models.TierWarning},
		{"throughput critical", sample(100, 1, 20, 24.9, 1, base), models.TierCritical},
		{"error rate at threshold warns", sample(100, 1, 20, 90, 2, base), models.TierWarning},
		{"error rate critical", sample(100, 1, 20, 90, 4.1, base), models.TierCritical},
		{"critical wins over any warning", sample(100, 1, 200, 20, 1, base), models.TierCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.s); got != tc.want {
				t.Fatalf("Classify(%+v) = %s, want %s", tc.s, got, tc.want)
			}
		})
	}
}

func TestBreaches(t *testing.T) {
	got := Breaches(sample(100, 1, 120, 40, 3, base))
	want := []models.Breach{models.BreachLatency, models.BreachThroughput, models.BreachErrorRate}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("breach %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if b := Breaches(sample(100, 1, 10, 90, 0.1, base)); len(b) != 0 {
		t.Fatalf("healthy sample reported breaches %v", b)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil, base)
	if summary.Message != models.NoDataMessage {
		t.Fatalf("expected no-data message, got %q", summary.Message)
	}
	if summary.SystemStatus != models.StatusNoData {
		t.Fatalf("expected NO_DATA, got %s", summary.SystemStatus)
	}
	if summary.TotalNodes != 0 || summary.Networks != nil {
		t.Fatalf("expected zeroed summary, got %+v", summary)
	}
}

func TestSummarizeNinetyPercentHealthy(t *testing.T) {
	var latest []models.PerformanceSample
	for i := 0; i < 9; i++ {
		latest = append(latest, sample(100+i, 1+i/5, 20, 100, 0.5, base))
	}
	latest = append(latest, sample(109, 2, 120, 100, 0.5, base))

	summary := Summarize(latest, base)
	if summary.TotalNodes != 10 || summary.HealthyNodes != 9 || summary.CriticalNodes != 0 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary.HealthPercentage != 90 {
		t.Fatalf("expected 90%%, got %d", summary.HealthPercentage)
	}
	if summary.SystemStatus != models.StatusHealthy {
		t.Fatalf("expected HEALTHY, got %s", summary.SystemStatus)
	}
	if summary.AverageLatency != 30 {
		t.Fatalf("expected average latency 30, got %v", summary.AverageLatency)
	}
	if summary.MaxLatency != 120 || summary.MinThroughput != 100 || summary.MaxErrorRate != 0.5 {
		t.Fatalf("unexpected extremes: %+v", summary)
	}
}

func TestSummarizeAnyCriticalIsCritical(t *testing.T) {
	latest := []models.PerformanceSample{
		sample(100, 1, 20, 100, 0.5, base),
		sample(101, 1, 20, 100, 0.5, base),
		sample(102, 1, 200, 100, 0.5, base),
	}
	summary := Summarize(latest, base)
	if summary.CriticalNodes != 1 {
		t.Fatalf("expected 1 critical node, got %d", summary.CriticalNodes)
	}
	if summary.SystemStatus != models.StatusCritical {
		t.Fatalf("expected CRITICAL, got %s", summary.SystemStatus)
	}
}

func TestSummarizeRounding(t *testing.T) {
	latest := []models.PerformanceSample{
		sample(100, 1, 10.001, 90.004, 0.0011, base),
		sample(101, 1, 10.002, 90.004, 0.0012, base),
		sample(102, 1, 10.004, 90.004, 0.0014, base),
	}
	summary := Summarize(latest, base)
	if summary.AverageLatency != 10 {
		t.Fatalf("expected rounded latency 10, got %v", summary.AverageLatency)
	}
	if summary.AverageErrorRate != 0.001 {
		t.Fatalf("expected rounded error rate 0.001, got %v", summary.AverageErrorRate)
	}
}

func TestDetermineStatusUsesUnroundedRatio(t *testing.T) {
	cases := []struct {
		healthy, total, critical int
		want                     models.SystemStatus
	}{
		{0, 0, 0, models.StatusNoData},
		{10, 10, 0, models.StatusHealthy},
		{179, 200, 0, models.StatusWarning}, // 89.5%
		{7, 10, 0, models.StatusWarning},
		{6, 10, 0, models.StatusDegraded},
		{10, 10, 1, models.StatusCritical},
	}
	for _, tc := range cases {
		if got := DetermineStatus(tc.healthy, tc.total, tc.critical); got != tc.want {
			t.Fatalf("DetermineStatus(%d,%d,%d) = %s, want %s", tc.healthy, tc.total, tc.critical, got, tc.want)
		}
	}
}

func TestSummarizeNetworks(t *testing.T) {
	latest := []models.PerformanceSample{
		sample(100, 1, 10, 100, 0.5, base),
		sample(101, 1, 30, 80, 1.5, base),
		sample(105, 2, 120, 100, 0.5, base),
	}
	networks := SummarizeNetworks(latest)
	if len(networks) != 2 {
		t.Fatalf("expected 2 networks, got %d", len(networks))
	}
	n1, ok := networks["network_1"]
	if !ok {
		t.Fatalf("missing network_1 in %v", networks)
	}
	if n1.TotalNodes != 2 || n1.HealthyNodes != 2 || n1.AvgLatency != 20 || n1.AvgThroughput != 90 || n1.AvgErrorRate != 1 {
		t.Fatalf("unexpected network_1 summary: %+v", n1)
	}
	n2 := networks["network_2"]
	if n2.TotalNodes != 1 || n2.HealthyNodes != 0 {
		t.Fatalf("unexpected network_2 summary: %+v", n2)
	}
}

func TestRankAnomaliesCriticalFirst(t *testing.T) {
	latest := []models.PerformanceSample{
		sample(100, 1, 200, 100, 1, base),
		sample(101, 1, 90, 20, 1, base),
		sample(102, 1, 20, 90, 0.5, base),
		sample(103, 1, 120, 90, 0.5, base),
		sample(104, 1, 130, 90, 0.5, base),
	}
	anomalies := RankAnomalies(latest)
	if len(anomalies) != 4 {
		t.Fatalf("expected 4 anomalies, got %d", len(anomalies))
	}
	wantOrder := []int{100, 101, 104, 103}
	for i, id := range wantOrder {
		if anomalies[i].Sample.NodeID != id {
			t.Fatalf("position %d: expected node %d, got %d", i, id, anomalies[i].Sample.NodeID)
		}
	}
	if anomalies[1].Tier != models.TierCritical || anomalies[2].Tier != models.TierWarning {
		t.Fatalf("unexpected tiers: %s, %s", anomalies[1].Tier, anomalies[2].Tier)
	}
}

func TestRankAnomaliesCriticalOutranksHigherLatencyWarning(t *testing.T) {
	latest := []models.PerformanceSample{
		sample(100, 1, 140, 90, 1, base),
		sample(101, 1, 90, 90, 5, base),
	}
	anomalies := RankAnomalies(latest)
	if anomalies[0].Sample.NodeID != 101 {
		t.Fatalf("expected critical node 101 first, got %d", anomalies[0].Sample.NodeID)
	}
}

func TestRankAnomaliesTieBreaksByNode(t *testing.T) {
	latest := []models.PerformanceSample{
		sample(107, 2, 120, 90, 0.5, base),
		sample(103, 1, 120, 90, 0.5, base),
	}
	anomalies := RankAnomalies(latest)
	if anomalies[0].Sample.NodeID != 103 {
		t.Fatalf("expected node 103 first on equal latency, got %d", anomalies[0].Sample.NodeID)
	}
}

func TestGroupByHealthPartitions(t *testing.T) {
	latest := []models.PerformanceSample{
		sample(100, 1, 20, 90, 0.5, base),
		sample(101, 1, 120, 90, 0.5, base),
		sample(102, 1, 20, 10, 0.5, base),
		sample(103, 1, 30, 95, 0.2, base),
	}
	groups := GroupByHealth(latest)
	if len(groups.Healthy) != 2 || len(groups.Warning) != 1 || len(groups.Critical) != 1 {
		t.Fatalf("unexpected partition: %+v", groups)
	}
	if groups.Healthy[0].NodeID != 100 || groups.Healthy[1].NodeID != 103 {
		t.Fatalf("healthy group lost input order: %+v", groups.Healthy)
	}

	empty := GroupByHealth(nil)
	if empty.Healthy == nil || empty.Warning == nil || empty.Critical == nil {
		t.Fatalf("expected initialised empty groups, got %#v", empty)
	}
}

func TestSummarizeRange(t *testing.T) {
	since := base.Add(-time.Hour)
	samples := []models.PerformanceSample{
		sample(100, 1, 10, 90, 1, base),
		sample(100, 1, 20, 100, 2, base.Add(-time.Minute)),
		sample(101, 1, 30, 80, 0, base),
	}
	summary := SummarizeRange(models.RangeLast1Hour, since, samples)
	if summary.SampleSize != 3 {
		t.Fatalf("expected sample size 3, got %d", summary.SampleSize)
	}
	if summary.AvgLatency != 20 || summary.AvgThroughput != 90 || summary.AvgErrorRate != 1 {
		t.Fatalf("unexpected averages: %+v", summary)
	}

	empty := SummarizeRange(models.RangeLast5Minutes, since, nil)
	if empty.SampleSize != 0 || empty.AvgLatency != 0 {
		t.Fatalf("expected zero summary, got %+v", empty)
	}
}
