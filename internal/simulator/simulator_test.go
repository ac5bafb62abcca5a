package simulator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/miradorstack/netpulse/internal/models"
	"github.com/miradorstack/netpulse/internal/utils"
)

type recordingPublisher struct {
	mu       sync.Mutex
	samples  []models.PerformanceSample
	attempts int
	failAt   int
	onEach   func(n int)
}

func (p *recordingPublisher) Publish(_ context.Context, sample models.PerformanceSample) error {
	p.mu.Lock()
	p.attempts++
	if p.failAt > 0 && p.attempts == p.failAt {
		p.mu.Unlock()
		return errors.New("broker unavailable")
	}
	p.samples = append(p.samples, sample)
	n := len(p.samples)
	hook := p.onEach
	p.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return nil
}

func (p *recordingPublisher) published() []models.PerformanceSample {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.PerformanceSample(nil), p.samples...)
}

func newTestSimulator(pub Publisher) *Simulator {
	cfg := Config{Interval: 10 * time.Millisecond}
	return New(newTestGenerator(21), pub, cfg, nil)
}

func TestGenerateOncePublishes(t *testing.T) {
	pub := &recordingPublisher{}
	sim := newTestSimulator(pub)

	sample, err := sim.GenerateOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := pub.published(); len(got) != 1 || got[0] != sample {
		t.Fatalf("expected the returned sample to be published, got %+v", got)
	}
}

func TestGenerateOncePropagatesPublishFailure(t *testing.T) {
	sim := newTestSimulator(&recordingPublisher{failAt: 1})
	if _, err := sim.GenerateOnce(context.Background()); !utils.IsKind(err, utils.KindTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestSimulateScenarioValidatesNode(t *testing.T) {
	pub := &recordingPublisher{}
	sim := newTestSimulator(pub)

	for _, node := range []int{99, 120} {
		if _, err := sim.SimulateScenario(context.Background(), "critical", node); !utils.IsKind(err, utils.KindInvalidInput) {
			t.Fatalf("node %d: expected invalid input, got %v", node, err)
		}
	}
	if len(pub.published()) != 0 {
		t.Fatalf("rejected scenarios must not publish")
	}

	sample, err := sim.SimulateScenario(context.Background(), "critical", 119)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sample.Latency < 200 || len(pub.published()) != 1 {
		t.Fatalf("unexpected critical sample %+v", sample)
	}
}

func TestGenerateHistoricalBatchRejectsOutOfRangeCounts(t *testing.T) {
	sim := newTestSimulator(&recordingPublisher{})
	for _, count := range []int{MaxHistoricalBatch + 1, -1} {
		if _, err := sim.GenerateHistoricalBatch(context.Background(), count); !utils.IsKind(err, utils.KindInvalidInput) {
			t.Fatalf("count %d: expected invalid input, got %v", count, err)
		}
	}
}

func TestGenerateHistoricalBatchEmitsAll(t *testing.T) {
	pub := &recordingPublisher{}
	sim := newTestSimulator(pub)

	n, err := sim.GenerateHistoricalBatch(context.Background(), 25)
	if err != nil || n != 25 {
		t.Fatalf("expected 25 samples, got %d (err %v)", n, err)
	}
	for _, s := range pub.published() {
		if !s.Timestamp.Before(fixedNow.Add(-4 * time.Minute)) {
			t.Fatalf("sample not backdated: %s", s.Timestamp)
		}
	}
}

func TestGenerateHistoricalBatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := &recordingPublisher{onEach: func(n int) {
		if n == 3 {
			cancel()
		}
	}}
	sim := New(newTestGenerator(1), pub, Config{Interval: time.Second, HistoricalDelay: time.Hour}, nil)

	n, err := sim.GenerateHistoricalBatch(ctx, 100)
	if err != nil || n != 3 {
		t.Fatalf("expected interruption after 3 samples, got %d (err %v)", n, err)
	}
}

func TestGenerateHistoricalBatchStopsOnPublishError(t *testing.T) {
	sim := newTestSimulator(&recordingPublisher{failAt: 4})
	n, err := sim.GenerateHistoricalBatch(context.Background(), 10)
	if err == nil || n != 3 {
		t.Fatalf("expected failure after 3 samples, got %d (err %v)", n, err)
	}
}

func TestGenerateDiverseTestDataRotatesScenarios(t *testing.T) {
	pub := &recordingPublisher{}
	sim := newTestSimulator(pub)

	n, err := sim.GenerateDiverseTestData(context.Background())
	if err != nil || n != TotalNodes {
		t.Fatalf("expected %d samples, got %d (err %v)", TotalNodes, n, err)
	}

	samples := pub.published()
	if len(samples) != TotalNodes {
		t.Fatalf("expected %d published samples, got %d", TotalNodes, len(samples))
	}
	for i, s := range samples {
		if s.NodeID != FirstNodeID+i {
			t.Fatalf("sample %d: expected node %d, got %d", i, FirstNodeID+i, s.NodeID)
		}
	}
	// node index 4 and 9 fall on the critical scenario
	if samples[4].Latency < 200 || samples[9].Latency < 200 || samples[0].Latency >= 16 {
		t.Fatalf("unexpected rotation: %v / %v / %v", samples[0].Latency, samples[4].Latency, samples[9].Latency)
	}
}

func TestTestAllScenarios(t *testing.T) {
	pub := &recordingPublisher{}
	sim := newTestSimulator(pub)

	samples, err := sim.TestAllScenarios(context.Background())
	if err != nil || len(samples) != 5 {
		t.Fatalf("expected 5 samples, got %d (err %v)", len(samples), err)
	}
	for i, s := range samples {
		if s.NodeID != 100+i {
			t.Fatalf("sample %d: expected node %d, got %d", i, 100+i, s.NodeID)
		}
	}
}

func TestStats(t *testing.T) {
	sim := New(newTestGenerator(1), &recordingPublisher{}, DefaultConfig(), nil)
	want := Stats{
		TotalNodes:         20,
		TotalNetworks:      4,
		LatencyBaseline:    25,
		ThroughputBaseline: 100,
		Interval:           "3000ms",
		Generator:          "math/rand/v2 PCG",
		NodeProfiles:       20,
	}
	if got := sim.Stats(); got != want {
		t.Fatalf("Stats() = %+v, want %+v", got, want)
	}
}

func TestSchedulerRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pub := &recordingPublisher{onEach: func(n int) {
		if n == 3 {
			cancel()
		}
	}}
	sched := NewScheduler(newTestSimulator(pub), nil)

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
	if len(pub.published()) < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", len(pub.published()))
	}
}

func TestSchedulerSurvivesPublishFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pub := &recordingPublisher{failAt: 1, onEach: func(n int) {
		if n == 1 {
			cancel()
		}
	}}
	sched := NewScheduler(newTestSimulator(pub), nil)

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler stopped generating after a failed tick")
	}
}
