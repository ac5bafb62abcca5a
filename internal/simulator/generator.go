package simulator

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/miradorstack/netpulse/internal/models"
	"github.com/miradorstack/netpulse/internal/utils"
)

// Baselines every node profile is applied to.
const (
	BaseLatency    = 25.0  // ms
	BaseThroughput = 100.0 // Mbps
)

// Output floors for normal generation.
const (
	MinLatency    = 5.0
	MinThroughput = 10.0
)

// NewRand returns a deterministic source for a non-zero seed and a randomly
// seeded one otherwise.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Generator produces synthetic samples. It is safe for concurrent use.
type Generator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	registry *Registry
	now      func() time.Time
}

// GeneratorOption customises a Generator.
type GeneratorOption func(*Generator)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// NewGenerator builds the profile registry from rng and keeps rng for sampling.
func NewGenerator(rng *rand.Rand, opts ...GeneratorOption) *Generator {
	if rng == nil {
		rng = NewRand(0)
	}
	g := &Generator{
		rng:      rng,
		registry: NewRegistry(rng),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Registry exposes the node profiles.
func (g *Generator) Registry() *Registry { return g.registry }

// Normal produces a profile-driven sample for a uniformly chosen node.
func (g *Generator) Normal() models.PerformanceSample {
	g.mu.Lock()
	defer g.mu.Unlock()
	nodeID := FirstNodeID + g.rng.IntN(TotalNodes)
	return g.normalLocked(nodeID, g.now())
}

// NormalForNode produces a profile-driven sample for nodeID.
func (g *Generator) NormalForNode(nodeID int) models.PerformanceSample {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.normalLocked(nodeID, g.now())
}

// Historical produces a normal sample backdated by 5 to 1439 minutes.
func (g *Generator) Historical() models.PerformanceSample {
	g.mu.Lock()
	defer g.mu.Unlock()
	nodeID := FirstNodeID + g.rng.IntN(TotalNodes)
	minutesAgo := intBetween(g.rng, 5, 1440)
	return g.normalLocked(nodeID, g.now().Add(-time.Duration(minutesAgo)*time.Minute))
}

// Scenario produces a sample for nodeID shaped by sc. ScenarioDefault falls back
// to normal generation for that node.
func (g *Generator) Scenario(sc Scenario, nodeID int) models.PerformanceSample {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := ranges[sc]
	if !ok {
		return g.normalLocked(nodeID, g.now())
	}
	networkID, _ := NetworkFor(nodeID)
	return models.PerformanceSample{
		NodeID:     nodeID,
		NetworkID:  networkID,
		Latency:    float64(intBetween(g.rng, int(r.latency.lo), int(r.latency.hi))) + g.rng.Float64(),
		Throughput: float64(intBetween(g.rng, int(r.throughput.lo), int(r.throughput.hi))) + g.rng.Float64(),
		ErrorRate:  r.errorRate.lo + g.rng.Float64()*(r.errorRate.hi-r.errorRate.lo),
		Timestamp:  g.now(),
	}
}

func (g *Generator) normalLocked(nodeID int, ts time.Time) models.PerformanceSample {
	profile := g.registry.ProfileFor(nodeID)
	networkID, _ := NetworkFor(nodeID)
	return models.PerformanceSample{
		NodeID:     nodeID,
		NetworkID:  networkID,
		Latency:    g.latency(profile),
		Throughput: g.throughput(profile),
		ErrorRate:  g.errorRate(profile),
		Timestamp:  ts,
	}
}

func (g *Generator) latency(p NodeProfile) float64 {
	latency := BaseLatency + p.LatencyModifier
	latency += float64(intBetween(g.rng, -3, 8))
	latency += g.rng.Float64()*2 - 1

	c := g.rng.Float64()
	switch {
	case c < p.CongestionProbability:
		latency += float64(intBetween(g.rng, 15, 40))
	case c < p.CongestionProbability*2:
		latency += float64(intBetween(g.rng, 50, 120))
	case c > 0.995:
		latency += float64(intBetween(g.rng, 150, 300))
	}
	return math.Max(MinLatency, utils.Round(latency, 2))
}

func (g *Generator) throughput(p NodeProfile) float64 {
	capacity := BaseThroughput + p.ThroughputModifier
	throughput := capacity * float64(intBetween(g.rng, 85, 98)) / 100
	throughput += g.rng.Float64()*4 - 2

	d := g.rng.Float64()
	switch {
	case d < 0.05:
		throughput = capacity * float64(intBetween(g.rng, 40, 70)) / 100
	case d < 0.08:
		throughput = capacity * float64(intBetween(g.rng, 15, 40)) / 100
	}
	return math.Max(MinThroughput, utils.Round(throughput, 2))
}

func (g *Generator) errorRate(p NodeProfile) float64 {
	errorRate := g.rng.Float64() * 0.1 * p.StabilityFactor
	if g.rng.Float64() < 0.02 {
		errorRate += 0.5 + g.rng.Float64()
	}
	return utils.Round(errorRate, 3)
}

// intBetween returns an integer in [lo, hi).
func intBetween(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo)
}
