package simulator

import (
	"math"
	"slices"
	"testing"
	"time"

	"github.com/miradorstack/netpulse/internal/utils"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestGenerator(seed uint64) *Generator {
	return NewGenerator(NewRand(seed), WithClock(func() time.Time { return fixedNow }))
}

func TestTopology(t *testing.T) {
	if len(NodeIDs()) != 20 {
		t.Fatalf("expected 20 nodes, got %d", len(NodeIDs()))
	}
	if !slices.Equal(NetworkIDs(), []int{201, 202, 203, 204}) {
		t.Fatalf("unexpected networks %v", NetworkIDs())
	}

	cases := map[int]int{100: 201, 104: 201, 105: 202, 114: 203, 119: 204}
	for node, want := range cases {
		got, ok := NetworkFor(node)
		if !ok || got != want {
			t.Fatalf("node %d: expected network %d, got %d (ok=%v)", node, want, got, ok)
		}
	}
	for _, node := range []int{99, 120} {
		if _, ok := NetworkFor(node); ok {
			t.Fatalf("node %d should be outside the topology", node)
		}
	}
}

func TestRegistryProfilesWithinBounds(t *testing.T) {
	reg := NewRegistry(NewRand(7))
	if reg.Len() != 20 {
		t.Fatalf("expected 20 profiles, got %d", reg.Len())
	}
	for _, id := range NodeIDs() {
		p, ok := reg.Lookup(id)
		if !ok {
			t.Fatalf("missing profile for node %d", id)
		}
		if p.LatencyModifier < -5 || p.LatencyModifier >= 10 {
			t.Fatalf("node %d latency modifier out of range: %v", id, p.LatencyModifier)
		}
		if p.ThroughputModifier < -15 || p.ThroughputModifier >= 20 {
			t.Fatalf("node %d throughput modifier out of range: %v", id, p.ThroughputModifier)
		}
		if p.StabilityFactor < 0.8 || p.StabilityFactor > 1.2 {
			t.Fatalf("node %d stability factor out of range: %v", id, p.StabilityFactor)
		}
		if p.CongestionProbability < 0.02 || p.CongestionProbability > 0.15 {
			t.Fatalf("node %d congestion probability out of range: %v", id, p.CongestionProbability)
		}
	}

	if _, ok := reg.Lookup(500); ok {
		t.Fatalf("unexpected profile for node 500")
	}
	if reg.ProfileFor(500) != DefaultProfile(500) {
		t.Fatalf("expected default profile for unknown node")
	}
}

func TestNormalRespectsFloorsAndTopology(t *testing.T) {
	g := newTestGenerator(42)
	seen := make(map[int]bool)
	for i := 0; i < 5000; i++ {
		s := g.Normal()
		seen[s.NodeID] = true
		network, ok := NetworkFor(s.NodeID)
		if !ok || network != s.NetworkID {
			t.Fatalf("sample %+v does not match topology", s)
		}
		if s.Latency < MinLatency || s.Throughput < MinThroughput || s.ErrorRate < 0 {
			t.Fatalf("sample below floors: %+v", s)
		}
		if !s.Timestamp.Equal(fixedNow) {
			t.Fatalf("unexpected timestamp %s", s.Timestamp)
		}
	}
	if len(seen) != TotalNodes {
		t.Fatalf("every node including the last one should be picked, saw %d", len(seen))
	}
}

func TestNormalRounding(t *testing.T) {
	g := newTestGenerator(3)
	for i := 0; i < 500; i++ {
		s := g.Normal()
		if math.Abs(s.Latency-utils.Round(s.Latency, 2)) > 1e-9 ||
			math.Abs(s.Throughput-utils.Round(s.Throughput, 2)) > 1e-9 ||
			math.Abs(s.ErrorRate-utils.Round(s.ErrorRate, 3)) > 1e-9 {
			t.Fatalf("sample not rounded: %+v", s)
		}
	}
}

func TestSeededGeneratorsAreDeterministic(t *testing.T) {
	a := newTestGenerator(99)
	b := newTestGenerator(99)
	for i := 0; i < 50; i++ {
		if x, y := a.Normal(), b.Normal(); x != y {
			t.Fatalf("draw %d differs: %+v vs %+v", i, x, y)
		}
	}
}

const bandDraws = 200_000

func share(n int) float64 { return float64(n) / bandDraws }

func assertShare(t *testing.T, band string, got, want, tolerance float64) {
	t.Helper()
	if math.Abs(got-want) > tolerance {
		t.Fatalf("%s share = %.4f, want %.4f ± %.4f", band, got, want, tolerance)
	}
}

// With modifier 0 the unbanded latency stays below 33, light congestion lands
// in [36, 72), heavy in [71, 153) and spikes at 171 or above.
func TestLatencyCongestionBands(t *testing.T) {
	g := newTestGenerator(17)
	profile := NodeProfile{CongestionProbability: 0.1, StabilityFactor: 1}

	var light, heavy, spike int
	for i := 0; i < bandDraws; i++ {
		switch l := g.latency(profile); {
		case l >= 171:
			spike++
		case l >= 71.5:
			heavy++
		case l >= 34:
			light++
		}
	}
	assertShare(t, "light congestion", share(light), 0.10, 0.005)
	assertShare(t, "heavy congestion", share(heavy), 0.10, 0.005)
	assertShare(t, "latency spike", share(spike), 0.005, 0.0015)
}

func TestLatencyWithoutCongestion(t *testing.T) {
	g := newTestGenerator(19)
	profile := NodeProfile{StabilityFactor: 1}

	var banded int
	for i := 0; i < bandDraws; i++ {
		if g.latency(profile) >= 34 {
			banded++
		}
	}
	// Only the spike band remains when congestion probability is zero.
	assertShare(t, "latency spike", share(banded), 0.005, 0.0015)
}

// Capacity 100: unlimited throughput stays above 82, the first limitation band
// lands in [40, 70) and the second in [15, 40).
func TestThroughputLimitationBands(t *testing.T) {
	g := newTestGenerator(23)
	profile := NodeProfile{StabilityFactor: 1}

	var moderate, severe int
	for i := 0; i < bandDraws; i++ {
		switch th := g.throughput(profile); {
		case th < 40:
			severe++
		case th < 70:
			moderate++
		case th < 82:
			t.Fatalf("unbanded throughput below capacity floor: %v", th)
		}
	}
	assertShare(t, "moderate limitation", share(moderate), 0.05, 0.003)
	assertShare(t, "severe limitation", share(severe), 0.03, 0.003)
}

func TestErrorRateSpikeBand(t *testing.T) {
	g := newTestGenerator(29)
	profile := NodeProfile{StabilityFactor: 1}

	var spikes int
	for i := 0; i < bandDraws; i++ {
		e := g.errorRate(profile)
		if e >= 0.5 {
			spikes++
		} else if e > 0.1 {
			t.Fatalf("unbanded error rate above stability bound: %v", e)
		}
	}
	assertShare(t, "error spike", share(spikes), 0.02, 0.002)
}

func TestHistoricalBackdating(t *testing.T) {
	g := newTestGenerator(11)
	for i := 0; i < 1000; i++ {
		s := g.Historical()
		age := fixedNow.Sub(s.Timestamp)
		if age < 5*time.Minute || age >= 1440*time.Minute || age%time.Minute != 0 {
			t.Fatalf("unexpected backdating %s", age)
		}
	}
}

func TestScenarioRanges(t *testing.T) {
	g := newTestGenerator(5)
	type window struct{ latLo, latHi, thrLo, thrHi, errLo, errHi float64 }
	cases := map[Scenario]window{
		ScenarioOptimal:    {8, 16, 110, 126, 0, 0.05},
		ScenarioBaseline:   {20, 36, 90, 111, 0, 0.2},
		ScenarioCongestion: {80, 151, 30, 61, 1, 3},
		ScenarioUnstable:   {20, 201, 40, 121, 0.5, 4},
		ScenarioCritical:   {200, 401, 5, 26, 4, 10},
	}
	for sc, w := range cases {
		for i := 0; i < 500; i++ {
			s := g.Scenario(sc, 107)
			if s.NodeID != 107 || s.NetworkID != 202 {
				t.Fatalf("%s: unexpected identity %+v", sc, s)
			}
			if s.Latency < w.latLo || s.Latency >= w.latHi {
				t.Fatalf("%s: latency %v outside [%v, %v)", sc, s.Latency, w.latLo, w.latHi)
			}
			if s.Throughput < w.thrLo || s.Throughput >= w.thrHi {
				t.Fatalf("%s: throughput %v outside [%v, %v)", sc, s.Throughput, w.thrLo, w.thrHi)
			}
			if s.ErrorRate < w.errLo || s.ErrorRate >= w.errHi {
				t.Fatalf("%s: error rate %v outside [%v, %v)", sc, s.ErrorRate, w.errLo, w.errHi)
			}
		}
	}
}

func TestDefaultScenarioFallsBackToNormal(t *testing.T) {
	g := newTestGenerator(13)
	s := g.Scenario(ParseScenario("meltdown"), 119)
	if s.NodeID != 119 || s.NetworkID != 204 || s.Latency < MinLatency {
		t.Fatalf("unexpected fallback sample %+v", s)
	}
}

func TestParseScenario(t *testing.T) {
	cases := map[string]Scenario{
		"CRITICAL":  ScenarioCritical,
		" optimal ": ScenarioOptimal,
		"":          ScenarioDefault,
	}
	for in, want := range cases {
		if got := ParseScenario(in); got != want {
			t.Fatalf("ParseScenario(%q) = %v, want %v", in, got, want)
		}
	}
	if ScenarioCongestion.String() != "congestion" || Scenario(42).String() != "default" {
		t.Fatalf("unexpected scenario names")
	}
}
