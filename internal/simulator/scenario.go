package simulator

import "strings"

// Scenario is a named degradation pattern with fixed parameter ranges.
type Scenario int

const (
	ScenarioDefault Scenario = iota
	ScenarioOptimal
	ScenarioBaseline
	ScenarioCongestion
	ScenarioUnstable
	ScenarioCritical
)

var scenarioNames = map[Scenario]string{
	ScenarioDefault:    "default",
	ScenarioOptimal:    "optimal",
	ScenarioBaseline:   "baseline",
	ScenarioCongestion: "congestion",
	ScenarioUnstable:   "unstable",
	ScenarioCritical:   "critical",
}

// DiverseRotation is the scenario order used when generating diverse test data.
var DiverseRotation = []Scenario{
	ScenarioOptimal,
	ScenarioBaseline,
	ScenarioCongestion,
	ScenarioUnstable,
	ScenarioCritical,
}

// ParseScenario maps a name case-insensitively; unknown names yield ScenarioDefault.
func ParseScenario(name string) Scenario {
	lower := strings.ToLower(strings.TrimSpace(name))
	for sc, n := range scenarioNames {
		if n == lower {
			return sc
		}
	}
	return ScenarioDefault
}

func (s Scenario) String() string {
	if n, ok := scenarioNames[s]; ok {
		return n
	}
	return scenarioNames[ScenarioDefault]
}

type bounds struct{ lo, hi float64 }

type scenarioRanges struct {
	latency, throughput, errorRate bounds
}

var ranges = map[Scenario]scenarioRanges{
	ScenarioOptimal:    {latency: bounds{8, 15}, throughput: bounds{110, 125}, errorRate: bounds{0, 0.05}},
	ScenarioBaseline:   {latency: bounds{20, 35}, throughput: bounds{90, 110}, errorRate: bounds{0, 0.2}},
	ScenarioCongestion: {latency: bounds{80, 150}, throughput: bounds{30, 60}, errorRate: bounds{1, 3}},
	ScenarioUnstable:   {latency: bounds{20, 200}, throughput: bounds{40, 120}, errorRate: bounds{0.5, 4}},
	ScenarioCritical:   {latency: bounds{200, 400}, throughput: bounds{5, 25}, errorRate: bounds{4, 10}},
}
