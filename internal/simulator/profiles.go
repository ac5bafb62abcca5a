package simulator

import (
	"math/rand/v2"
)

// NodeProfile holds the fixed stochastic characteristics of one node.
type NodeProfile struct {
	NodeID                int     `json:"nodeId"`
	LatencyModifier       float64 `json:"latencyModifier"`
	ThroughputModifier    float64 `json:"throughputModifier"`
	StabilityFactor       float64 `json:"stabilityFactor"`
	CongestionProbability float64 `json:"congestionProbability"`
}

// DefaultProfile is used for nodes outside the registry.
func DefaultProfile(nodeID int) NodeProfile {
	return NodeProfile{
		NodeID:                nodeID,
		StabilityFactor:       1.0,
		CongestionProbability: 0.02,
	}
}

// Registry is the read-only set of node profiles built at simulator start.
type Registry struct {
	profiles map[int]NodeProfile
}

// NewRegistry draws a profile for every simulated node from rng.
func NewRegistry(rng *rand.Rand) *Registry {
	profiles := make(map[int]NodeProfile, TotalNodes)
	for _, id := range NodeIDs() {
		profiles[id] = NodeProfile{
			NodeID:                id,
			LatencyModifier:       float64(intBetween(rng, -5, 10)),
			ThroughputModifier:    float64(intBetween(rng, -15, 20)),
			StabilityFactor:       0.8 + rng.Float64()*0.4,
			CongestionProbability: 0.02 + rng.Float64()*0.13,
		}
	}
	return &Registry{profiles: profiles}
}

// Lookup returns the profile for nodeID and whether it exists.
func (r *Registry) Lookup(nodeID int) (NodeProfile, bool) {
	p, ok := r.profiles[nodeID]
	return p, ok
}

// ProfileFor returns the registered profile or the neutral default.
func (r *Registry) ProfileFor(nodeID int) NodeProfile {
	if p, ok := r.Lookup(nodeID); ok {
		return p
	}
	return DefaultProfile(nodeID)
}

// Len reports the number of registered profiles.
func (r *Registry) Len() int { return len(r.profiles) }
