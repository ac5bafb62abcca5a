package simulator

// Fixed simulated topology: twenty nodes, five per network.
const (
	FirstNodeID     = 100
	LastNodeID      = 119
	FirstNetworkID  = 201
	NodesPerNetwork = 5
	TotalNodes      = LastNodeID - FirstNodeID + 1
	TotalNetworks   = TotalNodes / NodesPerNetwork
)

// NodeIDs returns every simulated node id in ascending order.
func NodeIDs() []int {
	ids := make([]int, 0, TotalNodes)
	for id := FirstNodeID; id <= LastNodeID; id++ {
		ids = append(ids, id)
	}
	return ids
}

// NetworkIDs returns every simulated network id in ascending order.
func NetworkIDs() []int {
	ids := make([]int, 0, TotalNetworks)
	for i := 0; i < TotalNetworks; i++ {
		ids = append(ids, FirstNetworkID+i)
	}
	return ids
}

// IsKnownNode reports whether id belongs to the simulated topology.
func IsKnownNode(id int) bool {
	return id >= FirstNodeID && id <= LastNodeID
}

// NetworkFor maps a node id onto its network.
func NetworkFor(nodeID int) (int, bool) {
	if !IsKnownNode(nodeID) {
		return 0, false
	}
	return FirstNetworkID + (nodeID-FirstNodeID)/NodesPerNetwork, true
}
