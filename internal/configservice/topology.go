package configservice

// Topology describes how consensus principals map onto physical nodes.
//
// Replicas take principal ids 0..n-1. Client proxy j (0-based) of node i is
// principal i + n*(j+1).
type Topology struct {
	Nodes                   int
	ClientProxiesPerReplica int
}

// NumPrincipals is the total number of principals in the cluster.
func (t Topology) NumPrincipals() int {
	return t.Nodes * (t.ClientProxiesPerReplica + 1)
}

// MaxPrincipalID is the highest principal id in the cluster.
func (t Topology) MaxPrincipalID() int {
	return t.NumPrincipals() - 1
}

// Principals maps each node to the principals it hosts: itself first, then
// its client proxies. Without client proxies the membership is not known
// yet and the map is empty.
func (t Topology) Principals() map[int][]int {
	out := make(map[int][]int)
	if t.ClientProxiesPerReplica <= 0 {
		return out
	}
	for node := range t.Nodes {
		ids := make([]int, 0, t.ClientProxiesPerReplica+1)
		ids = append(ids, node)
		for j := range t.ClientProxiesPerReplica {
			ids = append(ids, node+t.Nodes*(j+1))
		}
		out[node] = ids
	}
	return out
}

// FaultTolerance derives the largest f, then c, for which 3f+2c+1 equals the
// node count. Node counts that do not fit exactly round down.
func (t Topology) FaultTolerance() (f, c int) {
	if t.Nodes < 1 {
		return 0, 0
	}
	f = (t.Nodes - 1) / 3
	c = (t.Nodes - 1 - 3*f) / 2
	return f, c
}
