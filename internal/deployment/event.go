package deployment

import (
	"fmt"
	"slices"

	"github.com/imamik/chainfleet/internal/clusters"
)

// EventType names a step of a deployment session.
type EventType string

// Event types in the order the orchestrator emits them.
const (
	EventAcknowledged    EventType = "ACKNOWLEDGED"
	EventResource        EventType = "RESOURCE"
	EventNodeDeployed    EventType = "NODE_DEPLOYED"
	EventClusterDeployed EventType = "CLUSTER_DEPLOYED"
	EventCompleted       EventType = "COMPLETED"
)

// Status is the outcome reported by a deployment session.
type Status string

// Session statuses.
const (
	StatusUnknown Status = "UNKNOWN"
	StatusActive  Status = "ACTIVE"
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// RPCEndpoint is the endpoint name whose url and certificate are recorded
// for each node.
const RPCEndpoint = "ethereum-rpc"

// Event is one immutable message of a deployment session stream.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	Cluster   *Cluster  `json:"cluster,omitempty"`
	Status    Status    `json:"status,omitempty"`
}

// Cluster is the raw cluster snapshot carried by CLUSTER_DEPLOYED.
type Cluster struct {
	ID      string   `json:"id"`
	Members []Member `json:"members"`
}

// Member is one deployed replica in a cluster snapshot.
type Member struct {
	ID       string   `json:"id"`
	HostInfo HostInfo `json:"hostInfo"`
}

// HostInfo describes where a replica runs and how to reach it.
type HostInfo struct {
	Site string `json:"site"`
	// IPv4Addresses maps raw 32-bit addresses to interface names.
	IPv4Addresses map[uint32]string   `json:"ipv4Addresses,omitempty"`
	Endpoints     map[string]Endpoint `json:"endpoints,omitempty"`
}

// Endpoint is a named service endpoint of a replica.
type Endpoint struct {
	URL         string `json:"url"`
	Certificate string `json:"certificate,omitempty"`
}

// Update is one item of a deployment stream: either an event or the error
// that ended the stream.
type Update struct {
	Event *Event
	Err   error
}

// CanonicalIPv4 renders a 32-bit address as dotted decimal, most
// significant byte first.
func CanonicalIPv4(v uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", v>>24, (v>>16)&0xff, (v>>8)&0xff, v&0xff)
}

// firstAddress returns the lowest address key, or 0 when there is none.
func (h HostInfo) firstAddress() uint32 {
	if len(h.IPv4Addresses) == 0 {
		return 0
	}
	keys := make([]uint32, 0, len(h.IPv4Addresses))
	for k := range h.IPv4Addresses {
		keys = append(keys, k)
	}
	return slices.Min(keys)
}

// Node converts a snapshot member into a cluster node.
func (m Member) Node() clusters.Node {
	n := clusters.Node{
		NodeID: m.ID,
		IP:     CanonicalIPv4(m.HostInfo.firstAddress()),
		ZoneID: m.HostInfo.Site,
	}
	if ep, ok := m.HostInfo.Endpoints[RPCEndpoint]; ok {
		n.URL = ep.URL
		n.Cert = ep.Certificate
	}
	return n
}

// Nodes converts every member of the snapshot, preserving order.
func (c *Cluster) Nodes() []clusters.Node {
	if c == nil {
		return nil
	}
	nodes := make([]clusters.Node, len(c.Members))
	for i, m := range c.Members {
		nodes[i] = m.Node()
	}
	return nodes
}
