package labels

import "strconv"

// Standard label keys, namespaced under chainfleet.io.
const (
	// KeyManagedBy identifies the management system
	KeyManagedBy = "chainfleet.io/managed-by"

	// KeyComponent identifies what kind of object this is (session, blockchain)
	KeyComponent = "chainfleet.io/component"

	// KeyConsortium identifies the consortium a blockchain belongs to
	KeyConsortium = "chainfleet.io/consortium"

	// KeyCluster identifies the deployed cluster
	KeyCluster = "chainfleet.io/cluster"

	// KeySession identifies a configuration session
	KeySession = "chainfleet.io/session"

	// KeyNode identifies the node index within a session
	KeyNode = "chainfleet.io/node"
)

// ManagedBy values
const (
	ManagedByChainfleet = "chainfleet"
)

// Component values
const (
	ComponentConfigurationSession = "configuration-session"
	ComponentConfigurationNode    = "configuration-node"
	ComponentBlockchain           = "blockchain"
)

// LabelBuilder provides a fluent interface for building object labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a builder for a component, with managed-by pre-set.
func NewLabelBuilder(component string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyComponent: component,
			KeyManagedBy: ManagedByChainfleet,
		},
	}
}

// WithConsortium adds a consortium label.
func (lb *LabelBuilder) WithConsortium(id string) *LabelBuilder {
	lb.labels[KeyConsortium] = id
	return lb
}

// WithCluster adds a cluster label.
func (lb *LabelBuilder) WithCluster(id string) *LabelBuilder {
	lb.labels[KeyCluster] = id
	return lb
}

// WithSession adds a session label.
func (lb *LabelBuilder) WithSession(id string) *LabelBuilder {
	lb.labels[KeySession] = id
	return lb
}

// WithNode adds a node index label.
func (lb *LabelBuilder) WithNode(index int) *LabelBuilder {
	lb.labels[KeyNode] = strconv.Itoa(index)
	return lb
}

// Build returns a copy of the labels map.
// Returns a copy to prevent external mutations.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}
