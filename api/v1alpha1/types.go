package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// BlockchainSpec records a deployed consensus cluster.
type BlockchainSpec struct {
	// ClusterID is the id the orchestrator assigned to the cluster
	ClusterID string `json:"clusterId"`

	// ConsortiumID is the consortium that owns the blockchain
	ConsortiumID string `json:"consortiumId"`

	// BlockchainType is the ledger flavor
	// +kubebuilder:validation:Enum=ETHEREUM;DAML;HLF
	// +optional
	BlockchainType string `json:"blockchainType,omitempty"`

	// Nodes lists the replicas in the order the orchestrator reported them
	Nodes []BlockchainNode `json:"nodes"`
}

// BlockchainNode is one replica of a deployed cluster.
type BlockchainNode struct {
	// NodeID is the orchestrator's id for the replica
	NodeID string `json:"nodeId"`

	// IP is the replica address in dotted-decimal form
	IP string `json:"ip"`

	// URL is the replica's RPC endpoint
	// +optional
	URL string `json:"url,omitempty"`

	// Cert is the PEM certificate served on URL
	// +optional
	Cert string `json:"cert,omitempty"`

	// ZoneID is the site the replica runs in
	// +optional
	ZoneID string `json:"zoneId,omitempty"`
}

// BlockchainPhase represents the lifecycle of a Blockchain record.
type BlockchainPhase string

// Blockchain phases.
const (
	BlockchainPhasePending BlockchainPhase = "Pending"
	BlockchainPhaseActive  BlockchainPhase = "Active"
)

// Condition types.
const (
	// ConditionReady reports the blockchain is visible to API callers.
	ConditionReady = "Ready"
)

// BlockchainStatus defines the observed state of Blockchain.
type BlockchainStatus struct {
	// Phase is the overall phase
	// +kubebuilder:validation:Enum=Pending;Active
	Phase BlockchainPhase `json:"phase,omitempty"`

	// NodeCount is len(spec.nodes) at the last status write
	NodeCount int `json:"nodeCount,omitempty"`

	// Conditions represent the latest available observations
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=bc
// +kubebuilder:printcolumn:name="Consortium",type=string,JSONPath=`.spec.consortiumId`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Nodes",type=integer,JSONPath=`.status.nodeCount`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// Blockchain is the Schema for the blockchains API.
type Blockchain struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   BlockchainSpec   `json:"spec,omitempty"`
	Status BlockchainStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// BlockchainList contains a list of Blockchain.
type BlockchainList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Blockchain `json:"items"`
}
