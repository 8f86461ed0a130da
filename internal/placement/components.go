package placement

import (
	"fmt"

	"github.com/imamik/chainfleet/internal/ledger"
)

// Component is one container image composing a node.
type Component struct {
	ServiceType ledger.ServiceType `json:"serviceType"`
	Image       string             `json:"image"`
}

// imageRepository prefixes every component image name.
const imageRepository = "chainfleet"

var ledgerComponents = map[ledger.BlockchainType][]Component{
	ledger.Ethereum: {
		{ServiceType: ledger.Concord, Image: imageRepository + "/concord-core:latest"},
		{ServiceType: ledger.EthereumAPI, Image: imageRepository + "/ethrpc:latest"},
		{ServiceType: ledger.Generic, Image: imageRepository + "/agent:latest"},
	},
	ledger.HLF: {
		{ServiceType: ledger.HLFConcord, Image: imageRepository + "/concord-core:latest"},
		{ServiceType: ledger.HLFOrderer, Image: imageRepository + "/hlf-orderer:latest"},
		{ServiceType: ledger.HLFPeer, Image: imageRepository + "/hlf-peer:latest"},
	},
	ledger.DAML: {
		{ServiceType: ledger.DAMLConcord, Image: imageRepository + "/concord-core:latest"},
		{ServiceType: ledger.DAMLExecutionEngine, Image: imageRepository + "/daml-execution-engine:latest"},
		{ServiceType: ledger.DAMLLedgerAPI, Image: imageRepository + "/daml-ledger-api:latest"},
		{ServiceType: ledger.DAMLIndexDB, Image: imageRepository + "/daml-index-db:latest"},
	},
}

// ComponentsForLedgerType returns the components composing one node of the
// given flavor. The returned slice is a copy.
func ComponentsForLedgerType(t ledger.BlockchainType) ([]Component, error) {
	components, ok := ledgerComponents[t]
	if !ok {
		return nil, fmt.Errorf("no components known for blockchain type %q", t)
	}
	return append([]Component(nil), components...), nil
}

// ServiceTypes lists the service types of components in order.
func ServiceTypes(components []Component) []ledger.ServiceType {
	out := make([]ledger.ServiceType, len(components))
	for i, c := range components {
		out[i] = c.ServiceType
	}
	return out
}
