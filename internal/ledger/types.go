// Package ledger holds the vocabulary shared by the planner, the configuration
// service and the deployment coordinator: ledger flavors and the service types
// that make up one node.
package ledger

import (
	"strings"

	"github.com/imamik/chainfleet/internal/errdefs"
)

// BlockchainType is the ledger flavor a cluster runs.
type BlockchainType string

// Known ledger flavors.
const (
	Ethereum BlockchainType = "ETHEREUM"
	DAML     BlockchainType = "DAML"
	HLF      BlockchainType = "HLF"
)

// ParseBlockchainType parses a flavor name case-insensitively.
func ParseBlockchainType(s string) (BlockchainType, error) {
	switch t := BlockchainType(strings.ToUpper(strings.TrimSpace(s))); t {
	case Ethereum, DAML, HLF:
		return t, nil
	default:
		return "", errdefs.Validationf("unknown blockchain type %q", s)
	}
}

// ServiceType identifies one container/service running on a node.
type ServiceType string

// Known service types.
const (
	Concord             ServiceType = "CONCORD"
	DAMLConcord         ServiceType = "DAML_CONCORD"
	HLFConcord          ServiceType = "HLF_CONCORD"
	DAMLExecutionEngine ServiceType = "DAML_EXECUTION_ENGINE"
	DAMLLedgerAPI       ServiceType = "DAML_LEDGER_API"
	DAMLIndexDB         ServiceType = "DAML_INDEX_DB"
	EthereumAPI         ServiceType = "ETHEREUM_API"
	HLFOrderer          ServiceType = "HLF_ORDERER"
	HLFPeer             ServiceType = "HLF_PEER"
	Telegraf            ServiceType = "TELEGRAF"
	Logging             ServiceType = "LOGGING"
	Generic             ServiceType = "GENERIC"
)

// RequiresConsensusMembership reports whether a service needs the principal
// topology and TLS identities: the consensus engines and the metrics agent
// that rides alongside them.
func (s ServiceType) RequiresConsensusMembership() bool {
	switch s {
	case Concord, DAMLConcord, HLFConcord, Telegraf:
		return true
	default:
		return false
	}
}

// AnyRequiresConsensusMembership reports whether one of services needs it.
func AnyRequiresConsensusMembership(services []ServiceType) bool {
	for _, s := range services {
		if s.RequiresConsensusMembership() {
			return true
		}
	}
	return false
}

// ParseServiceType parses a service type name case-insensitively. Unknown
// names are returned as-is so callers can log and skip them.
func ParseServiceType(s string) ServiceType {
	return ServiceType(strings.ToUpper(strings.TrimSpace(s)))
}
