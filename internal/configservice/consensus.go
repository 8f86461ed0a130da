package configservice

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/imamik/chainfleet/internal/certgen"
	"github.com/imamik/chainfleet/internal/ledger"
)

// ConsensusConfigPath is where a node's consensus configuration is written.
const ConsensusConfigPath = "/concord/config-local/concord.config"

// Ports are the well-known ports rendered into node configuration.
type Ports struct {
	Replica         int `yaml:"replica"`
	ClientProxyBase int `yaml:"clientProxyBase"`
	ClientService   int `yaml:"clientService"`
	EthRPC          int `yaml:"ethRpc"`
	Metrics         int `yaml:"metrics"`
}

// DefaultPorts returns the ports used by the stock node images.
func DefaultPorts() Ports {
	return Ports{
		Replica:         3501,
		ClientProxyBase: 3505,
		ClientService:   50051,
		EthRPC:          8545,
		Metrics:         9891,
	}
}

type consensusConfig struct {
	ReplicaID               int             `yaml:"replica_id"`
	BlockchainType          string          `yaml:"blockchain_type,omitempty"`
	NumReplicas             int             `yaml:"num_replicas"`
	FVal                    int             `yaml:"f_val"`
	CVal                    int             `yaml:"c_val"`
	ClientProxiesPerReplica int             `yaml:"client_proxies_per_replica"`
	NumPrincipals           int             `yaml:"num_principals"`
	TLSCertificatesFolder   string          `yaml:"tls_certificates_folder_path"`
	TLSCipherSuiteList      string          `yaml:"tls_cipher_suite_list"`
	ClientServicePort       int             `yaml:"service_port"`
	Nodes                   []consensusNode `yaml:"node"`
}

type consensusNode struct {
	Replica     []principalEndpoint `yaml:"replica"`
	ClientProxy []principalEndpoint `yaml:"client_proxy,omitempty"`
}

type principalEndpoint struct {
	PrincipalID int    `yaml:"principal_id"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
}

// consensusConfigs renders one consensus configuration per host. Every
// document lists the whole cluster and differs only in replica_id.
func consensusConfigs(hosts []string, topo Topology, ports Ports, bt ledger.BlockchainType) ([][]byte, error) {
	f, c := topo.FaultTolerance()
	base := consensusConfig{
		BlockchainType:          string(bt),
		NumReplicas:             topo.Nodes,
		FVal:                    f,
		CVal:                    c,
		ClientProxiesPerReplica: topo.ClientProxiesPerReplica,
		NumPrincipals:           topo.NumPrincipals(),
		TLSCertificatesFolder:   certgen.TLSIdentityRoot,
		TLSCipherSuiteList:      "ECDHE-ECDSA-AES256-GCM-SHA384",
		ClientServicePort:       ports.ClientService,
	}
	for i, host := range hosts {
		n := consensusNode{
			Replica: []principalEndpoint{{PrincipalID: i, Host: host, Port: ports.Replica}},
		}
		for j := range topo.ClientProxiesPerReplica {
			n.ClientProxy = append(n.ClientProxy, principalEndpoint{
				PrincipalID: i + topo.Nodes*(j+1),
				Host:        host,
				Port:        ports.ClientProxyBase + j,
			})
		}
		base.Nodes = append(base.Nodes, n)
	}

	out := make([][]byte, len(hosts))
	for i := range hosts {
		cfg := base
		cfg.ReplicaID = i

		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, fmt.Errorf("failed to render consensus config for node %d: %w", i, err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to render consensus config for node %d: %w", i, err)
		}
		out[i] = buf.Bytes()
	}
	return out, nil
}
