package configservice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/chainfleet/internal/certgen"
	"github.com/imamik/chainfleet/internal/ledger"
)

// Paths of the static components on a node.
const (
	GenesisPath          = "/concord/config-public/genesis.json"
	LedgerDescriptorPath = "/concord/config-public/ledger.yaml"
	DAMLLedgerAPIEnvPath = "/daml-ledger-api/environment-vars"
	DAMLIndexDBEnvPath   = "/daml-index-db/environment-vars"
	LoggingEnvPath       = "/fluentd/logging.env"
	EthRPCConfigPath     = "/ethrpc/application.yaml"
)

// Request property keys.
const (
	PropertyReplicas      = "REPLICAS"
	PropertyLoggingConfig = "LOGGING_CONFIG"
)

// staticComponents builds the host-independent part of every bundle. Service
// types without static configuration are logged and skipped.
func (s *Service) staticComponents(ctx context.Context, req *Request) ([]Component, error) {
	logger := log.FromContext(ctx)
	var out []Component

	for _, st := range req.Services {
		var (
			c   Component
			err error
		)
		switch st {
		case ledger.Concord:
			c, err = genesisComponent(req.Genesis)
		case ledger.DAMLConcord, ledger.HLFConcord:
			c, err = ledgerDescriptorComponent(st, req.BlockchainType)
		case ledger.DAMLLedgerAPI:
			c = envComponent(st, DAMLLedgerAPIEnvPath, map[string]string{
				PropertyReplicas: req.Properties[PropertyReplicas],
			})
		case ledger.DAMLIndexDB:
			c = envComponent(st, DAMLIndexDBEnvPath, map[string]string{
				"POSTGRES_USER":               "indexdb",
				"POSTGRES_MULTIPLE_DATABASES": "daml_ledger_api",
			})
		case ledger.Logging:
			c = envComponent(st, LoggingEnvPath, map[string]string{
				PropertyLoggingConfig: req.Properties[PropertyLoggingConfig],
			})
		case ledger.EthereumAPI:
			c, err = s.ethRPCConfigComponent(len(req.Hosts))
		default:
			logger.Info("no static configuration for service type", "serviceType", st)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to render %s configuration: %w", st, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func genesisComponent(g *Genesis) (Component, error) {
	if g == nil {
		g = DefaultGenesis()
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return Component{}, err
	}
	return encoded(ledger.Concord, GenesisPath, data), nil
}

type ledgerDescriptor struct {
	BlockchainType string `yaml:"blockchain_type"`
	ExecutionModel string `yaml:"execution_model"`
}

func ledgerDescriptorComponent(st ledger.ServiceType, bt ledger.BlockchainType) (Component, error) {
	d := ledgerDescriptor{BlockchainType: string(bt)}
	switch st {
	case ledger.DAMLConcord:
		d.ExecutionModel = "daml"
		if d.BlockchainType == "" {
			d.BlockchainType = string(ledger.DAML)
		}
	case ledger.HLFConcord:
		d.ExecutionModel = "hlf"
		if d.BlockchainType == "" {
			d.BlockchainType = string(ledger.HLF)
		}
	}
	data, err := yaml.Marshal(d)
	if err != nil {
		return Component{}, err
	}
	return encoded(st, LedgerDescriptorPath, data), nil
}

// envComponent renders export lines sorted by key. Values are shell-quoted
// when they contain anything beyond a plain word.
func envComponent(st ledger.ServiceType, path string, vars map[string]string) Component {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "export %s=%s\n", k, shellQuote(vars[k]))
	}
	return encoded(st, path, []byte(b.String()))
}

func shellQuote(v string) string {
	plain := strings.IndexFunc(v, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return false
		case strings.ContainsRune("_@%+=:,./-", r):
			return false
		}
		return true
	}) < 0
	if plain {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

type ethRPCConfig struct {
	ConcordAuthorities []string `yaml:"concord_authorities"`
	TLS                struct {
		Enabled bool   `yaml:"enabled"`
		Dir     string `yaml:"dir"`
	} `yaml:"tls"`
	Port int `yaml:"port"`
}

func (s *Service) ethRPCConfigComponent(nodes int) (Component, error) {
	cfg := ethRPCConfig{Port: s.ports.EthRPC}
	for i := range nodes {
		cfg.ConcordAuthorities = append(cfg.ConcordAuthorities, fmt.Sprintf("concord%d:%d", i+1, s.ports.ClientService))
	}
	cfg.TLS.Enabled = true
	cfg.TLS.Dir = certgen.RPCIdentityRoot

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return Component{}, err
	}
	if err := enc.Close(); err != nil {
		return Component{}, err
	}
	return encoded(ledger.EthereumAPI, EthRPCConfigPath, buf.Bytes()), nil
}

func encoded(st ledger.ServiceType, url string, data []byte) Component {
	return Component{
		ServiceType: st,
		URL:         url,
		Base64Value: base64.StdEncoding.EncodeToString(data),
	}
}
