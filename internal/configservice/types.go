package configservice

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/imamik/chainfleet/internal/certgen"
	"github.com/imamik/chainfleet/internal/errdefs"
	"github.com/imamik/chainfleet/internal/ledger"
)

// SessionID is an opaque 64-bit token naming a configuration session.
type SessionID uint64

func (id SessionID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseSessionID parses the decimal form produced by String.
func ParseSessionID(s string) (SessionID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errdefs.Validationf("invalid session id %q", s)
	}
	return SessionID(v), nil
}

// NewSessionID draws a session id from crypto/rand.
func NewSessionID() (SessionID, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("failed to read random session id: %w", err)
	}
	return SessionID(binary.BigEndian.Uint64(b[:])), nil
}

// Component is one file a node writes during bootstrap.
type Component struct {
	ServiceType     ledger.ServiceType      `json:"serviceType"`
	URL             string                  `json:"componentUrl"`
	Base64Value     string                  `json:"component"`
	IdentityFactors certgen.IdentityFactors `json:"identityFactors"`
}

// Session is the immutable result of one CreateConfiguration call.
type Session struct {
	ID        SessionID           `json:"id"`
	Nodes     map[int][]Component `json:"nodes"`
	CreatedAt time.Time           `json:"createdAt"`
}

// Node returns the component list for node, or a NotFound error when the
// node is absent or has nothing to serve.
func (s *Session) Node(node int) ([]Component, error) {
	components := s.Nodes[node]
	if len(components) == 0 {
		return nil, errdefs.NotFoundf("node configuration is empty for node %d in session %s", node, s.ID)
	}
	return slices.Clone(components), nil
}

// Genesis is the ledger's initial state for an Ethereum-flavored CONCORD.
type Genesis struct {
	Config     GenesisConfig             `json:"config" yaml:"config"`
	Nonce      string                    `json:"nonce" yaml:"nonce"`
	Difficulty string                    `json:"difficulty" yaml:"difficulty"`
	Mixhash    string                    `json:"mixhash" yaml:"mixhash"`
	ParentHash string                    `json:"parentHash" yaml:"parentHash"`
	GasLimit   string                    `json:"gasLimit" yaml:"gasLimit"`
	Alloc      map[string]GenesisAccount `json:"alloc" yaml:"alloc"`
}

// GenesisConfig carries chain parameters.
type GenesisConfig struct {
	ChainID        int64 `json:"chainId" yaml:"chainId"`
	HomesteadBlock int64 `json:"homesteadBlock" yaml:"homesteadBlock"`
	EIP155Block    int64 `json:"eip155Block" yaml:"eip155Block"`
	EIP158Block    int64 `json:"eip158Block" yaml:"eip158Block"`
}

// GenesisAccount is a pre-funded account.
type GenesisAccount struct {
	Balance string `json:"balance" yaml:"balance"`
}

// DefaultGenesis is used when a CONCORD request carries no genesis block.
func DefaultGenesis() *Genesis {
	return &Genesis{
		Config:     GenesisConfig{ChainID: 1, HomesteadBlock: 0, EIP155Block: 0, EIP158Block: 0},
		Nonce:      "0x0000000000000000",
		Difficulty: "0x400",
		Mixhash:    "0x0000000000000000000000000000000000000000000000000000000000000000",
		ParentHash: "0x0000000000000000000000000000000000000000000000000000000000000000",
		GasLimit:   "0xf4240",
		Alloc:      map[string]GenesisAccount{},
	}
}

// Request describes the bundles to build.
type Request struct {
	// Hosts are node addresses, indexed by node.
	Hosts          []string              `json:"hosts"`
	Services       []ledger.ServiceType  `json:"services"`
	BlockchainType ledger.BlockchainType `json:"blockchainType"`
	Genesis        *Genesis              `json:"genesis,omitempty"`
	Properties     map[string]string     `json:"properties,omitempty"`
}

// Validate rejects requests that can never produce a session.
func (r *Request) Validate() error {
	if len(r.Hosts) == 0 {
		return errdefs.Validationf("at least one host is required")
	}
	for i, h := range r.Hosts {
		if h == "" {
			return errdefs.Validationf("host %d is empty", i)
		}
	}
	if len(r.Services) == 0 {
		return errdefs.Validationf("at least one service type is required")
	}
	for k, v := range r.Properties {
		if strings.ContainsFunc(v, unicode.IsControl) {
			return errdefs.Validationf("property %s contains control characters", k)
		}
	}
	return nil
}
