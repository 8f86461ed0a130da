package certgen

import (
	"fmt"
	"path"
)

// Kind selects the naming and layout of a batch.
type Kind string

const (
	// KindTLS identities come in server/client pairs for consensus channels.
	KindTLS Kind = "TLS"
	// KindRPC identities serve a node's RPC-facing endpoint, one per host.
	KindRPC Kind = "RPC"
)

const (
	// TLSIdentityRoot is where consensus TLS material lives on a node.
	TLSIdentityRoot = "/concord/config-local/tls"
	// RPCIdentityRoot is where RPC endpoint material lives on a node.
	RPCIdentityRoot = "/ethrpc/tls"

	keyFile = "pk.pem"
)

// IdentityComponent is one file of an identity: where it goes and its
// base64-encoded PEM contents.
type IdentityComponent struct {
	URL         string `json:"url" yaml:"url"`
	Base64Value string `json:"base64Value" yaml:"base64Value"`
}

// Identity is a certificate and the private key it was signed with.
type Identity struct {
	Certificate IdentityComponent `json:"certificate"`
	Key         IdentityComponent `json:"key"`
}

// IdentityFactors describe how an identity was produced.
type IdentityFactors struct {
	KeyAlgorithm       string `json:"keyAlgorithm,omitempty" yaml:"keyAlgorithm,omitempty"`
	Curve              string `json:"curve,omitempty" yaml:"curve,omitempty"`
	SignatureAlgorithm string `json:"signatureAlgorithm,omitempty" yaml:"signatureAlgorithm,omitempty"`
}

// IsZero reports whether no factor is set.
func (f IdentityFactors) IsZero() bool {
	return f == IdentityFactors{}
}

// unit is a single identity to generate.
type unit struct {
	commonName string
	dir        string
	role       string
}

// units lays out a batch. For TLS, the first count units are the "server"
// identities and the next count the "client" identities of principals
// 0..count-1.
func units(count int, kind Kind) ([]unit, error) {
	switch kind {
	case KindTLS:
		out := make([]unit, 0, 2*count)
		for _, role := range []string{"server", "client"} {
			for i := range count {
				out = append(out, unit{
					commonName: fmt.Sprintf("node%d%s", i, role[:3]),
					dir:        path.Join(TLSIdentityRoot, fmt.Sprint(i), role),
					role:       role,
				})
			}
		}
		return out, nil
	case KindRPC:
		out := make([]unit, 0, count)
		for i := range count {
			out = append(out, unit{
				commonName: fmt.Sprintf("node%d", i),
				dir:        path.Join(RPCIdentityRoot, fmt.Sprint(i)),
				role:       "server",
			})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported identity kind %q", kind)
	}
}

func (u unit) certURL() string { return path.Join(u.dir, u.role+".cert") }

func (u unit) keyURL() string { return path.Join(u.dir, keyFile) }
