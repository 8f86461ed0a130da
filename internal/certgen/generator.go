package certgen

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/chainfleet/internal/errdefs"
	"github.com/imamik/chainfleet/internal/util/async"
)

const defaultValidity = 10 * 365 * 24 * time.Hour

// Generator creates self-signed identities.
type Generator struct {
	workers  int
	validity time.Duration
	curve    elliptic.Curve
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithWorkers bounds the number of identities generated at once. Zero or
// negative means one worker per CPU.
func WithWorkers(n int) Option {
	return func(g *Generator) {
		g.workers = n
	}
}

// WithValidity sets the certificate lifetime.
func WithValidity(d time.Duration) Option {
	return func(g *Generator) {
		g.validity = d
	}
}

// WithCurve selects the elliptic curve by name (P-256, P-384 or P-521).
func WithCurve(name string) Option {
	return func(g *Generator) {
		if c, ok := curves[name]; ok {
			g.curve = c
		}
	}
}

var curves = map[string]elliptic.Curve{
	"P-256": elliptic.P256(),
	"P-384": elliptic.P384(),
	"P-521": elliptic.P521(),
}

// ParseCurve validates a curve name.
func ParseCurve(name string) error {
	if _, ok := curves[name]; !ok {
		return errdefs.Validationf("unsupported curve %q", name)
	}
	return nil
}

// New creates a Generator with P-256 keys valid for ten years.
func New(opts ...Option) *Generator {
	g := &Generator{
		validity: defaultValidity,
		curve:    elliptic.P256(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IdentityFactors describes the identities this generator produces.
func (g *Generator) IdentityFactors() IdentityFactors {
	return IdentityFactors{
		KeyAlgorithm:       "ECDSA",
		Curve:              g.curve.Params().Name,
		SignatureAlgorithm: signatureAlgorithm(g.curve).String(),
	}
}

// Generate produces a batch of identities. A TLS batch holds 2*count
// identities: servers for principals 0..count-1 followed by clients for the
// same principals. An RPC batch holds count identities, one per host.
// Either every identity is returned or none is.
func (g *Generator) Generate(ctx context.Context, count int, kind Kind) ([]Identity, error) {
	if count < 0 {
		return nil, errdefs.Validationf("identity count must not be negative, got %d", count)
	}
	layout, err := units(count, kind)
	if err != nil {
		return nil, errdefs.Validationf("%v", err)
	}

	start := time.Now()
	identities, err := async.Collect(ctx, len(layout), g.workers, func(_ context.Context, i int) (Identity, error) {
		id, err := g.generate(layout[i])
		if err != nil {
			return Identity{}, fmt.Errorf("identity %s: %w", layout[i].commonName, err)
		}
		return id, nil
	})
	observeBatch(kind, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s identities: %w", kind, err)
	}

	log.FromContext(ctx).V(1).Info("generated identities", "kind", kind, "count", len(identities))
	if identities == nil {
		identities = []Identity{}
	}
	return identities, nil
}

func (g *Generator) generate(u unit) (Identity, error) {
	priv, err := ecdsa.GenerateKey(g.curve, rand.Reader)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to generate key: %w", err)
	}

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to create serial number: %w", err)
	}

	now := g.now().UTC()
	template := x509.Certificate{
		SerialNumber:          serialNumber,
		Subject:               pkix.Name{CommonName: u.commonName},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(g.validity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{u.commonName},
		SignatureAlgorithm:    signatureAlgorithm(g.curve),
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to marshal private key: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	return Identity{
		Certificate: IdentityComponent{URL: u.certURL(), Base64Value: base64.StdEncoding.EncodeToString(certPEM)},
		Key:         IdentityComponent{URL: u.keyURL(), Base64Value: base64.StdEncoding.EncodeToString(keyPEM)},
	}, nil
}

func signatureAlgorithm(c elliptic.Curve) x509.SignatureAlgorithm {
	switch c {
	case elliptic.P384():
		return x509.ECDSAWithSHA384
	case elliptic.P521():
		return x509.ECDSAWithSHA512
	default:
		return x509.ECDSAWithSHA256
	}
}
