package configservice

import (
	"context"
	"fmt"
	"slices"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/chainfleet/internal/certgen"
	"github.com/imamik/chainfleet/internal/errdefs"
	"github.com/imamik/chainfleet/internal/ledger"
)

// IdentityGenerator produces identity batches.
type IdentityGenerator interface {
	Generate(ctx context.Context, count int, kind certgen.Kind) ([]certgen.Identity, error)
	IdentityFactors() certgen.IdentityFactors
}

// Service creates, serves and deletes configuration sessions.
type Service struct {
	store         SessionStore
	certs         IdentityGenerator
	clientProxies int
	ports         Ports
	newID         func() (SessionID, error)
	now           func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClientProxiesPerReplica sets how many client proxies each replica
// hosts. Zero leaves the principal topology unknown.
func WithClientProxiesPerReplica(n int) Option {
	return func(s *Service) {
		s.clientProxies = n
	}
}

// WithPorts overrides the ports rendered into node configuration.
func WithPorts(p Ports) Option {
	return func(s *Service) {
		s.ports = p
	}
}

// WithSessionIDSource overrides session id generation (useful for testing).
func WithSessionIDSource(fn func() (SessionID, error)) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// NewService creates a Service.
func NewService(store SessionStore, certs IdentityGenerator, opts ...Option) *Service {
	s := &Service{
		store:         store,
		certs:         certs,
		clientProxies: 4,
		ports:         DefaultPorts(),
		newID:         NewSessionID,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateConfiguration builds every node's bundle and stores them under a
// fresh session id. Nothing is stored unless every bundle was built.
func (s *Service) CreateConfiguration(ctx context.Context, req *Request) (SessionID, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	id, err := s.newID()
	if err != nil {
		return 0, err
	}
	logger := log.FromContext(ctx).WithValues("session", id)
	ctx = log.IntoContext(ctx, logger)

	static, err := s.staticComponents(ctx, req)
	if err != nil {
		return 0, err
	}
	if len(static) == 0 {
		logger.Info("no configuration generated", "services", req.Services)
		return 0, errdefs.Validationf("no configurations were generated for service types %v", req.Services)
	}

	nodes := make(map[int][]Component, len(req.Hosts))
	for i := range req.Hosts {
		nodes[i] = slices.Clone(static)
	}

	if ledger.AnyRequiresConsensusMembership(req.Services) {
		if err := s.addConsensus(ctx, req, nodes); err != nil {
			return 0, err
		}
	}
	if slices.Contains(req.Services, ledger.EthereumAPI) {
		if err := s.addRPCIdentities(ctx, req, nodes); err != nil {
			return 0, err
		}
	}

	session := &Session{ID: id, Nodes: nodes, CreatedAt: s.now().UTC()}
	if err := s.store.Insert(ctx, session); err != nil {
		sessionsTotal.WithLabelValues("create_failed").Inc()
		return 0, fmt.Errorf("could not persist configuration results: %w", err)
	}

	sessionsTotal.WithLabelValues("created").Inc()
	logger.Info("persisted configuration session", "nodes", len(nodes))
	return id, nil
}

// consensusServiceType picks the service type consensus components are
// filed under.
func consensusServiceType(services []ledger.ServiceType) ledger.ServiceType {
	for _, st := range []ledger.ServiceType{ledger.Concord, ledger.DAMLConcord, ledger.HLFConcord} {
		if slices.Contains(services, st) {
			return st
		}
	}
	return ledger.Concord
}

func (s *Service) addConsensus(ctx context.Context, req *Request, nodes map[int][]Component) error {
	logger := log.FromContext(ctx)
	topo := Topology{Nodes: len(req.Hosts), ClientProxiesPerReplica: s.clientProxies}
	principals := topo.Principals()
	if len(principals) == 0 {
		logger.Info("principal topology unknown, every node receives every identity")
	}

	numCerts := topo.MaxPrincipalID() + 1
	identities, err := s.certs.Generate(ctx, numCerts, certgen.KindTLS)
	if err != nil {
		return err
	}
	logger.V(1).Info("generated tls identities", "principals", numCerts)

	perNode, err := BuildIdentity(identities, principals, numCerts, len(req.Hosts))
	if err != nil {
		return fmt.Errorf("failed to filter tls identities: %w", err)
	}

	configs, err := consensusConfigs(req.Hosts, topo, s.ports, req.BlockchainType)
	if err != nil {
		return err
	}

	st := consensusServiceType(req.Services)
	factors := s.certs.IdentityFactors()

	var telegraf [][]byte
	var metrics []byte
	if slices.Contains(req.Services, ledger.Telegraf) {
		if telegraf, err = telegrafConfigs(req.Hosts, s.ports); err != nil {
			return err
		}
		if metrics, err = metricsConfigYAML(s.ports); err != nil {
			return err
		}
	}

	for node := range req.Hosts {
		components := nodes[node]
		components = append(components, encoded(st, ConsensusConfigPath, configs[node]))
		for _, ic := range perNode[node] {
			components = append(components, Component{
				ServiceType:     st,
				URL:             ic.URL,
				Base64Value:     ic.Base64Value,
				IdentityFactors: factors,
			})
		}
		if telegraf != nil {
			components = append(components,
				encoded(ledger.Telegraf, TelegrafConfigPath, telegraf[node]),
				encoded(ledger.Telegraf, MetricsConfigPath, metrics),
			)
		}
		nodes[node] = components
	}
	return nil
}

func (s *Service) addRPCIdentities(ctx context.Context, req *Request, nodes map[int][]Component) error {
	identities, err := s.certs.Generate(ctx, len(req.Hosts), certgen.KindRPC)
	if err != nil {
		return err
	}
	factors := s.certs.IdentityFactors()
	for node := range req.Hosts {
		id := identities[node]
		nodes[node] = append(nodes[node],
			Component{ServiceType: ledger.EthereumAPI, URL: id.Certificate.URL, Base64Value: id.Certificate.Base64Value, IdentityFactors: factors},
			Component{ServiceType: ledger.EthereumAPI, URL: id.Key.URL, Base64Value: id.Key.Base64Value, IdentityFactors: factors},
		)
	}
	return nil
}

// NodeConfiguration returns the bundle for one node of a session.
func (s *Service) NodeConfiguration(ctx context.Context, id SessionID, node int) ([]Component, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	components, err := session.Node(node)
	if err != nil {
		return nil, err
	}
	log.FromContext(ctx).V(1).Info("served node configuration", "session", id, "node", node, "components", len(components))
	return components, nil
}

// DeleteConfiguration removes a session. Deleting twice fails with NotFound.
func (s *Service) DeleteConfiguration(ctx context.Context, id SessionID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	sessionsTotal.WithLabelValues("deleted").Inc()
	log.FromContext(ctx).Info("deleted configuration session", "session", id)
	return nil
}
