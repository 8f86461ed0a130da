package deployment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/chainfleet/internal/errdefs"
	"github.com/imamik/chainfleet/internal/ledger"
	"github.com/imamik/chainfleet/internal/placement"
	"github.com/imamik/chainfleet/internal/tasks"
)

// ModelSpec describes what runs on every node of the cluster.
type ModelSpec struct {
	BlockchainType ledger.BlockchainType `json:"blockchainType"`
	Components     []placement.Component `json:"components"`
}

// Provisioner starts cluster deployments on the external orchestrator.
type Provisioner interface {
	// CreateCluster starts a deployment and returns its ordered event
	// stream. The channel is closed once no further events will arrive.
	CreateCluster(ctx context.Context, spec *placement.Specification, model ModelSpec) (<-chan Update, error)
}

// CreateRequest carries the blockchain creation inputs as parsed from the API.
type CreateRequest struct {
	ConsortiumID   string   `json:"consortium_id"`
	FCount         int      `json:"f_count"`
	CCount         int      `json:"c_count"`
	DeploymentType string   `json:"deployment_type"`
	ZoneIDs        []string `json:"zone_ids"`
	BlockchainType string   `json:"blockchain_type"`
}

// Service starts blockchain deployments and hands their streams to a
// Coordinator.
type Service struct {
	tracker     *tasks.Tracker
	provisioner Provisioner
	coordinator *Coordinator
	sites       placement.SiteValidator

	wg sync.WaitGroup
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSiteValidator checks FIXED placements against the orchestrator's sites.
func WithSiteValidator(v placement.SiteValidator) ServiceOption {
	return func(s *Service) {
		s.sites = v
	}
}

// NewService creates a Service.
func NewService(tracker *tasks.Tracker, provisioner Provisioner, coordinator *Coordinator, opts ...ServiceOption) *Service {
	s := &Service{tracker: tracker, provisioner: provisioner, coordinator: coordinator}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prepare validates req and resolves its placement and model. It has no
// side effects.
func (s *Service) Prepare(ctx context.Context, req CreateRequest) (*placement.Specification, ModelSpec, error) {
	if strings.TrimSpace(req.ConsortiumID) == "" {
		return nil, ModelSpec{}, errdefs.Validationf("consortium_id is required")
	}

	deploymentType := placement.Unspecified
	if req.DeploymentType != "" {
		t, err := placement.ParseDeploymentType(req.DeploymentType)
		if err != nil {
			return nil, ModelSpec{}, err
		}
		deploymentType = t
	}

	blockchainType := ledger.Ethereum
	if req.BlockchainType != "" {
		t, err := ledger.ParseBlockchainType(req.BlockchainType)
		if err != nil {
			return nil, ModelSpec{}, err
		}
		blockchainType = t
	}

	spec, err := placement.Plan(placement.Request{
		FCount:         req.FCount,
		CCount:         req.CCount,
		DeploymentType: deploymentType,
		ZoneIDs:        req.ZoneIDs,
	})
	if err != nil {
		return nil, ModelSpec{}, err
	}
	if err := placement.ValidateSites(ctx, s.sites, spec); err != nil {
		return nil, ModelSpec{}, err
	}

	components, err := placement.ComponentsForLedgerType(blockchainType)
	if err != nil {
		return nil, ModelSpec{}, errdefs.Validationf("%v", err)
	}
	return spec, ModelSpec{BlockchainType: blockchainType, Components: components}, nil
}

// CreateBlockchain validates req, creates a RUNNING task, starts the
// deployment and subscribes the coordinator to it. Validation failures are
// returned before any task exists or any deployment is started.
func (s *Service) CreateBlockchain(ctx context.Context, op OperationContext, req CreateRequest) (*tasks.Task, error) {
	logger := log.FromContext(ctx).WithValues("consortium", req.ConsortiumID, "operation", op.OperationID)
	ctx = log.IntoContext(ctx, logger)

	spec, model, err := s.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	logger.Info("creating blockchain", "placement", spec.String(), "type", model.BlockchainType)

	task, err := s.tracker.Create(ctx)
	if err != nil {
		return nil, err
	}

	// The stream outlives the caller's request; it is stopped once the
	// coordinator is done with it.
	streamCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	updates, err := s.provisioner.CreateCluster(streamCtx, spec, model)
	if err != nil {
		stop()
		if _, mergeErr := s.tracker.Merge(ctx, task.ID, tasks.Fail(err.Error())); mergeErr != nil {
			logger.Error(mergeErr, "failed to record provisioning failure", "task", task.ID)
		}
		return nil, fmt.Errorf("failed to start deployment: %w", err)
	}

	done := s.coordinator.Subscribe(streamCtx, Subscription{
		TaskID:       task.ID,
		ConsortiumID: req.ConsortiumID,
		Operation:    op,
	}, updates)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer stop()
		if err := <-done; err != nil {
			logger.V(1).Info("deployment coordination ended with error", "task", task.ID, "error", err.Error())
		}
	}()

	logger.Info("deployment scheduled", "task", task.ID)
	return task, nil
}

// Wait blocks until every subscribed deployment has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}
