package rpc

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"

	"github.com/imamik/chainfleet/internal/auth"
	"github.com/imamik/chainfleet/internal/deployment"
	"github.com/imamik/chainfleet/internal/errdefs"
	"github.com/imamik/chainfleet/internal/tasks"
	"github.com/imamik/chainfleet/internal/util/grpcjson"
)

// GrantResolver resolves the clusters a principal may see.
type GrantResolver interface {
	Resolve(ctx context.Context, principal, consortium string) (auth.Grant, error)
}

// Server adapts deployment.Service, tasks.Tracker and a GrantResolver to
// DeploymentServer.
type Server struct {
	svc     *deployment.Service
	tracker *tasks.Tracker
	grants  GrantResolver
}

var _ DeploymentServer = (*Server)(nil)

// NewServer wraps svc, tracker and grants.
func NewServer(svc *deployment.Service, tracker *tasks.Tracker, grants GrantResolver) *Server {
	return &Server{svc: svc, tracker: tracker, grants: grants}
}

// CreateBlockchain implements DeploymentServer.
func (s *Server) CreateBlockchain(ctx context.Context, in *CreateBlockchainRequest) (*TaskResponse, error) {
	task, err := s.svc.CreateBlockchain(ctx, operationFromMetadata(ctx), in.CreateRequest)
	if err != nil {
		return nil, grpcjson.Status(err)
	}
	return &TaskResponse{Task: task}, nil
}

// GetTask implements DeploymentServer.
func (s *Server) GetTask(ctx context.Context, in *GetTaskRequest) (*TaskResponse, error) {
	id, err := uuid.Parse(in.TaskID)
	if err != nil {
		return nil, grpcjson.Status(errdefs.Validationf("invalid task id %q", in.TaskID))
	}
	task, err := s.tracker.Get(ctx, id)
	if err != nil {
		return nil, grpcjson.Status(err)
	}
	return &TaskResponse{Task: task}, nil
}

// ListTasks implements DeploymentServer.
func (s *Server) ListTasks(ctx context.Context, _ *ListTasksRequest) (*ListTasksResponse, error) {
	list, err := s.tracker.List(ctx)
	if err != nil {
		return nil, grpcjson.Status(err)
	}
	return &ListTasksResponse{Tasks: list}, nil
}

// ListBlockchains implements DeploymentServer. The caller's principal is
// taken from the request metadata.
func (s *Server) ListBlockchains(ctx context.Context, in *ListBlockchainsRequest) (*ListBlockchainsResponse, error) {
	op := operationFromMetadata(ctx)
	grant, err := s.grants.Resolve(ctx, op.Principal, in.ConsortiumID)
	if err != nil {
		return nil, grpcjson.Status(err)
	}
	return &ListBlockchainsResponse{
		ConsortiumID: grant.Consortium,
		ClusterIDs:   grant.Clusters,
		ExpiresAt:    grant.ExpiresAt,
	}, nil
}

// operationFromMetadata reads the caller identity from incoming metadata.
// A missing operation id is generated.
func operationFromMetadata(ctx context.Context) deployment.OperationContext {
	var op deployment.OperationContext
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(MetadataPrincipal); len(v) > 0 {
			op.Principal = v[0]
		}
		if v := md.Get(MetadataOperationID); len(v) > 0 {
			op.OperationID = v[0]
		}
	}
	if op.OperationID == "" {
		op.OperationID = uuid.NewString()
	}
	return op
}
