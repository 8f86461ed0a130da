package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/imamik/chainfleet/internal/util/grpcjson"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "chainfleet.deployment.v1.DeploymentService"

const (
	methodCreate = "CreateBlockchain"
	methodGet    = "GetTask"
	methodList   = "ListTasks"
	methodChains = "ListBlockchains"
)

// Metadata keys carrying the caller's operation context.
const (
	MetadataPrincipal   = "x-chainfleet-principal"
	MetadataOperationID = "x-chainfleet-operation-id"
)

// DeploymentServer is the server-side API.
type DeploymentServer interface {
	CreateBlockchain(context.Context, *CreateBlockchainRequest) (*TaskResponse, error)
	GetTask(context.Context, *GetTaskRequest) (*TaskResponse, error)
	ListTasks(context.Context, *ListTasksRequest) (*ListTasksResponse, error)
	ListBlockchains(context.Context, *ListBlockchainsRequest) (*ListBlockchainsResponse, error)
}

// ServiceDesc describes the service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DeploymentServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: methodCreate,
			Handler: grpcjson.UnaryHandler(ServiceName, methodCreate, func(ctx context.Context, srv DeploymentServer, in *CreateBlockchainRequest) (any, error) {
				return srv.CreateBlockchain(ctx, in)
			}),
		},
		{
			MethodName: methodGet,
			Handler: grpcjson.UnaryHandler(ServiceName, methodGet, func(ctx context.Context, srv DeploymentServer, in *GetTaskRequest) (any, error) {
				return srv.GetTask(ctx, in)
			}),
		},
		{
			MethodName: methodList,
			Handler: grpcjson.UnaryHandler(ServiceName, methodList, func(ctx context.Context, srv DeploymentServer, in *ListTasksRequest) (any, error) {
				return srv.ListTasks(ctx, in)
			}),
		},
		{
			MethodName: methodChains,
			Handler: grpcjson.UnaryHandler(ServiceName, methodChains, func(ctx context.Context, srv DeploymentServer, in *ListBlockchainsRequest) (any, error) {
				return srv.ListBlockchains(ctx, in)
			}),
		},
	},
	Metadata: "chainfleet/deployment/v1/deployment.json",
}

// RegisterDeploymentServer registers srv with s.
func RegisterDeploymentServer(s grpc.ServiceRegistrar, srv DeploymentServer) {
	s.RegisterService(&ServiceDesc, srv)
}
