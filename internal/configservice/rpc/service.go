package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/imamik/chainfleet/internal/util/grpcjson"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "chainfleet.configuration.v1.ConfigurationService"

const (
	methodCreate = "CreateConfiguration"
	methodGet    = "GetNodeConfiguration"
	methodDelete = "DeleteConfiguration"
)

// ConfigurationServer is the server-side API.
type ConfigurationServer interface {
	CreateConfiguration(context.Context, *CreateConfigurationRequest) (*CreateConfigurationResponse, error)
	GetNodeConfiguration(context.Context, *NodeConfigurationRequest) (*NodeConfigurationResponse, error)
	DeleteConfiguration(context.Context, *DeleteConfigurationRequest) (*DeleteConfigurationResponse, error)
}

// ServiceDesc describes the service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConfigurationServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: methodCreate,
			Handler: grpcjson.UnaryHandler(ServiceName, methodCreate, func(ctx context.Context, srv ConfigurationServer, in *CreateConfigurationRequest) (any, error) {
				return srv.CreateConfiguration(ctx, in)
			}),
		},
		{
			MethodName: methodGet,
			Handler: grpcjson.UnaryHandler(ServiceName, methodGet, func(ctx context.Context, srv ConfigurationServer, in *NodeConfigurationRequest) (any, error) {
				return srv.GetNodeConfiguration(ctx, in)
			}),
		},
		{
			MethodName: methodDelete,
			Handler: grpcjson.UnaryHandler(ServiceName, methodDelete, func(ctx context.Context, srv ConfigurationServer, in *DeleteConfigurationRequest) (any, error) {
				return srv.DeleteConfiguration(ctx, in)
			}),
		},
	},
	Metadata: "chainfleet/configuration/v1/configuration.json",
}

// RegisterConfigurationServer registers srv with s.
func RegisterConfigurationServer(s grpc.ServiceRegistrar, srv ConfigurationServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return grpcjson.FullMethod(ServiceName, method)
}
