package rpc

import (
	"context"

	"github.com/go-logr/logr"
	"google.golang.org/grpc"

	"github.com/imamik/chainfleet/internal/configservice"
	"github.com/imamik/chainfleet/internal/util/grpcjson"
)

// Server adapts configservice.Service to ConfigurationServer.
type Server struct {
	svc *configservice.Service
}

var _ ConfigurationServer = (*Server)(nil)

// NewServer wraps svc.
func NewServer(svc *configservice.Service) *Server {
	return &Server{svc: svc}
}

// CreateConfiguration implements ConfigurationServer.
func (s *Server) CreateConfiguration(ctx context.Context, in *CreateConfigurationRequest) (*CreateConfigurationResponse, error) {
	id, err := s.svc.CreateConfiguration(ctx, &in.Request)
	if err != nil {
		return nil, grpcjson.Status(err)
	}
	return &CreateConfigurationResponse{SessionID: id.String()}, nil
}

// GetNodeConfiguration implements ConfigurationServer.
func (s *Server) GetNodeConfiguration(ctx context.Context, in *NodeConfigurationRequest) (*NodeConfigurationResponse, error) {
	id, err := configservice.ParseSessionID(in.SessionID)
	if err != nil {
		return nil, grpcjson.Status(err)
	}
	components, err := s.svc.NodeConfiguration(ctx, id, in.Node)
	if err != nil {
		return nil, grpcjson.Status(err)
	}
	return &NodeConfigurationResponse{Components: components}, nil
}

// DeleteConfiguration implements ConfigurationServer.
func (s *Server) DeleteConfiguration(ctx context.Context, in *DeleteConfigurationRequest) (*DeleteConfigurationResponse, error) {
	id, err := configservice.ParseSessionID(in.SessionID)
	if err != nil {
		return nil, grpcjson.Status(err)
	}
	if err := s.svc.DeleteConfiguration(ctx, id); err != nil {
		return nil, grpcjson.Status(err)
	}
	return &DeleteConfigurationResponse{}, nil
}

// NewGRPCServer builds a logging grpc.Server serving svc.
func NewGRPCServer(logger logr.Logger, svc *configservice.Service, opts ...grpc.ServerOption) *grpc.Server {
	s := grpcjson.NewServer(logger, opts...)
	RegisterConfigurationServer(s, NewServer(svc))
	return s
}
