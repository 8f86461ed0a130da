package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/imamik/chainfleet/internal/configservice"
	"github.com/imamik/chainfleet/internal/util/grpcjson"
)

// Client calls a remote configuration service.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps an existing connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Dial connects to target without transport security. Extra options are
// appended after the defaults.
func Dial(target string, opts ...grpc.DialOption) (*Client, *grpc.ClientConn, error) {
	conn, err := grpcjson.Dial(target, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to configuration service %s: %w", target, err)
	}
	return NewClient(conn), conn, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, fullMethod(method), in, out, grpcjson.CallOption())
}

// CreateConfiguration creates a session and returns its id.
func (c *Client) CreateConfiguration(ctx context.Context, req *configservice.Request) (configservice.SessionID, error) {
	out := new(CreateConfigurationResponse)
	if err := c.invoke(ctx, methodCreate, &CreateConfigurationRequest{Request: *req}, out); err != nil {
		return 0, err
	}
	return configservice.ParseSessionID(out.SessionID)
}

// NodeConfiguration fetches one node's bundle.
func (c *Client) NodeConfiguration(ctx context.Context, id configservice.SessionID, node int) ([]configservice.Component, error) {
	out := new(NodeConfigurationResponse)
	if err := c.invoke(ctx, methodGet, &NodeConfigurationRequest{SessionID: id.String(), Node: node}, out); err != nil {
		return nil, err
	}
	return out.Components, nil
}

// DeleteConfiguration removes a session.
func (c *Client) DeleteConfiguration(ctx context.Context, id configservice.SessionID) error {
	return c.invoke(ctx, methodDelete, &DeleteConfigurationRequest{SessionID: id.String()}, new(DeleteConfigurationResponse))
}
