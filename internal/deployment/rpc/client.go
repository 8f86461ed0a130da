package rpc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/imamik/chainfleet/internal/deployment"
	"github.com/imamik/chainfleet/internal/tasks"
	"github.com/imamik/chainfleet/internal/util/grpcjson"
)

// Client calls a remote deployment service.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps an existing connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Dial connects to target without transport security.
func Dial(target string, opts ...grpc.DialOption) (*Client, *grpc.ClientConn, error) {
	conn, err := grpcjson.Dial(target, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to deployment service %s: %w", target, err)
	}
	return NewClient(conn), conn, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, grpcjson.FullMethod(ServiceName, method), in, out, grpcjson.CallOption())
}

// withOperation attaches op to the outgoing metadata.
func withOperation(ctx context.Context, op deployment.OperationContext) context.Context {
	var kv []string
	if op.Principal != "" {
		kv = append(kv, MetadataPrincipal, op.Principal)
	}
	if op.OperationID != "" {
		kv = append(kv, MetadataOperationID, op.OperationID)
	}
	if len(kv) == 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, kv...)
}

// CreateBlockchain starts a deployment on behalf of op and returns its task.
func (c *Client) CreateBlockchain(ctx context.Context, op deployment.OperationContext, req deployment.CreateRequest) (*tasks.Task, error) {
	ctx = withOperation(ctx, op)
	out := new(TaskResponse)
	if err := c.invoke(ctx, methodCreate, &CreateBlockchainRequest{CreateRequest: req}, out); err != nil {
		return nil, err
	}
	return out.Task, nil
}

// GetTask fetches one task.
func (c *Client) GetTask(ctx context.Context, id uuid.UUID) (*tasks.Task, error) {
	out := new(TaskResponse)
	if err := c.invoke(ctx, methodGet, &GetTaskRequest{TaskID: id.String()}, out); err != nil {
		return nil, err
	}
	return out.Task, nil
}

// ListTasks fetches every task.
func (c *Client) ListTasks(ctx context.Context) ([]*tasks.Task, error) {
	out := new(ListTasksResponse)
	if err := c.invoke(ctx, methodList, &ListTasksRequest{}, out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// ListBlockchains lists the cluster ids of consortium visible to principal.
func (c *Client) ListBlockchains(ctx context.Context, principal, consortium string) (*ListBlockchainsResponse, error) {
	ctx = withOperation(ctx, deployment.OperationContext{Principal: principal})
	out := new(ListBlockchainsResponse)
	if err := c.invoke(ctx, methodChains, &ListBlockchainsRequest{ConsortiumID: consortium}, out); err != nil {
		return nil, err
	}
	return out, nil
}
