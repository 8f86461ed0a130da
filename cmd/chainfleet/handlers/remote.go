package handlers

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/imamik/chainfleet/internal/configservice"
	configrpc "github.com/imamik/chainfleet/internal/configservice/rpc"
	"github.com/imamik/chainfleet/internal/deployment"
	deployrpc "github.com/imamik/chainfleet/internal/deployment/rpc"
	"github.com/imamik/chainfleet/internal/errdefs"
	"github.com/imamik/chainfleet/internal/ledger"
	"github.com/imamik/chainfleet/internal/tasks"
)

// Remote locates a running chainfleet server.
type Remote struct {
	Address     string
	DialOptions []grpc.DialOption
}

func (r Remote) configuration() (*configrpc.Client, io.Closer, error) {
	client, conn, err := configrpc.Dial(r.Address, r.DialOptions...)
	if err != nil {
		return nil, nil, err
	}
	return client, conn, nil
}

func (r Remote) deployment() (*deployrpc.Client, io.Closer, error) {
	client, conn, err := deployrpc.Dial(r.Address, r.DialOptions...)
	if err != nil {
		return nil, nil, err
	}
	return client, conn, nil
}

// ConfigurationRequest is the CLI form of a configuration request.
type ConfigurationRequest struct {
	Hosts          []string
	Services       []string
	BlockchainType string
}

func (r ConfigurationRequest) build() (*configservice.Request, error) {
	bt, err := ledger.ParseBlockchainType(r.BlockchainType)
	if err != nil {
		return nil, err
	}
	services := make([]ledger.ServiceType, 0, len(r.Services))
	for _, s := range r.Services {
		services = append(services, ledger.ParseServiceType(s))
	}
	return &configservice.Request{Hosts: r.Hosts, Services: services, BlockchainType: bt}, nil
}

// CreateConfiguration builds a configuration session and prints its id.
func CreateConfiguration(ctx context.Context, w io.Writer, remote Remote, in ConfigurationRequest) error {
	req, err := in.build()
	if err != nil {
		return err
	}
	client, conn, err := remote.configuration()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	id, err := client.CreateConfiguration(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create configuration: %w", err)
	}
	_, err = fmt.Fprintln(w, id)
	return err
}

// GetConfiguration prints one node's component bundle.
func GetConfiguration(ctx context.Context, w io.Writer, remote Remote, sessionID string, node int) error {
	id, err := configservice.ParseSessionID(sessionID)
	if err != nil {
		return err
	}
	client, conn, err := remote.configuration()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	components, err := client.NodeConfiguration(ctx, id, node)
	if err != nil {
		return fmt.Errorf("failed to fetch configuration of node %d: %w", node, err)
	}
	return writeYAML(w, components)
}

// DeleteConfiguration removes a configuration session.
func DeleteConfiguration(ctx context.Context, w io.Writer, remote Remote, sessionID string) error {
	id, err := configservice.ParseSessionID(sessionID)
	if err != nil {
		return err
	}
	client, conn, err := remote.configuration()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if err := client.DeleteConfiguration(ctx, id); err != nil {
		return fmt.Errorf("failed to delete configuration: %w", err)
	}
	_, err = fmt.Fprintf(w, "configuration %s deleted\n", id)
	return err
}

// CreateBlockchain starts a deployment and prints the task tracking it.
func CreateBlockchain(ctx context.Context, w io.Writer, format Format, remote Remote, op deployment.OperationContext, req deployment.CreateRequest) error {
	client, conn, err := remote.deployment()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	task, err := client.CreateBlockchain(ctx, op, req)
	if err != nil {
		return fmt.Errorf("failed to create blockchain: %w", err)
	}
	if !format.styled() {
		return writeYAML(w, task)
	}
	_, err = io.WriteString(w, renderTasks([]*tasks.Task{task}))
	return err
}

// GetTask prints one task.
func GetTask(ctx context.Context, w io.Writer, format Format, remote Remote, taskID string) error {
	id, err := uuid.Parse(taskID)
	if err != nil {
		return errdefs.Validationf("invalid task id %q", taskID)
	}
	client, conn, err := remote.deployment()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	task, err := client.GetTask(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch task %s: %w", id, err)
	}
	if !format.styled() {
		return writeYAML(w, task)
	}
	_, err = io.WriteString(w, renderTasks([]*tasks.Task{task}))
	return err
}

// ListTasks prints every task known to the server.
func ListTasks(ctx context.Context, w io.Writer, format Format, remote Remote) error {
	client, conn, err := remote.deployment()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	list, err := client.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	return writeTasks(w, format, list)
}

// ListBlockchains prints the clusters of consortium visible to principal.
func ListBlockchains(ctx context.Context, w io.Writer, format Format, remote Remote, principal, consortium string) error {
	client, conn, err := remote.deployment()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	out, err := client.ListBlockchains(ctx, principal, consortium)
	if err != nil {
		return fmt.Errorf("failed to list blockchains of %s: %w", consortium, err)
	}
	if !format.styled() {
		return writeYAML(w, out)
	}
	_, err = io.WriteString(w, renderBlockchains(out.ConsortiumID, out.ClusterIDs))
	return err
}
