package rpc

import (
	"time"

	"github.com/imamik/chainfleet/internal/deployment"
	"github.com/imamik/chainfleet/internal/tasks"
)

// CreateBlockchainRequest asks for a new blockchain deployment.
type CreateBlockchainRequest struct {
	deployment.CreateRequest
}

// TaskResponse carries a single task.
type TaskResponse struct {
	Task *tasks.Task `json:"task"`
}

// GetTaskRequest selects a task by id.
type GetTaskRequest struct {
	TaskID string `json:"taskId"`
}

// ListTasksRequest is empty.
type ListTasksRequest struct{}

// ListTasksResponse carries every known task.
type ListTasksResponse struct {
	Tasks []*tasks.Task `json:"tasks"`
}

// ListBlockchainsRequest selects the consortium whose clusters to list.
type ListBlockchainsRequest struct {
	ConsortiumID string `json:"consortiumId"`
}

// ListBlockchainsResponse carries the cluster ids visible to the caller.
type ListBlockchainsResponse struct {
	ConsortiumID string    `json:"consortiumId"`
	ClusterIDs   []string  `json:"clusterIds"`
	ExpiresAt    time.Time `json:"expiresAt,omitzero"`
}
