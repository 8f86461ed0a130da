package rpc

import (
	"github.com/imamik/chainfleet/internal/configservice"
)

// CreateConfigurationRequest asks for a new session.
type CreateConfigurationRequest struct {
	configservice.Request
}

// CreateConfigurationResponse carries the new session id in decimal form.
type CreateConfigurationResponse struct {
	SessionID string `json:"sessionId"`
}

// NodeConfigurationRequest selects one node of a session.
type NodeConfigurationRequest struct {
	SessionID string `json:"sessionId"`
	Node      int    `json:"node"`
}

// NodeConfigurationResponse is one node's bundle.
type NodeConfigurationResponse struct {
	Components []configservice.Component `json:"configurationComponent"`
}

// DeleteConfigurationRequest removes a session.
type DeleteConfigurationRequest struct {
	SessionID string `json:"sessionId"`
}

// DeleteConfigurationResponse acknowledges a delete.
type DeleteConfigurationResponse struct{}
