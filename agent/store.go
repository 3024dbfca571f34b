package agent

import "context"

// Store defines the interface for agent operations against the backend.
type Store interface {
	// List retrieves the current user's agents in backend order.
	List(ctx context.Context) ([]*AgentConfig, error)

	// Get retrieves an agent by ID.
	Get(ctx context.Context, id int64) (*AgentConfig, error)

	// Create creates a new agent.
	Create(ctx context.Context, req CreateRequest) (*AgentConfig, error)

	// Update applies the given setters to an agent.
	Update(ctx context.Context, id int64, setters ...UpdateSetter) (*AgentConfig, error)

	// Delete removes an agent.
	Delete(ctx context.Context, id int64) error
}

// CreateRequest is the body of an agent creation.
type CreateRequest struct {
	Name      string                 `json:"name"`
	Framework Framework              `json:"framework"`
	Config    map[string]interface{} `json:"config"`
}

// UpdateRequest is the body of a partial agent update. Nil fields are left unchanged.
type UpdateRequest struct {
	Name      *string                `json:"name,omitempty"`
	Framework *Framework             `json:"framework,omitempty"`
	Config    map[string]interface{} `json:"config,omitempty"`
}

// UpdateSetter is a function that sets one field of an update.
type UpdateSetter func(*UpdateRequest) error
