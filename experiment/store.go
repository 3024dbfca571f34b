package experiment

import "context"

// Store defines the interface for experiment operations against the backend.
type Store interface {
	// List retrieves the current user's experiments in backend order.
	List(ctx context.Context) ([]*Experiment, error)

	// Get retrieves an experiment by ID.
	Get(ctx context.Context, id int64) (*Experiment, error)

	// Create starts a new experiment.
	Create(ctx context.Context, req CreateRequest) (*Experiment, error)
}

// CreateRequest is the body of an experiment creation.
type CreateRequest struct {
	AgentID   int64                  `json:"agent_id"`
	InputData map[string]interface{} `json:"input_data"`
}

// ForAgent returns the experiments of one agent, keeping their order.
func ForAgent(experiments []*Experiment, agentID int64) []*Experiment {
	var out []*Experiment
	for _, e := range experiments {
		if e.AgentID == agentID {
			out = append(out, e)
		}
	}
	return out
}
