package agent

import (
	"context"
	"fmt"

	"github.com/hairizuan-noorazman/perplexiplay/apiclient"
	"github.com/hairizuan-noorazman/perplexiplay/logger"
)

// APIStore implements the Store interface over the backend HTTP API.
type APIStore struct {
	client *apiclient.Client
	logger logger.Logger
}

// NewAPIStore creates a new backend-backed agent store.
func NewAPIStore(client *apiclient.Client, log logger.Logger) *APIStore {
	return &APIStore{
		client: client,
		logger: log,
	}
}

// List retrieves the current user's agents.
func (s *APIStore) List(ctx context.Context) ([]*AgentConfig, error) {
	var agents []*AgentConfig
	if err := s.client.Get(ctx, "/agents/", nil, &agents); err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return agents, nil
}

// Get retrieves an agent by ID.
func (s *APIStore) Get(ctx context.Context, id int64) (*AgentConfig, error) {
	var a AgentConfig
	if err := s.client.Get(ctx, fmt.Sprintf("/agents/%d", id), nil, &a); err != nil {
		if apiclient.IsNotFound(err) {
			return nil, ErrAgentNotFound
		}
		return nil, fmt.Errorf("get agent %d: %w", id, err)
	}
	return &a, nil
}

// Create creates a new agent.
func (s *APIStore) Create(ctx context.Context, req CreateRequest) (*AgentConfig, error) {
	var a AgentConfig
	if err := s.client.Post(ctx, "/agents/", req, &a); err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}

	s.logger.Info(ctx, "agent created", map[string]interface{}{
		"agent_id":  a.ID,
		"framework": string(a.Framework),
	})

	return &a, nil
}

// Update applies the given setters and sends the resulting partial update.
func (s *APIStore) Update(ctx context.Context, id int64, setters ...UpdateSetter) (*AgentConfig, error) {
	var req UpdateRequest
	for _, setter := range setters {
		if err := setter(&req); err != nil {
			return nil, err
		}
	}

	var a AgentConfig
	if err := s.client.Put(ctx, fmt.Sprintf("/agents/%d", id), req, &a); err != nil {
		if apiclient.IsNotFound(err) {
			return nil, ErrAgentNotFound
		}
		return nil, fmt.Errorf("update agent %d: %w", id, err)
	}

	s.logger.Info(ctx, "agent updated", map[string]interface{}{
		"agent_id": id,
	})

	return &a, nil
}

// Delete removes an agent.
func (s *APIStore) Delete(ctx context.Context, id int64) error {
	if err := s.client.Delete(ctx, fmt.Sprintf("/agents/%d", id)); err != nil {
		if apiclient.IsNotFound(err) {
			return ErrAgentNotFound
		}
		return fmt.Errorf("delete agent %d: %w", id, err)
	}

	s.logger.Info(ctx, "agent deleted", map[string]interface{}{
		"agent_id": id,
	})

	return nil
}
