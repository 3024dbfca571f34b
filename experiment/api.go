package experiment

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

// NewAPIStore creates a new backend-backed experiment store.
func NewAPIStore(client *apiclient.Client, log logger.Logger) *APIStore {
	return &APIStore{
		client: client,
		logger: log,
	}
}

// List retrieves the current user's experiments.
func (s *APIStore) List(ctx context.Context) ([]*Experiment, error) {
	var experiments []*Experiment
	if err := s.client.Get(ctx, "/experiments/", nil, &experiments); err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	s.warnUnknownStatus(ctx, experiments...)
	return experiments, nil
}

// Get retrieves an experiment by ID.
func (s *APIStore) Get(ctx context.Context, id int64) (*Experiment, error) {
	var e Experiment
	if err := s.client.Get(ctx, fmt.Sprintf("/experiments/%d", id), nil, &e); err != nil {
		if apiclient.IsNotFound(err) {
			return nil, ErrExperimentNotFound
		}
		return nil, fmt.Errorf("get experiment %d: %w", id, err)
	}
	s.warnUnknownStatus(ctx, &e)
	return &e, nil
}

// Create starts a new experiment.
func (s *APIStore) Create(ctx context.Context, req CreateRequest) (*Experiment, error) {
	var e Experiment
	if err := s.client.Post(ctx, "/experiments/", req, &e); err != nil {
		return nil, fmt.Errorf("create experiment: %w", err)
	}

	s.logger.Info(ctx, "experiment created", map[string]interface{}{
		"experiment_id": e.ID,
		"agent_id":      e.AgentID,
	})

	return &e, nil
}

// warnUnknownStatus logs statuses outside the backend's known set. Such
// experiments are still shown, in the "other" category.
func (s *APIStore) warnUnknownStatus(ctx context.Context, experiments ...*Experiment) {
	for _, e := range experiments {
		if e == nil || e.Status.IsValid() {
			continue
		}
		s.logger.Warn(ctx, "unknown experiment status", map[string]interface{}{
			"experiment_id": e.ID,
			"status":        string(e.Status),
		})
	}
}
