// Package dashboard assembles the dashboard view from the agent and
// experiment lists.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/hairizuan-noorazman/perplexiplay/agent"
	"github.com/hairizuan-noorazman/perplexiplay/experiment"
	"github.com/hairizuan-noorazman/perplexiplay/logger"
	"golang.org/x/sync/errgroup"
)

// RecentLimit caps the recent-experiments table.
const RecentLimit = 10

// MsgLoadFailed is the single error shown when either list fails.
const MsgLoadFailed = "Failed to load data"

// AgentCard is one agent tile on the dashboard.
type AgentCard struct {
	ID        int64
	Name      string
	Framework string
	DetailURL string
	EditURL   string
	RunURL    string
}

// ExperimentRow is one line of the recent-experiments table.
type ExperimentRow struct {
	ID        int64
	AgentID   int64
	Status    experiment.Status
	Class     string
	CreatedAt time.Time
	ViewURL   string
}

// View is everything the dashboard template renders.
type View struct {
	AgentCount      int
	ExperimentCount int
	Cards           []AgentCard
	Recent          []ExperimentRow
	Error           string
}

// Loader fetches both lists for the dashboard.
type Loader struct {
	agents      agent.Store
	experiments experiment.Store
	logger      logger.Logger
}

// NewLoader creates a new dashboard loader.
func NewLoader(agents agent.Store, experiments experiment.Store, log logger.Logger) *Loader {
	return &Loader{
		agents:      agents,
		experiments: experiments,
		logger:      log,
	}
}

// Load requests both lists concurrently and waits for both to settle.
// The pair succeeds or fails as a whole: when either request fails the view
// is built from empty lists and carries View.Error.
func (l *Loader) Load(ctx context.Context) *View {
	var (
		g                     errgroup.Group
		agents                []*agent.AgentConfig
		experiments           []*experiment.Experiment
		agentsErr, expListErr error
	)

	g.Go(func() error {
		agents, agentsErr = l.agents.List(ctx)
		return agentsErr
	})
	g.Go(func() error {
		experiments, expListErr = l.experiments.List(ctx)
		return expListErr
	})
	_ = g.Wait()

	if agentsErr != nil || expListErr != nil {
		fields := map[string]interface{}{}
		if agentsErr != nil {
			fields["agents_error"] = agentsErr.Error()
		}
		if expListErr != nil {
			fields["experiments_error"] = expListErr.Error()
		}
		l.logger.Error(ctx, "failed to load dashboard data", fields)
		view := Build(nil, nil)
		view.Error = MsgLoadFailed
		return view
	}
	return Build(agents, experiments)
}

// Build derives the view from already-fetched lists.
func Build(agents []*agent.AgentConfig, experiments []*experiment.Experiment) *View {
	view := &View{
		AgentCount:      len(agents),
		ExperimentCount: len(experiments),
		Cards:           make([]AgentCard, 0, len(agents)),
	}

	for _, a := range agents {
		view.Cards = append(view.Cards, NewAgentCard(a))
	}

	recent := experiments
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	view.Recent = make([]ExperimentRow, 0, len(recent))
	for _, e := range recent {
		view.Recent = append(view.Recent, NewExperimentRow(e))
	}

	return view
}

// NewAgentCard builds the card of an agent.
func NewAgentCard(a *agent.AgentConfig) AgentCard {
	return AgentCard{
		ID:        a.ID,
		Name:      a.Name,
		Framework: a.Framework.Label(),
		DetailURL: fmt.Sprintf("/agents/%d", a.ID),
		EditURL:   fmt.Sprintf("/agents/%d/edit", a.ID),
		RunURL:    fmt.Sprintf("/experiments/new?agent=%d", a.ID),
	}
}

// NewExperimentRow builds the table row of an experiment.
func NewExperimentRow(e *experiment.Experiment) ExperimentRow {
	row := ExperimentRow{
		ID:      e.ID,
		AgentID: e.AgentID,
		Status:  e.Status,
		Class:   e.Status.Class(),
		ViewURL: fmt.Sprintf("/experiments/%d", e.ID),
	}
	if e.CreatedAt != nil {
		row.CreatedAt = e.CreatedAt.Time
	}
	return row
}
