package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hairizuan-noorazman/perplexiplay/agent"
	"github.com/hairizuan-noorazman/perplexiplay/experiment"
	"github.com/hairizuan-noorazman/perplexiplay/logger"
)

// Experiment screen messages.
const (
	MsgExperimentStarted     = "Experiment started"
	MsgExperimentStartFailed = "Failed to start experiment"
	MsgExperimentNotFound    = "Experiment not found"
)

// ExperimentHandler handles the experiment screens.
type ExperimentHandler struct {
	page
	experiments experiment.Store
	agents      agent.Store
}

// NewExperimentHandler creates a new experiment handler.
func NewExperimentHandler(experiments experiment.Store, agents agent.Store, renderer *Renderer, cookies *Cookies, log logger.Logger) *ExperimentHandler {
	return &ExperimentHandler{
		page:        page{renderer: renderer, cookies: cookies, logger: log},
		experiments: experiments,
		agents:      agents,
	}
}

// ExperimentFormPage is the data of the new-experiment template.
type ExperimentFormPage struct {
	Form   *experiment.Form
	Agents []*agent.AgentConfig
	Errors map[string]string
	Back   string
}

// ExperimentDetailPage is the data of the experiment detail template.
type ExperimentDetailPage struct {
	Experiment *experiment.Experiment
	Agent      *agent.AgentConfig
	Output     string
	Error      string
}

// formPage lists the agents for the selector. A failed list leaves the
// selector empty and reports the failure as a flash.
func (h *ExperimentHandler) formPage(r *http.Request, form *experiment.Form) (ExperimentFormPage, []Flash) {
	data := ExperimentFormPage{Form: form, Back: backURL(r, "/dashboard")}

	agents, err := h.agents.List(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "failed to list agents", map[string]interface{}{
			"error": err.Error(),
		})
		return data, []Flash{errorFlash(MsgLoadFailed)}
	}
	data.Agents = agents
	return data, nil
}

// New renders the run form; ?agent= preselects the agent.
func (h *ExperimentHandler) New(w http.ResponseWriter, r *http.Request) {
	form := experiment.NewForm(r.URL.Query().Get("agent"), "")
	data, flashes := h.formPage(r, form)
	h.render(w, r, http.StatusOK, "experiments/new.html", "Run Experiment", data, flashes...)
}

// Create starts a run.
func (h *ExperimentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Invalid form data")
		return
	}

	form := experiment.NewForm(
		r.PostFormValue(experiment.FieldAgentID),
		r.PostFormValue(experiment.FieldInputJSON),
	)

	created, err := form.Submit(r.Context(), h.experiments)
	if err != nil {
		data, flashes := h.formPage(r, form)
		var verr *experiment.ValidationError
		if errors.As(err, &verr) {
			data.Errors = verr.Fields
			flashes = append(flashes, errorFlash(verr.Error()))
			h.render(w, r, http.StatusUnprocessableEntity, "experiments/new.html", "Run Experiment", data, flashes...)
			return
		}

		h.logger.Error(r.Context(), "failed to create experiment", map[string]interface{}{
			"agent_id": form.AgentID,
			"error":    err.Error(),
		})
		flashes = append(flashes, errorFlash(backendMessage(err, MsgExperimentStartFailed)))
		h.render(w, r, http.StatusBadGateway, "experiments/new.html", "Run Experiment", data, flashes...)
		return
	}

	h.logger.Info(r.Context(), "experiment started", map[string]interface{}{
		"experiment_id": created.ID,
		"agent_id":      created.AgentID,
	})
	h.redirect(w, r, fmt.Sprintf("/experiments/%d", created.ID), successFlash(MsgExperimentStarted))
}

// Detail renders a run with its status, input and output.
func (h *ExperimentHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		h.renderError(w, r, http.StatusNotFound, MsgExperimentNotFound)
		return
	}

	e, err := h.experiments.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, experiment.ErrExperimentNotFound) {
			h.renderError(w, r, http.StatusNotFound, MsgExperimentNotFound)
			return
		}
		h.logger.Error(r.Context(), "failed to get experiment", map[string]interface{}{
			"experiment_id": id,
			"error":         err.Error(),
		})
		h.renderError(w, r, http.StatusBadGateway, backendMessage(err, MsgLoadFailed))
		return
	}

	data := ExperimentDetailPage{
		Experiment: e,
		Output:     e.Output(),
		Error:      e.ResultError(),
	}
	// The agent name is decoration; the page renders without it.
	if a, err := h.agents.Get(r.Context(), e.AgentID); err == nil {
		data.Agent = a
	}

	h.render(w, r, http.StatusOK, "experiments/detail.html", fmt.Sprintf("Experiment #%d", e.ID), data)
}
