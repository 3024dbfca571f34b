package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hairizuan-noorazman/perplexiplay/agent"
	"github.com/hairizuan-noorazman/perplexiplay/dashboard"
	"github.com/hairizuan-noorazman/perplexiplay/experiment"
	"github.com/hairizuan-noorazman/perplexiplay/logger"
)

// Agent screen messages.
const (
	MsgAgentCreated      = "Agent created successfully!"
	MsgAgentCreateFailed = "Failed to create agent"
	MsgAgentUpdated      = "Agent updated successfully!"
	MsgAgentUpdateFailed = "Failed to update agent"
	MsgAgentDeleted      = "Agent deleted"
	MsgAgentDeleteFailed = "Failed to delete agent"
	MsgAgentNotFound     = "Agent not found"
	MsgLoadFailed        = "Failed to load data"

	// actionSelectFramework re-renders the form with the framework's example.
	actionSelectFramework = "select_framework"
)

// AgentHandler handles the agent screens.
type AgentHandler struct {
	page
	agents      agent.Store
	experiments experiment.Store
}

// NewAgentHandler creates a new agent handler.
func NewAgentHandler(agents agent.Store, experiments experiment.Store, renderer *Renderer, cookies *Cookies, log logger.Logger) *AgentHandler {
	return &AgentHandler{
		page:        page{renderer: renderer, cookies: cookies, logger: log},
		agents:      agents,
		experiments: experiments,
	}
}

// AgentFormPage is the data of the agent form template, shared by the
// creation and edit screens.
type AgentFormPage struct {
	Heading     string
	Action      string
	Form        *agent.Form
	Frameworks  []agent.Framework
	Errors      agent.FieldErrors
	Back        string
	SubmitLabel string
	BusyLabel   string
}

// AgentDetailPage is the data of the agent detail template.
type AgentDetailPage struct {
	Agent       *agent.AgentConfig
	Card        dashboard.AgentCard
	Experiments []dashboard.ExperimentRow
}

func (h *AgentHandler) createPage(r *http.Request, form *agent.Form) AgentFormPage {
	return AgentFormPage{
		Heading:     "Create New Agent",
		Action:      "/agents/new",
		Form:        form,
		Frameworks:  agent.Frameworks,
		Back:        backURL(r, "/dashboard"),
		SubmitLabel: "Create Agent",
		BusyLabel:   "Creating...",
	}
}

func (h *AgentHandler) editPage(r *http.Request, id int64, form *agent.Form) AgentFormPage {
	detail := fmt.Sprintf("/agents/%d", id)
	return AgentFormPage{
		Heading:     "Edit Agent",
		Action:      detail + "/edit",
		Form:        form,
		Frameworks:  agent.Frameworks,
		Back:        backURL(r, detail),
		SubmitLabel: "Save Changes",
		BusyLabel:   "Saving...",
	}
}

// hasAction reports whether any posted "action" value equals action.
func hasAction(r *http.Request, action string) bool {
	for _, v := range r.PostForm["action"] {
		if v == action {
			return true
		}
	}
	return false
}

func formFromRequest(r *http.Request) *agent.Form {
	return agent.NewForm(
		r.PostFormValue(agent.FieldName),
		r.PostFormValue(agent.FieldFramework),
		r.PostFormValue(agent.FieldConfigJSON),
	)
}

// New renders an empty creation form. A ?framework= query preselects it.
func (h *AgentHandler) New(w http.ResponseWriter, r *http.Request) {
	form := agent.NewForm("", "", "")
	if fw := agent.Framework(r.URL.Query().Get("framework")); fw.IsValid() {
		form.SelectFramework(fw)
	}
	h.render(w, r, http.StatusOK, "agents/form.html", "Create Agent", h.createPage(r, form))
}

// Create handles the creation form. Invalid input never reaches the backend.
func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Invalid form data")
		return
	}

	form := formFromRequest(r)
	if hasAction(r, actionSelectFramework) {
		form.SelectFramework(form.Framework)
		h.render(w, r, http.StatusOK, "agents/form.html", "Create Agent", h.createPage(r, form))
		return
	}

	created, err := form.Submit(r.Context(), h.agents)
	if err != nil {
		h.renderFormError(w, r, "Create Agent", h.createPage(r, form), err, MsgAgentCreateFailed)
		return
	}

	h.logger.Info(r.Context(), "agent created", map[string]interface{}{
		"agent_id":  created.ID,
		"framework": string(created.Framework),
	})
	h.redirect(w, r, "/dashboard", successFlash(MsgAgentCreated))
}

// renderFormError re-renders the form with the user's input. Local
// validation failures carry per-field messages; backend failures show the
// backend detail, else fallback.
func (h *AgentHandler) renderFormError(w http.ResponseWriter, r *http.Request, title string, data AgentFormPage, err error, fallback string) {
	var verr *agent.ValidationError
	if errors.As(err, &verr) {
		data.Errors = verr.Fields
		var flashes []Flash
		if verr.Message != "" {
			flashes = append(flashes, errorFlash(verr.Message))
		}
		h.render(w, r, http.StatusUnprocessableEntity, "agents/form.html", title, data, flashes...)
		return
	}

	h.logger.Error(r.Context(), "agent request failed", map[string]interface{}{
		"error": err.Error(),
	})
	h.render(w, r, http.StatusBadGateway, "agents/form.html", title, data, errorFlash(backendMessage(err, fallback)))
}

// loadAgent fetches the agent named by the path, rendering the error page
// itself when that fails.
func (h *AgentHandler) loadAgent(w http.ResponseWriter, r *http.Request) (*agent.AgentConfig, bool) {
	id, ok := parseID(r, "id")
	if !ok {
		h.renderError(w, r, http.StatusNotFound, MsgAgentNotFound)
		return nil, false
	}

	a, err := h.agents.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, agent.ErrAgentNotFound) {
			h.renderError(w, r, http.StatusNotFound, MsgAgentNotFound)
			return nil, false
		}
		h.logger.Error(r.Context(), "failed to get agent", map[string]interface{}{
			"agent_id": id,
			"error":    err.Error(),
		})
		h.renderError(w, r, http.StatusBadGateway, backendMessage(err, MsgLoadFailed))
		return nil, false
	}
	return a, true
}

// Detail renders an agent with its experiments.
func (h *AgentHandler) Detail(w http.ResponseWriter, r *http.Request) {
	a, ok := h.loadAgent(w, r)
	if !ok {
		return
	}

	data := AgentDetailPage{Agent: a, Card: dashboard.NewAgentCard(a)}

	var flashes []Flash
	all, err := h.experiments.List(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "failed to list experiments", map[string]interface{}{
			"agent_id": a.ID,
			"error":    err.Error(),
		})
		flashes = append(flashes, errorFlash(MsgLoadFailed))
	}
	for _, e := range experiment.ForAgent(all, a.ID) {
		data.Experiments = append(data.Experiments, dashboard.NewExperimentRow(e))
	}

	h.render(w, r, http.StatusOK, "agents/detail.html", a.Name, data, flashes...)
}

// Edit renders the edit form prefilled with the agent.
func (h *AgentHandler) Edit(w http.ResponseWriter, r *http.Request) {
	a, ok := h.loadAgent(w, r)
	if !ok {
		return
	}

	form, err := agent.FormFromAgent(a)
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, MsgLoadFailed)
		return
	}
	h.render(w, r, http.StatusOK, "agents/form.html", "Edit Agent", h.editPage(r, a.ID, form))
}

// Update handles the edit form.
func (h *AgentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		h.renderError(w, r, http.StatusNotFound, MsgAgentNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Invalid form data")
		return
	}

	form := formFromRequest(r)
	if hasAction(r, actionSelectFramework) {
		form.SelectFramework(form.Framework)
		h.render(w, r, http.StatusOK, "agents/form.html", "Edit Agent", h.editPage(r, id, form))
		return
	}

	updated, err := form.SubmitUpdate(r.Context(), h.agents, id)
	if err != nil {
		if errors.Is(err, agent.ErrAgentNotFound) {
			h.renderError(w, r, http.StatusNotFound, MsgAgentNotFound)
			return
		}
		h.renderFormError(w, r, "Edit Agent", h.editPage(r, id, form), err, MsgAgentUpdateFailed)
		return
	}

	h.logger.Info(r.Context(), "agent updated", map[string]interface{}{
		"agent_id": updated.ID,
	})
	h.redirect(w, r, fmt.Sprintf("/agents/%d", updated.ID), successFlash(MsgAgentUpdated))
}

// Delete removes the agent and returns to the dashboard. A backend failure
// keeps the user on the agent's page.
func (h *AgentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		h.renderError(w, r, http.StatusNotFound, MsgAgentNotFound)
		return
	}

	if err := h.agents.Delete(r.Context(), id); err != nil {
		if errors.Is(err, agent.ErrAgentNotFound) {
			h.renderError(w, r, http.StatusNotFound, MsgAgentNotFound)
			return
		}
		h.logger.Error(r.Context(), "failed to delete agent", map[string]interface{}{
			"agent_id": id,
			"error":    err.Error(),
		})
		flash := errorFlash(backendMessage(err, MsgAgentDeleteFailed))
		h.redirect(w, r, fmt.Sprintf("/agents/%d", id), &flash)
		return
	}

	h.logger.Info(r.Context(), "agent deleted", map[string]interface{}{
		"agent_id": id,
	})
	h.redirect(w, r, "/dashboard", successFlash(MsgAgentDeleted))
}
