package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hairizuan-noorazman/perplexiplay/agent"
	"github.com/hairizuan-noorazman/perplexiplay/auth"
	"github.com/hairizuan-noorazman/perplexiplay/dashboard"
	"github.com/hairizuan-noorazman/perplexiplay/experiment"
	"github.com/hairizuan-noorazman/perplexiplay/logger"
	"github.com/hairizuan-noorazman/perplexiplay/session"
)

// Deps are the collaborators of the web router.
type Deps struct {
	Auth          *auth.Service
	Sessions      *session.Manager
	Agents        agent.Store
	Experiments   experiment.Store
	Renderer      *Renderer
	Cookies       *Cookies
	Logger        logger.Logger
	Version       string
	CSRFKey       []byte
	RefreshWindow time.Duration
}

// NewRouter wires every screen behind the shared middleware.
func NewRouter(d Deps) *mux.Router {
	var refresher TokenRefresher
	if d.Auth != nil {
		refresher = d.Auth
	}
	sessions := NewSessionMiddleware(d.Sessions, refresher, d.RefreshWindow, d.Cookies, d.Logger)
	failures := &page{renderer: d.Renderer, cookies: d.Cookies, logger: d.Logger}
	authHandler := NewAuthHandler(d.Auth, d.Renderer, d.Cookies, d.Logger)
	dashboardHandler := NewDashboardHandler(dashboard.NewLoader(d.Agents, d.Experiments, d.Logger), d.Renderer, d.Cookies, d.Logger)
	agentHandler := NewAgentHandler(d.Agents, d.Experiments, d.Renderer, d.Cookies, d.Logger)
	experimentHandler := NewExperimentHandler(d.Experiments, d.Agents, d.Renderer, d.Cookies, d.Logger)

	router := mux.NewRouter()
	router.Use(
		Recovery(d.Logger),
		RequestLogger(d.Logger),
		csrfProtection(d.CSRFKey, d.Cookies.secure, http.HandlerFunc(failures.csrfFailure)),
		sessions.Load,
	)

	// Public routes
	router.HandleFunc("/health", HealthHandler(d.Version)).Methods(http.MethodGet)
	router.HandleFunc("/login", authHandler.LoginForm).Methods(http.MethodGet)
	router.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	router.HandleFunc("/register", authHandler.RegisterForm).Methods(http.MethodGet)
	router.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)

	// Protected routes
	protected := router.NewRoute().Subrouter()
	protected.Use(sessions.Require)

	protected.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}).Methods(http.MethodGet)
	protected.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/dashboard", dashboardHandler.Show).Methods(http.MethodGet)

	protected.HandleFunc("/agents/new", agentHandler.New).Methods(http.MethodGet)
	protected.HandleFunc("/agents/new", agentHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/agents/{id:[0-9]+}", agentHandler.Detail).Methods(http.MethodGet)
	protected.HandleFunc("/agents/{id:[0-9]+}/edit", agentHandler.Edit).Methods(http.MethodGet)
	protected.HandleFunc("/agents/{id:[0-9]+}/edit", agentHandler.Update).Methods(http.MethodPost)
	protected.HandleFunc("/agents/{id:[0-9]+}/delete", agentHandler.Delete).Methods(http.MethodPost)

	protected.HandleFunc("/experiments/new", experimentHandler.New).Methods(http.MethodGet)
	protected.HandleFunc("/experiments/new", experimentHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/experiments/{id:[0-9]+}", experimentHandler.Detail).Methods(http.MethodGet)

	return router
}
