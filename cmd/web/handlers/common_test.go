package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hairizuan-noorazman/perplexiplay/agent"
	"github.com/hairizuan-noorazman/perplexiplay/apiclient"
	"github.com/hairizuan-noorazman/perplexiplay/auth"
	"github.com/hairizuan-noorazman/perplexiplay/experiment"
	"github.com/hairizuan-noorazman/perplexiplay/logger"
	"github.com/hairizuan-noorazman/perplexiplay/session"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const testHashKey = "0123456789abcdef0123456789abcdef"

// fakeAgents is an in-memory agent.Store recording every call.
type fakeAgents struct {
	mu        sync.Mutex
	agents    []*agent.AgentConfig
	listErr   error
	createErr error
	updateErr error
	deleteErr error
	listCalls int
	lastToken string
	created   []agent.CreateRequest
	updated   []agent.UpdateRequest
	deleted   []int64
}

func (f *fakeAgents) List(ctx context.Context) ([]*agent.AgentConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.lastToken = apiclient.Token(ctx)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.agents, nil
}

func (f *fakeAgents) Get(ctx context.Context, id int64) (*agent.AgentConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.agents {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, agent.ErrAgentNotFound
}

func (f *fakeAgents) Create(ctx context.Context, req agent.CreateRequest) (*agent.AgentConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	a := &agent.AgentConfig{ID: int64(len(f.agents) + 1), Name: req.Name, Framework: req.Framework, Config: req.Config}
	f.agents = append(f.agents, a)
	return a, nil
}

func (f *fakeAgents) Update(ctx context.Context, id int64, setters ...agent.UpdateSetter) (*agent.AgentConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var req agent.UpdateRequest
	for _, set := range setters {
		if err := set(&req); err != nil {
			return nil, err
		}
	}
	f.updated = append(f.updated, req)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for _, a := range f.agents {
		if a.ID == id {
			if req.Name != nil {
				a.Name = *req.Name
			}
			if req.Framework != nil {
				a.Framework = *req.Framework
			}
			if req.Config != nil {
				a.Config = req.Config
			}
			return a, nil
		}
	}
	return nil, agent.ErrAgentNotFound
}

func (f *fakeAgents) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, a := range f.agents {
		if a.ID == id {
			f.agents = append(f.agents[:i], f.agents[i+1:]...)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return agent.ErrAgentNotFound
}

// fakeExperiments is an in-memory experiment.Store recording every call.
type fakeExperiments struct {
	mu          sync.Mutex
	experiments []*experiment.Experiment
	listErr     error
	createErr   error
	listCalls   int
	created     []experiment.CreateRequest
}

func (f *fakeExperiments) List(ctx context.Context) ([]*experiment.Experiment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.experiments, nil
}

func (f *fakeExperiments) Get(ctx context.Context, id int64) (*experiment.Experiment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.experiments {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, experiment.ErrExperimentNotFound
}

func (f *fakeExperiments) Create(ctx context.Context, req experiment.CreateRequest) (*experiment.Experiment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	e := &experiment.Experiment{ID: int64(100 + len(f.created)), AgentID: req.AgentID, Status: experiment.StatusPending, InputData: req.InputData}
	f.experiments = append(f.experiments, e)
	return e, nil
}

// failingDeleteStore is a session store whose Delete always fails.
type failingDeleteStore struct {
	*session.MemoryStore
}

func (s failingDeleteStore) Delete(ctx context.Context, id uuid.UUID) error {
	return errors.New("store unavailable")
}

type testEnv struct {
	router      *mux.Router
	agents      *fakeAgents
	experiments *fakeExperiments
	sessions    *session.Manager
	cookies     *Cookies
	log         *logger.TestLogger
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithStore(t, session.NewMemoryStore())
}

// newTestEnvWithStore builds the full router against fake stores and a fake
// backend serving the auth endpoints.
func newTestEnvWithStore(t *testing.T, store session.Store) *testEnv {
	t.Helper()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/login":
			var creds map[string]string
			if err := json.NewDecoder(r.Body).Decode(&creds); err == nil && creds["password"] == "secret" {
				w.Write([]byte(`{"access_token": "tok", "refresh_token": "ref", "token_type": "bearer",
					"user": {"id": 1, "username": "tester", "email": "test@example.com"}}`))
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "Incorrect email or password"}`))
		case "/auth/register":
			var reg map[string]string
			if err := json.NewDecoder(r.Body).Decode(&reg); err == nil && reg["email"] == "taken@example.com" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"detail": "Email already registered"}`))
				return
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"access_token": "tok", "refresh_token": "ref", "token_type": "bearer",
				"user": {"id": 2, "username": "` + reg["username"] + `", "email": "` + reg["email"] + `"}}`))
		case "/auth/refresh":
			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body["refresh_token"] == "ref" {
				w.Write([]byte(`{"access_token": "renewed"}`))
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "Invalid token"}`))
		case "/auth/logout":
			w.Write([]byte(`{"message": "Successfully logged out"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail": "Not Found"}`))
		}
	}))
	t.Cleanup(backend.Close)

	log := logger.NewTestLogger()
	client := apiclient.New(apiclient.Config{BaseURL: backend.URL, Timeout: 5 * time.Second}, log)
	sessions := session.NewManager(store, time.Hour, log)

	renderer, err := NewRenderer(RenderConfig{Title: "PerplexiPlay", DateFormat: "2006-01-02", Location: time.UTC})
	require.NoError(t, err)

	cookies := NewCookies(CookieConfig{
		SessionName: "session",
		FlashName:   "flash",
		HashKey:     []byte(testHashKey),
	})

	env := &testEnv{
		agents:      &fakeAgents{},
		experiments: &fakeExperiments{},
		sessions:    sessions,
		cookies:     cookies,
		log:         log,
	}
	env.router = NewRouter(Deps{
		Auth:          auth.NewService(client, sessions, log),
		Sessions:      sessions,
		Agents:        env.agents,
		Experiments:   env.experiments,
		Renderer:      renderer,
		Cookies:       cookies,
		Logger:        log,
		Version:       "test",
		CSRFKey:       []byte(testHashKey),
		RefreshWindow: time.Minute,
	})
	return env
}

// login opens a session directly and returns its cookie.
func (e *testEnv) login(t *testing.T) (*session.Session, *http.Cookie) {
	t.Helper()
	return e.loginWithTokens(t, session.Tokens{AccessToken: "tok"})
}

func (e *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

// loginWithTokens opens a session holding the given tokens and returns its cookie.
func (e *testEnv) loginWithTokens(t *testing.T, tokens session.Tokens) (*session.Session, *http.Cookie) {
	t.Helper()
	sess, err := e.sessions.Create(context.Background(),
		session.User{ID: 1, Username: "tester", Email: "test@example.com"}, tokens)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, e.cookies.SetSession(rec, sess))
	return sess, rec.Result().Cookies()[0]
}

// csrfPair renders the public login page and returns the CSRF cookie it set
// together with the matching form token.
func (e *testEnv) csrfPair() (*http.Cookie, string) {
	rec := e.get("/login")
	doc, err := html.Parse(strings.NewReader(rec.Body.String()))
	if err != nil {
		return nil, ""
	}
	var token string
	for _, n := range findAll(doc, func(n *html.Node) bool {
		return n.Data == "input" && attr(n, "name") == csrfFieldName
	}) {
		token = attr(n, "value")
	}
	return responseCookie(rec, csrfCookieName), token
}

// post submits a form the way a browser would after loading the page,
// with a valid CSRF cookie and token.
func (e *testEnv) post(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	csrfCookie, token := e.csrfPair()
	withToken := url.Values{}
	for k, v := range form {
		withToken[k] = v
	}
	withToken.Set(csrfFieldName, token)
	if csrfCookie != nil {
		cookies = append(cookies, csrfCookie)
	}
	return e.postRaw(path, withToken, cookies...)
}

// postRaw submits a form as is.
func (e *testEnv) postRaw(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req, cookies...)
}

func newGetWithReferer(path, referer string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Referer", referer)
	return req
}

func (e *testEnv) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// responseCookie returns the named cookie set by the response.
func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// DOM helpers

func parseHTML(t *testing.T, rec *httptest.ResponseRecorder) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	return doc
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func byID(doc *html.Node, id string) *html.Node {
	nodes := findAll(doc, func(n *html.Node) bool { return attr(n, "id") == id })
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func byClass(doc *html.Node, class string) []*html.Node {
	return findAll(doc, func(n *html.Node) bool { return hasClass(n, class) })
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

// rawText returns the untrimmed text content, for textareas.
func rawText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

func hasAncestor(n *html.Node, tag string) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == tag {
			return true
		}
	}
	return false
}

func toasts(doc *html.Node) []string {
	var out []string
	for _, n := range byClass(doc, "toast") {
		out = append(out, textOf(n))
	}
	return out
}

func fieldErrorText(doc *html.Node, field string) string {
	for _, n := range byClass(doc, "field-error") {
		if attr(n, "data-field") == field {
			return textOf(n)
		}
	}
	return ""
}
