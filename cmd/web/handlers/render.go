package handlers

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/csrf"
	"github.com/hairizuan-noorazman/perplexiplay/agent"
	"github.com/hairizuan-noorazman/perplexiplay/apiclient"
	"github.com/hairizuan-noorazman/perplexiplay/experiment"
	"github.com/hairizuan-noorazman/perplexiplay/session"
)

//go:embed templates
var templatesFS embed.FS

// RenderConfig holds presentation settings.
type RenderConfig struct {
	Title      string
	DateFormat string
	Location   *time.Location
}

// Renderer renders pages into the shared layout.
type Renderer struct {
	base   *template.Template
	pages  fs.FS
	config RenderConfig
}

// PageData contains common data for all pages.
type PageData struct {
	AppTitle    string
	Title       string
	CurrentPath string
	User        *session.User
	Flashes     []Flash
	CSRFField   template.HTML
	Data        interface{}
}

// NewRenderer parses the layout template.
func NewRenderer(cfg RenderConfig) (*Renderer, error) {
	if cfg.DateFormat == "" {
		cfg.DateFormat = "Jan 2, 2006"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	r := &Renderer{pages: templatesFS, config: cfg}
	base, err := template.New("").Funcs(r.funcs()).ParseFS(templatesFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parse base template: %w", err)
	}
	r.base = base
	return r, nil
}

// Render clones the layout, parses the page template into the clone and
// executes it. Page templates each define their own "content" block.
// Nothing is written when execution fails.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, status int, name, title string, data interface{}, flashes []Flash) error {
	page := PageData{
		AppTitle:    r.config.Title,
		Title:       title,
		CurrentPath: req.URL.Path,
		Flashes:     flashes,
		CSRFField:   csrf.TemplateField(req),
		Data:        data,
	}
	if sess, ok := session.FromContext(req.Context()); ok {
		user := sess.User()
		page.User = &user
	}

	tmpl, err := r.base.Clone()
	if err != nil {
		return fmt.Errorf("clone template: %w", err)
	}
	if _, err := tmpl.ParseFS(r.pages, "templates/"+name); err != nil {
		return fmt.Errorf("parse page template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", page); err != nil {
		return fmt.Errorf("execute template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"formatDate":     r.formatDate,
		"formatDateTime": r.formatDateTime,
		"apiTime":        apiTime,
		"json":           jsonIndent,
		"markdown":       experiment.RenderMarkdown,
		"frameworkLabel": func(f agent.Framework) string { return f.Label() },
		"fieldError":     fieldError,
	}
}

func (r *Renderer) formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(r.config.Location).Format(r.config.DateFormat)
}

func (r *Renderer) formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(r.config.Location).Format(r.config.DateFormat + " 15:04:05")
}

func apiTime(t *apiclient.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.Time
}

func jsonIndent(v interface{}) string {
	if v == nil {
		return "{}"
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func fieldError(errs map[string]string, field string) string {
	if errs == nil {
		return ""
	}
	return errs[field]
}
