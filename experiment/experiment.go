// Package experiment holds experiment runs: the record type, status
// categories used for display, the run form and the backend-backed store.
package experiment

import (
	"errors"

	"github.com/hairizuan-noorazman/perplexiplay/apiclient"
)

var (
	// ErrExperimentNotFound is returned when the backend has no such experiment.
	ErrExperimentNotFound = errors.New("experiment not found")
)

// Status represents the lifecycle status of an experiment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsValid checks if the status is one the backend defines.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsFinal checks if the status is a final status (can't be changed).
func (s Status) IsFinal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Category is the visual bucket a status is drawn in.
type Category string

const (
	CategoryCompleted Category = "completed"
	CategoryFailed    Category = "failed"
	CategoryRunning   Category = "running"

	// CategoryOther covers pending and any value the web app does not know.
	CategoryOther Category = "other"
)

// Category maps the status to one of exactly four display buckets.
func (s Status) Category() Category {
	switch s {
	case StatusCompleted:
		return CategoryCompleted
	case StatusFailed:
		return CategoryFailed
	case StatusRunning:
		return CategoryRunning
	default:
		return CategoryOther
	}
}

// Class returns the CSS class of the status badge.
func (s Status) Class() string {
	return "status-" + string(s.Category())
}

// Experiment is a run of an agent as stored by the backend.
type Experiment struct {
	ID          int64                  `json:"id"`
	AgentID     int64                  `json:"agent_id"`
	Status      Status                 `json:"status"`
	InputData   map[string]interface{} `json:"input_data,omitempty"`
	Result      map[string]interface{} `json:"result,omitempty"`
	Error       *string                `json:"error,omitempty"`
	StartedAt   *apiclient.Time        `json:"started_at,omitempty"`
	CompletedAt *apiclient.Time        `json:"completed_at,omitempty"`
	CreatedAt   *apiclient.Time        `json:"created_at,omitempty"`
}

// Output returns the textual output of a finished run, if any.
func (e *Experiment) Output() string {
	if e.Result == nil {
		return ""
	}
	out, _ := e.Result["output"].(string)
	return out
}

// ResultError returns the error the framework reported inside the result,
// falling back to the experiment-level error.
func (e *Experiment) ResultError() string {
	if e.Result != nil {
		if msg, ok := e.Result["error"].(string); ok && msg != "" {
			return msg
		}
	}
	if e.Error != nil {
		return *e.Error
	}
	return ""
}
