// Package agent holds agent configurations: the record type, the supported
// frameworks with their example configurations, the creation/edit form and the
// backend-backed store.
package agent

import (
	"errors"

	"github.com/hairizuan-noorazman/perplexiplay/apiclient"
)

var (
	// ErrAgentNotFound is returned when the backend has no such agent.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrInvalidName is returned when an agent name is empty.
	ErrInvalidName = errors.New("agent name is required")

	// ErrInvalidFramework is returned when a framework is not supported.
	ErrInvalidFramework = errors.New("invalid framework")

	// ErrInvalidConfig is returned when an agent configuration is missing.
	ErrInvalidConfig = errors.New("configuration is required")
)

// Framework selects the execution backend an agent configuration targets.
type Framework string

const (
	FrameworkCrewAI    Framework = "crewai"
	FrameworkLangchain Framework = "langchain"
	FrameworkOpenAI    Framework = "openai"
)

// Frameworks lists the supported frameworks in display order.
var Frameworks = []Framework{FrameworkCrewAI, FrameworkLangchain, FrameworkOpenAI}

// IsValid checks if the framework is supported.
func (f Framework) IsValid() bool {
	switch f {
	case FrameworkCrewAI, FrameworkLangchain, FrameworkOpenAI:
		return true
	default:
		return false
	}
}

// Label returns the human-readable framework name.
func (f Framework) Label() string {
	switch f {
	case FrameworkCrewAI:
		return "CrewAI"
	case FrameworkLangchain:
		return "Langchain"
	case FrameworkOpenAI:
		return "OpenAI"
	default:
		return string(f)
	}
}

// AgentConfig is an agent as stored by the backend.
type AgentConfig struct {
	ID        int64                  `json:"id"`
	Name      string                 `json:"name"`
	Framework Framework              `json:"framework"`
	Config    map[string]interface{} `json:"config"`
	UserID    int64                  `json:"user_id"`
	CreatedAt *apiclient.Time        `json:"created_at,omitempty"`
	UpdatedAt *apiclient.Time        `json:"updated_at,omitempty"`
}
