package experiment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// DefaultInput prefills the input of a new run.
	DefaultInput = `{
  "prompt": ""
}`

	// MsgInvalidInput is shown when the input text is not a JSON object.
	MsgInvalidInput = "Invalid JSON input"

	// MsgAgentRequired is shown when no agent is selected.
	MsgAgentRequired = "Agent is required"
)

// Form field names.
const (
	FieldAgentID   = "agent_id"
	FieldInputJSON = "input_json"
)

var validate = validator.New()

// ValidationError blocks a run before any request is made.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if msg, ok := e.Fields[FieldAgentID]; ok {
		return msg
	}
	return e.Fields[FieldInputJSON]
}

// Form is the state of the new-experiment screen.
type Form struct {
	AgentID   int64  `validate:"gt=0"`
	InputJSON string `validate:"required"`
}

// NewForm builds a form from submitted values. An unparsable agent ID leaves
// the selection empty.
func NewForm(agentID, inputJSON string) *Form {
	id, _ := strconv.ParseInt(strings.TrimSpace(agentID), 10, 64)
	if inputJSON == "" {
		inputJSON = DefaultInput
	}
	return &Form{
		AgentID:   id,
		InputJSON: strings.ReplaceAll(inputJSON, "\r\n", "\n"),
	}
}

// CreateRequest validates the form and builds the creation request.
func (f *Form) CreateRequest() (CreateRequest, error) {
	fields := map[string]string{}
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return CreateRequest{}, err
		}
		for _, fe := range verrs {
			switch fe.Field() {
			case "AgentID":
				fields[FieldAgentID] = MsgAgentRequired
			case "InputJSON":
				fields[FieldInputJSON] = MsgInvalidInput
			}
		}
	}

	input, err := parseObject(f.InputJSON)
	if err != nil {
		fields[FieldInputJSON] = MsgInvalidInput
	}

	if len(fields) > 0 {
		return CreateRequest{}, &ValidationError{Fields: fields}
	}
	return CreateRequest{AgentID: f.AgentID, InputData: input}, nil
}

// Submit validates the form and starts the run.
func (f *Form) Submit(ctx context.Context, store Store) (*Experiment, error) {
	req, err := f.CreateRequest()
	if err != nil {
		return nil, err
	}
	return store.Create(ctx, req)
}

func parseObject(text string) (map[string]interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var value map[string]interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON object")
	}
	if value == nil {
		return nil, errors.New("input must be a JSON object")
	}
	return value, nil
}

// IsValidationError reports whether err blocked a run locally.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// FieldErrorsOf returns the per-field messages carried by err, if any.
func FieldErrorsOf(err error) map[string]string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}
