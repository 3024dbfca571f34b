package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// MsgInvalidJSON is shown when the configuration text is not JSON.
	MsgInvalidJSON = "Invalid JSON configuration"

	// MsgConfigNotObject is shown when the configuration is JSON but not an object.
	MsgConfigNotObject = "Configuration must be a JSON object"
)

// Form field names, as used in HTML forms and FieldErrors.
const (
	FieldName       = "name"
	FieldFramework  = "framework"
	FieldConfigJSON = "config_json"
)

var fieldMessages = map[string]map[string]string{
	FieldName: {
		"required": "Agent name is required",
		"max":      "Agent name must be at most 200 characters",
	},
	FieldFramework: {
		"required":  "Framework is required",
		"framework": "Invalid framework",
	},
	FieldConfigJSON: {
		"required": "Configuration is required",
	},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
	})
	v.RegisterValidation("framework", func(fl validator.FieldLevel) bool {
		return Framework(fl.Field().String()).IsValid()
	})
	return v
}

// FieldErrors maps a form field name to the message shown next to it.
type FieldErrors map[string]string

// ValidationError blocks a submission before any request is made.
type ValidationError struct {
	Fields FieldErrors

	// Message, when set, is also shown as an error notification.
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, field := range []string{FieldName, FieldFramework, FieldConfigJSON} {
		if msg, ok := e.Fields[field]; ok {
			msgs = append(msgs, msg)
		}
	}
	return strings.Join(msgs, "; ")
}

// Form is the state of the agent creation and edit screens.
type Form struct {
	Name       string    `form:"name" validate:"required,max=200"`
	Framework  Framework `form:"framework" validate:"required,framework"`
	ConfigJSON string    `form:"config_json" validate:"required"`
}

// NewForm builds a form from submitted values.
func NewForm(name, framework, configJSON string) *Form {
	return &Form{
		Name:       name,
		Framework:  Framework(framework),
		ConfigJSON: normalizeNewlines(configJSON),
	}
}

// FormFromAgent prefills a form from an existing agent.
func FormFromAgent(a *AgentConfig) (*Form, error) {
	config, err := json.MarshalIndent(a.Config, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode agent config: %w", err)
	}
	return &Form{
		Name:       a.Name,
		Framework:  a.Framework,
		ConfigJSON: string(config),
	}, nil
}

// SelectFramework records a framework change. The framework's example
// configuration replaces the configuration text only while the user has not
// edited it: the text is blank or still one of the canned examples.
func (f *Form) SelectFramework(framework Framework) {
	f.Framework = framework

	example, ok := ExampleConfig(framework)
	if !ok {
		return
	}
	if f.configUntouched() {
		f.ConfigJSON = example
	}
}

func (f *Form) configUntouched() bool {
	text := normalizeNewlines(f.ConfigJSON)
	return strings.TrimSpace(text) == "" || isExampleConfig(text)
}

// Validate checks the required fields. It does not parse the configuration.
func (f *Form) Validate() error {
	f.Name = strings.TrimSpace(f.Name)

	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		msg, ok := fieldMessages[fe.Field()][fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", fe.Field())
		}
		fields[fe.Field()] = msg
	}
	return &ValidationError{Fields: fields}
}

// Config parses the configuration text. Only a JSON object is accepted.
func (f *Form) Config() (map[string]interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(f.ConfigJSON))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, invalidConfig(MsgInvalidJSON)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, invalidConfig(MsgInvalidJSON)
	}

	config, ok := value.(map[string]interface{})
	if !ok {
		return nil, invalidConfig(MsgConfigNotObject)
	}
	return config, nil
}

func invalidConfig(msg string) *ValidationError {
	return &ValidationError{
		Fields:  FieldErrors{FieldConfigJSON: msg},
		Message: msg,
	}
}

// CreateRequest validates the form and builds the creation request.
// A *ValidationError means nothing may be sent.
func (f *Form) CreateRequest() (CreateRequest, error) {
	if err := f.Validate(); err != nil {
		return CreateRequest{}, err
	}
	config, err := f.Config()
	if err != nil {
		return CreateRequest{}, err
	}
	return CreateRequest{
		Name:      f.Name,
		Framework: f.Framework,
		Config:    config,
	}, nil
}

// Submit validates the form and creates the agent. The store is only called
// when the form is valid.
func (f *Form) Submit(ctx context.Context, store Store) (*AgentConfig, error) {
	req, err := f.CreateRequest()
	if err != nil {
		return nil, err
	}
	return store.Create(ctx, req)
}

// SubmitUpdate validates the form and replaces the agent's fields.
func (f *Form) SubmitUpdate(ctx context.Context, store Store, id int64) (*AgentConfig, error) {
	req, err := f.CreateRequest()
	if err != nil {
		return nil, err
	}
	return store.Update(ctx, id,
		SetName(req.Name),
		SetFramework(req.Framework),
		SetConfig(req.Config),
	)
}

// IsValidationError reports whether err blocked a submission locally.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// FieldErrorsOf returns the per-field messages carried by err, if any.
func FieldErrorsOf(err error) FieldErrors {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}

// normalizeNewlines folds the CRLF line endings browsers submit for textareas.
func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
