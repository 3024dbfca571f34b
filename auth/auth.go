// Package auth signs users in against the backend and owns the lifetime of
// the resulting session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hairizuan-noorazman/perplexiplay/apiclient"
	"github.com/hairizuan-noorazman/perplexiplay/logger"
	"github.com/hairizuan-noorazman/perplexiplay/session"
)

var (
	// ErrInvalidCredentials is returned when the backend rejects the login.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrRegistrationRejected is returned when the backend refuses a sign-up.
	ErrRegistrationRejected = errors.New("registration rejected")

	// ErrRefreshRejected is returned when the backend refuses a refresh token.
	ErrRefreshRejected = errors.New("refresh token rejected")
)

// Login form messages.
const (
	MsgEmailRequired    = "Email is required"
	MsgEmailInvalid     = "Enter a valid email address"
	MsgPasswordRequired = "Password is required"
	MsgPasswordTooShort = "Password must be at least 8 characters"
	MsgUsernameRequired = "Username is required"
	MsgUsernameLength   = "Username must be 3 to 50 characters"
	MsgLoggedOut        = "Logged out successfully"
	MsgLogoutFailed     = "Logout failed"
)

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CredentialsError lists the login form problems, keyed by field name.
type CredentialsError struct {
	Fields map[string]string
}

func (e *CredentialsError) Error() string {
	for _, field := range []string{"username", "email", "password"} {
		if msg, ok := e.Fields[field]; ok {
			return msg
		}
	}
	return "invalid form"
}

var validate = validator.New()

// Validate checks the credentials before anything is sent to the backend.
func (c *Credentials) Validate() error {
	c.Email = strings.TrimSpace(c.Email)

	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	return fieldErrors(verrs)
}

// Registration is the sign-up form.
type Registration struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Validate checks the registration before anything is sent to the backend.
func (r *Registration) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)

	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	return fieldErrors(verrs)
}

func fieldErrors(verrs validator.ValidationErrors) *CredentialsError {
	fields := map[string]string{}
	for _, fe := range verrs {
		switch {
		case fe.Field() == "Username" && fe.Tag() == "required":
			fields["username"] = MsgUsernameRequired
		case fe.Field() == "Username":
			fields["username"] = MsgUsernameLength
		case fe.Field() == "Email" && fe.Tag() == "required":
			fields["email"] = MsgEmailRequired
		case fe.Field() == "Email":
			fields["email"] = MsgEmailInvalid
		case fe.Field() == "Password" && fe.Tag() == "min":
			fields["password"] = MsgPasswordTooShort
		case fe.Field() == "Password":
			fields["password"] = MsgPasswordRequired
		}
	}
	return &CredentialsError{Fields: fields}
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	User         session.User `json:"user"`
}

// Message returns the text shown to the user for a failed login.
func Message(err error) string {
	var cerr *CredentialsError
	if errors.As(err, &cerr) {
		return cerr.Error()
	}
	if errors.Is(err, ErrInvalidCredentials) {
		if detail := apiclient.Detail(err); detail != "" {
			return detail
		}
		return "Incorrect email or password"
	}
	return "Login failed"
}

// RegisterMessage returns the text shown to the user for a failed sign-up.
func RegisterMessage(err error) string {
	var cerr *CredentialsError
	if errors.As(err, &cerr) {
		return cerr.Error()
	}
	if errors.Is(err, ErrRegistrationRejected) {
		if detail := apiclient.Detail(err); detail != "" {
			return detail
		}
	}
	return "Registration failed"
}

// Service handles sign-up, login, token refresh and logout.
type Service struct {
	client   *apiclient.Client
	sessions *session.Manager
	logger   logger.Logger
}

// NewService creates a new auth service.
func NewService(client *apiclient.Client, sessions *session.Manager, log logger.Logger) *Service {
	return &Service{
		client:   client,
		sessions: sessions,
		logger:   log,
	}
}

// Login exchanges credentials for backend tokens and opens a session.
func (s *Service) Login(ctx context.Context, creds Credentials) (*session.Session, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := s.client.Post(ctx, "/auth/login", creds, &resp); err != nil {
		if apiclient.IsUnauthorized(err) {
			s.logger.Warn(ctx, "login rejected", map[string]interface{}{
				"email": creds.Email,
			})
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	return s.open(ctx, "login", resp)
}

// Register creates a backend account and opens a session for it.
func (s *Service) Register(ctx context.Context, reg Registration) (*session.Session, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := s.client.Post(ctx, "/auth/register", reg, &resp); err != nil {
		if apiclient.IsStatus(err, http.StatusBadRequest) || apiclient.IsStatus(err, http.StatusUnprocessableEntity) {
			s.logger.Warn(ctx, "registration rejected", map[string]interface{}{
				"email":  reg.Email,
				"detail": apiclient.Detail(err),
			})
			return nil, fmt.Errorf("%w: %w", ErrRegistrationRejected, err)
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.logger.Info(ctx, "user registered", map[string]interface{}{
		"user_id": resp.User.ID,
	})
	return s.open(ctx, "register", resp)
}

func (s *Service) open(ctx context.Context, op string, resp tokenResponse) (*session.Session, error) {
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%s: backend returned no access token", op)
	}
	return s.sessions.Create(ctx, resp.User, session.Tokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

// Refresh exchanges the session's refresh token for a new access token and
// stores it on the session.
func (s *Service) Refresh(ctx context.Context, sess *session.Session) error {
	if sess == nil || sess.RefreshToken == "" {
		return ErrRefreshRejected
	}

	var resp refreshResponse
	err := s.client.Post(ctx, "/auth/refresh", refreshRequest{RefreshToken: sess.RefreshToken}, &resp)
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			return fmt.Errorf("%w: %w", ErrRefreshRejected, err)
		}
		return fmt.Errorf("refresh: %w", err)
	}
	if resp.AccessToken == "" {
		return errors.New("refresh: backend returned no access token")
	}

	return s.sessions.UpdateAccessToken(ctx, sess, resp.AccessToken)
}

// Logout tears down the session. The backend is told first, best effort;
// failing to remove the stored session is what fails the logout.
func (s *Service) Logout(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return session.ErrSessionNotFound
	}

	ctx = apiclient.WithToken(ctx, sess.AccessToken)
	if err := s.client.Post(ctx, "/auth/logout", nil, nil); err != nil {
		s.logger.Warn(ctx, "backend logout failed", map[string]interface{}{
			"user_id": sess.UserID,
			"error":   err.Error(),
		})
	}

	if err := s.sessions.Clear(ctx, sess.ID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
