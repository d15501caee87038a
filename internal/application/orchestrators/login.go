package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"portal/internal/adapters/activities"
	"portal/internal/domain/message"
	"portal/internal/domain/session"
)

// LoginAPI is the part of the activities API Login needs.
type LoginAPI interface {
	Login(ctx context.Context, email, password string) (activities.LoginResult, error)
}

// TokenStore persists the bearer token on the client.
type TokenStore interface {
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// LoginInput carries the login form.
type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	API        LoginAPI
	TokenStore TokenStore
}

// LoginResult carries the new session and the feedback to show.
// On failure Notice is the inline text for the login overlay.
type LoginResult struct {
	Session session.Session
	Notice  message.Message
}

// ExecuteLogin exchanges credentials for a teacher session and persists the token.
// PRE: none; input is validated here
// POST: On success the token is in TokenStore and Session is authenticated.
// On failure Session is anonymous and Notice holds the server detail or a fallback.
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	if err := validate.Struct(input); err != nil {
		return LoginResult{Notice: message.Error(TextLoginInvalidInput)}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	res, err := deps.API.Login(ctx, input.Email, input.Password)
	if err != nil {
		var apiErr *activities.APIError
		if errors.As(err, &apiErr) {
			slog.Info("auth_event", "event", "login_failed", "email", input.Email, "status", apiErr.Status)
			return LoginResult{Notice: message.Error(apiErr.DetailOr(TextLoginFailed))}, err
		}
		slog.Error("login_error", "email", input.Email, "error", err.Error())
		return LoginResult{Notice: message.Error(TextLoginTransport)}, err
	}

	sess, err := session.Authenticated(res.Teacher, res.Token)
	if err != nil {
		slog.Error("login_error", "email", input.Email, "error", err.Error())
		return LoginResult{Notice: message.Error(TextLoginTransport)}, err
	}

	if err := deps.TokenStore.SetItem(ctx, session.TokenKey, res.Token); err != nil {
		// The in-memory session still works; only the restore on next load is lost.
		slog.Warn("token_persist_failed", "error", err.Error())
	}

	slog.Info("auth_event", "event", "login_success", "email", input.Email, "teacher", sess.TeacherName())
	return LoginResult{Session: sess, Notice: message.Success(TextLoginSuccess)}, nil
}
