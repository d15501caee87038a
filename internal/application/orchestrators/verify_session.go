package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"portal/internal/adapters/activities"
	"portal/internal/adapters/storage/localstore"
	"portal/internal/domain/session"
)

// VerifyAPI is the part of the activities API session verification needs.
type VerifyAPI interface {
	Verify(ctx context.Context, token string) (activities.VerifyResult, error)
}

// VerifySessionInput carries the cached token.
type VerifySessionInput struct {
	Token string
}

// VerifySessionDeps holds dependencies for VerifySession.
type VerifySessionDeps struct {
	API        VerifyAPI
	TokenStore TokenStore
}

// ExecuteVerifySession restores a session from a cached token.
// Any failure (rejected token, missing teacher, unreachable API) discards the
// cached token silently and yields an anonymous session.
// PRE: none
// POST: Returns an authenticated session, or anonymous with the token removed
func ExecuteVerifySession(ctx context.Context, input VerifySessionInput, deps VerifySessionDeps) session.Session {
	restored, err := session.Restored(input.Token)
	if err != nil {
		return session.Anonymous()
	}

	res, err := deps.API.Verify(ctx, restored.Token)
	if err == nil && res.Authenticated && res.Teacher != nil {
		if sess, err := restored.Confirm(*res.Teacher); err == nil {
			slog.Info("auth_event", "event", "session_restored", "teacher", sess.TeacherName())
			return sess
		}
	}

	reason := "rejected"
	if err != nil {
		reason = "unreachable"
	}
	slog.Info("auth_event", "event", "session_discarded", "reason", reason)
	if rmErr := deps.TokenStore.RemoveItem(ctx, session.TokenKey); rmErr != nil {
		slog.Warn("token_remove_failed", "error", rmErr.Error())
	}
	return session.Anonymous()
}

// ExecuteRestoreSession reads the cached token and verifies it.
// PRE: none
// POST: Same as ExecuteVerifySession; anonymous when nothing is cached
func ExecuteRestoreSession(ctx context.Context, deps VerifySessionDeps) session.Session {
	token, err := deps.TokenStore.GetItem(ctx, session.TokenKey)
	if errors.Is(err, localstore.ErrNotFound) || token == "" {
		return session.Anonymous()
	}
	if err != nil {
		slog.Warn("token_read_failed", "error", err.Error())
		return session.Anonymous()
	}
	return ExecuteVerifySession(ctx, VerifySessionInput{Token: token}, deps)
}
