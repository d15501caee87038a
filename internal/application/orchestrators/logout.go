package orchestrators

import (
	"context"
	"log/slog"

	"portal/internal/domain/session"
)

// LogoutDeps holds dependencies for Logout.
type LogoutDeps struct {
	TokenStore TokenStore
}

// ExecuteLogout forgets the teacher session locally.
// The activities API has no logout endpoint; the token simply stops being sent.
// PRE: none
// POST: Returns an anonymous session; the persisted token is removed
func ExecuteLogout(ctx context.Context, current session.Session, deps LogoutDeps) (session.Session, error) {
	if err := deps.TokenStore.RemoveItem(ctx, session.TokenKey); err != nil {
		slog.Warn("token_remove_failed", "error", err.Error())
		return session.Anonymous(), err
	}
	if current.IsAuthenticated() {
		slog.Info("auth_event", "event", "logout", "teacher", current.TeacherName())
	}
	return session.Anonymous(), nil
}
