package web

import (
	"context"
	"net/http"

	"portal/internal/adapters/http/middleware"
	"portal/internal/adapters/storage/localstore"
	"portal/internal/domain/session"
)

// cookieTokenStore keeps the bearer token in the teacher_token cookie.
// Only session.TokenKey is stored; other keys are not found.
type cookieTokenStore struct {
	w http.ResponseWriter
	r *http.Request
}

func (s cookieTokenStore) GetItem(_ context.Context, key string) (string, error) {
	if key != session.TokenKey {
		return "", localstore.ErrNotFound
	}
	cookie, err := s.r.Cookie(middleware.TokenCookieName)
	if err != nil || cookie.Value == "" {
		return "", localstore.ErrNotFound
	}
	return cookie.Value, nil
}

func (s cookieTokenStore) SetItem(_ context.Context, key, value string) error {
	if key == session.TokenKey {
		middleware.SetTokenCookie(s.w, value)
	}
	return nil
}

func (s cookieTokenStore) RemoveItem(_ context.Context, key string) error {
	if key == session.TokenKey {
		middleware.ClearTokenCookie(s.w)
	}
	return nil
}
