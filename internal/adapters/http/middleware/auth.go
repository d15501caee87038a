package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"portal/internal/domain/session"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const (
	sessionContextKey   contextKey = "session"
	clientIDContextKey  contextKey = "client_id"
	requestIDContextKey contextKey = "request_id"
)

// TokenCookieName holds the bearer token in the browser, the web counterpart of
// localStorage["teacherToken"].
const TokenCookieName = "teacher_token"

// DefaultSessionTTL is how long a verified token is trusted before re-verifying.
const DefaultSessionTTL = 30 * time.Minute

// SecureCookies marks cookies Secure. Set in production.
var SecureCookies = false

type cachedSession struct {
	session    session.Session
	verifiedAt time.Time
}

// SessionCache remembers tokens the activities API has verified, so the
// restore-then-verify round trip happens once per token rather than per request.
type SessionCache struct {
	mu       sync.RWMutex
	sessions map[string]cachedSession
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionCache creates an empty cache.
func NewSessionCache(ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionCache{
		sessions: make(map[string]cachedSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Put stores an authenticated session under its token.
// PRE: s is authenticated
// POST: Get(s.Token) returns s until the TTL passes or Delete is called
func (c *SessionCache) Put(s session.Session) {
	if !s.IsAuthenticated() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[s.Token] = cachedSession{session: s, verifiedAt: c.now()}
}

// Get returns the cached session for token if it has not expired.
func (c *SessionCache) Get(token string) (session.Session, bool) {
	c.mu.RLock()
	cs, ok := c.sessions[token]
	c.mu.RUnlock()
	if !ok {
		return session.Session{}, false
	}
	if c.now().Sub(cs.verifiedAt) > c.ttl {
		c.Delete(token)
		return session.Session{}, false
	}
	return cs.session, true
}

// Delete forgets token.
func (c *SessionCache) Delete(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, token)
}

// Len returns the number of cached tokens.
func (c *SessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// Verifier checks a stored token with the activities API. It returns an
// authenticated session, or an anonymous one after discarding a rejected token
// through w.
type Verifier func(w http.ResponseWriter, r *http.Request, token string) session.Session

// Auth resolves the request's teacher session from the token cookie.
// A token not in the cache is verified once and cached on success.
// It never blocks a request: anonymous visitors get an anonymous session.
func Auth(cache *SessionCache, verify Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipSession(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			sess := session.Anonymous()
			if cookie, err := r.Cookie(TokenCookieName); err == nil && cookie.Value != "" {
				if cached, ok := cache.Get(cookie.Value); ok {
					sess = cached
				} else if verified := verify(w, r, cookie.Value); verified.IsAuthenticated() {
					cache.Put(verified)
					sess = verified
				}
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
		})
	}
}

func skipSession(path string) bool {
	return strings.HasPrefix(path, "/static/") || path == "/metrics" || path == "/healthz" || strings.HasPrefix(path, "/debug/")
}

// GetSessionFromContext extracts the session from the request context.
// The zero (anonymous) session is returned when none was set.
func GetSessionFromContext(ctx context.Context) session.Session {
	s, _ := ctx.Value(sessionContextKey).(session.Session)
	return s
}

// ContextWithSession returns a context carrying sess.
func ContextWithSession(ctx context.Context, sess session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SetTokenCookie stores the bearer token in the browser.
func SetTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   86400,
	})
}

// ClearTokenCookie removes the bearer token from the browser.
func ClearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
