package web

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"portal/internal/adapters/activities"
	"portal/internal/adapters/http/middleware"
	"portal/internal/adapters/http/perf"
	"portal/internal/application/orchestrators"
	"portal/internal/domain/activity"
	"portal/internal/domain/message"
	"portal/internal/domain/session"
)

// ActivitiesAPI is the activities backend the portal fronts.
type ActivitiesAPI interface {
	ListActivities(ctx context.Context) (activity.Catalog, error)
	Login(ctx context.Context, email, password string) (activities.LoginResult, error)
	Verify(ctx context.Context, token string) (activities.VerifyResult, error)
	Signup(ctx context.Context, token, name, email string) (string, error)
	Unregister(ctx context.Context, token, name, email string) (string, error)
	Health(ctx context.Context) error
}

// Deps holds everything the portal needs. Zero values get defaults.
type Deps struct {
	API            ActivitiesAPI
	Messages       *message.Board
	Sessions       *middleware.SessionCache
	Collector      *perf.Collector
	CSRFKey        []byte // 32 bytes
	SecureCookies  bool
	TrustedOrigins []string
	RateLimit      int // requests per second per client IP
}

// Portal serves the activity sign-up pages.
type Portal struct {
	api       ActivitiesAPI
	messages  *message.Board
	sessions  *middleware.SessionCache
	collector *perf.Collector
	limiter   *middleware.RateLimiter
	handler   http.Handler
}

// New wires routes and middleware.
// PRE: deps.API non-nil; len(deps.CSRFKey) == 32
// POST: Returns a ready handler; call Close to stop background work
func New(deps Deps) *Portal {
	p := &Portal{
		api:       deps.API,
		messages:  deps.Messages,
		sessions:  deps.Sessions,
		collector: deps.Collector,
	}
	if p.messages == nil {
		p.messages = message.NewBoard(message.DefaultHideAfter)
	}
	if p.collector == nil {
		p.collector = perf.NewCollector(perf.DefaultRingSize)
	}
	if p.sessions == nil {
		p.sessions = middleware.NewSessionCache(middleware.DefaultSessionTTL)
	}
	rate := deps.RateLimit
	if rate <= 0 {
		rate = 20
	}
	p.limiter = middleware.NewRateLimiter(rate, time.Second)
	middleware.SecureCookies = deps.SecureCookies

	// RequestID -> Timing -> RateLimit -> ClientID -> Auth -> CSRF -> SecurityHeaders -> mux
	p.handler = middleware.Chain(p.routes(),
		middleware.SecurityHeaders,
		middleware.CSRF(deps.CSRFKey, deps.SecureCookies, deps.TrustedOrigins),
		middleware.Auth(p.sessions, p.verify),
		middleware.ClientID,
		middleware.RateLimit(p.limiter),
		middleware.Timing(p.collector),
		middleware.RequestID,
	)
	return p
}

// ServeHTTP implements http.Handler.
func (p *Portal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// Close stops background work.
func (p *Portal) Close() {
	p.limiter.Stop()
}

func (p *Portal) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.FileServerFS(staticFS))
	mux.HandleFunc("GET /{$}", p.handleIndex)
	mux.HandleFunc("GET /login", p.handleLoginPage)
	mux.HandleFunc("POST /login", p.handleLogin)
	mux.HandleFunc("POST /logout", p.handleLogout)
	mux.HandleFunc("POST /signup", p.handleSignup)
	mux.HandleFunc("POST /activities/{name}/unregister", p.handleUnregister)
	mux.HandleFunc("GET /healthz", p.handleHealth)
	mux.HandleFunc("GET /debug/perf", p.handlePerf)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// verify restores a session from a token cookie the cache has not seen.
func (p *Portal) verify(w http.ResponseWriter, r *http.Request, token string) session.Session {
	return orchestrators.ExecuteVerifySession(r.Context(),
		orchestrators.VerifySessionInput{Token: token},
		orchestrators.VerifySessionDeps{API: p.api, TokenStore: cookieTokenStore{w: w, r: r}},
	)
}
