package web

import (
	"errors"
	"log/slog"
	"net/http"

	"portal/internal/adapters/activities"
	"portal/internal/adapters/http/middleware"
	"portal/internal/application/orchestrators"
	"portal/internal/application/projections"
	"portal/internal/domain/message"
	"portal/internal/domain/session"
)

// board loads the catalog for the current session. Failure is rendered, not returned.
func (p *Portal) board(r *http.Request, sess session.Session) projections.ActivityBoard {
	board, _ := projections.QueryGetActivityBoard(r.Context(), sess, projections.GetActivityBoardDeps{API: p.api})
	return board
}

// handleIndex handles GET /
func (p *Portal) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSessionFromContext(r.Context())
	p.render(w, r, http.StatusOK, pageData{Board: p.board(r, sess)})
}

// handleLoginPage handles GET /login: the page with the login overlay open.
func (p *Portal) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSessionFromContext(r.Context())
	if sess.IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	p.render(w, r, http.StatusOK, pageData{Board: p.board(r, sess), LoginOpen: true})
}

// handleLogin handles POST /login
func (p *Portal) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	input := orchestrators.LoginInput{
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	}
	deps := orchestrators.LoginDeps{
		API:        p.api,
		TokenStore: cookieTokenStore{w: w, r: r},
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), input, deps)
	if err != nil {
		sess := middleware.GetSessionFromContext(r.Context())
		p.render(w, r, statusFor(err), pageData{
			Board:      p.board(r, sess),
			LoginOpen:  true,
			LoginError: result.Notice.Text,
			LoginEmail: input.Email,
		})
		return
	}

	p.sessions.Put(result.Session)
	p.show(r, result.Notice)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout handles POST /logout
func (p *Portal) handleLogout(w http.ResponseWriter, r *http.Request) {
	current := middleware.GetSessionFromContext(r.Context())
	if cookie, err := r.Cookie(middleware.TokenCookieName); err == nil {
		p.sessions.Delete(cookie.Value)
	}
	if _, err := orchestrators.ExecuteLogout(r.Context(), current, orchestrators.LogoutDeps{
		TokenStore: cookieTokenStore{w: w, r: r},
	}); err != nil {
		internalError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleSignup handles POST /signup
func (p *Portal) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	sess := middleware.GetSessionFromContext(r.Context())
	input := orchestrators.MembershipInput{
		Session:  sess,
		Activity: r.PostForm.Get("activity"),
		Email:    r.PostForm.Get("email"),
	}

	msg, err := orchestrators.ExecuteSignup(r.Context(), input, orchestrators.SignupDeps{API: p.api})
	switch {
	case err == nil:
		p.show(r, msg)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, orchestrators.ErrNotAuthenticated):
		p.render(w, r, http.StatusUnauthorized, pageData{Board: p.board(r, sess), Alert: msg.Text})
	default:
		// Keep what was typed; the form only resets on success. The error is
		// shown on this page only, so a reload does not repeat it.
		p.messages.Dismiss(middleware.GetClientID(r.Context()))
		p.render(w, r, statusFor(err), pageData{
			Board:          p.board(r, sess),
			Message:        &msg,
			SignupActivity: input.Activity,
			SignupEmail:    input.Email,
		})
	}
}

// handleUnregister handles POST /activities/{name}/unregister
func (p *Portal) handleUnregister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	sess := middleware.GetSessionFromContext(r.Context())
	input := orchestrators.MembershipInput{
		Session:  sess,
		Activity: r.PathValue("name"),
		Email:    r.PostForm.Get("email"),
	}

	msg, err := orchestrators.ExecuteUnregister(r.Context(), input, orchestrators.UnregisterDeps{API: p.api})
	if errors.Is(err, orchestrators.ErrNotAuthenticated) {
		p.render(w, r, http.StatusUnauthorized, pageData{Board: p.board(r, sess), Alert: msg.Text})
		return
	}
	p.show(r, msg)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// show posts msg to the requesting client's banner.
func (p *Portal) show(r *http.Request, msg message.Message) {
	if err := p.messages.Show(middleware.GetClientID(r.Context()), msg); err != nil {
		slog.Warn("message_dropped", "error", err.Error())
	}
}

// statusFor maps an operation error to the status of the re-rendered page.
func statusFor(err error) int {
	var apiErr *activities.APIError
	switch {
	case errors.Is(err, orchestrators.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		return apiErr.Status
	default:
		return http.StatusBadGateway
	}
}
