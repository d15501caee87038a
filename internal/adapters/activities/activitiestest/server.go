// Package activitiestest provides an in-memory activities API for tests.
package activitiestest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"portal/internal/domain/session"
)

// Activity mirrors the API's wire shape.
type Activity struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// Account is a teacher the fake server accepts.
type Account struct {
	Password string
	Teacher  session.Teacher
}

// Server is a fake activities API backed by maps.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	activities map[string]*Activity
	accounts   map[string]Account
	tokens     map[string]session.Teacher
	calls      map[string]int
	failNext   map[string]int // path prefix -> status to return once
	nextToken  int
}

// New starts a fake API seeded with activities and closes it on test cleanup.
func New(t *testing.T, seed map[string]Activity) *Server {
	t.Helper()
	s := &Server{
		activities: make(map[string]*Activity),
		accounts:   make(map[string]Account),
		tokens:     make(map[string]session.Teacher),
		calls:      make(map[string]int),
		failNext:   make(map[string]int),
	}
	for name, a := range seed {
		a := a
		if a.Participants == nil {
			a.Participants = []string{}
		}
		s.activities[name] = &a
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// DefaultSeed returns a small catalog used across tests.
func DefaultSeed() map[string]Activity {
	return map[string]Activity{
		"Chess Club": {
			Description:     "Learn strategies and compete in chess tournaments",
			Schedule:        "Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 12,
			Participants:    []string{"michael@mergington.edu", "daniel@mergington.edu"},
		},
		"Programming Class": {
			Description:     "Learn programming fundamentals and build software projects",
			Schedule:        "Tuesdays and Thursdays, 3:30 PM - 4:30 PM",
			MaxParticipants: 20,
			Participants:    []string{"emma@mergington.edu"},
		},
		"Art Studio": {
			Description:     "Painting, drawing and *mixed media*",
			Schedule:        "Wednesdays, 3:30 PM - 5:00 PM",
			MaxParticipants: 8,
		},
	}
}

// AddTeacher registers a teacher login.
func (s *Server) AddTeacher(email, password string, teacher session.Teacher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[email] = Account{Password: password, Teacher: teacher}
}

// IssueToken makes token valid for teacher without a login call.
func (s *Server) IssueToken(token string, teacher session.Teacher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = teacher
}

// RevokeToken invalidates token.
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// FailNext makes the next request whose path starts with prefix return status
// with no detail field.
func (s *Server) FailNext(prefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[prefix] = status
}

// Calls returns how many requests hit "METHOD /path" (path without query).
func (s *Server) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

// TotalCalls returns the number of requests served.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// Participants returns a copy of the named activity's participants.
func (s *Server) Participants(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[name]
	if !ok {
		return nil
	}
	return append([]string(nil), a.Participants...)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[r.Method+" "+r.URL.Path]++

	for prefix, status := range s.failNext {
		if strings.HasPrefix(r.URL.Path, prefix) {
			delete(s.failNext, prefix)
			writeJSON(w, status, map[string]any{})
			return
		}
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/activities":
		writeJSON(w, http.StatusOK, s.activities)
	case r.Method == http.MethodPost && r.URL.Path == "/login":
		s.login(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/auth/verify":
		teacher, ok := s.bearer(r)
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "teacher": teacher})
	case strings.HasPrefix(r.URL.Path, "/activities/"):
		s.membership(w, r)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid form"})
		return
	}
	acct, ok := s.accounts[r.PostForm.Get("email")]
	if !ok || acct.Password != r.PostForm.Get("password") {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid email or password"})
		return
	}
	s.nextToken++
	token := fmt.Sprintf("token-%d", s.nextToken)
	s.tokens[token] = acct.Teacher
	writeJSON(w, http.StatusOK, map[string]any{"teacher": acct.Teacher, "token": token})
}

func (s *Server) membership(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.bearer(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication required"})
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/activities/")
	idx := strings.LastIndex(rest, "/")
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
		return
	}
	name, action := rest[:idx], rest[idx+1:]
	email := r.URL.Query().Get("email")
	a, ok := s.activities[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Activity not found"})
		return
	}

	switch {
	case action == "signup" && r.Method == http.MethodPost:
		for _, p := range a.Participants {
			if p == email {
				writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Student is already signed up"})
				return
			}
		}
		if len(a.Participants) >= a.MaxParticipants {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Activity is full"})
			return
		}
		a.Participants = append(a.Participants, email)
		writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Signed up %s for %s", email, name)})
	case action == "unregister" && r.Method == http.MethodDelete:
		for i, p := range a.Participants {
			if p == email {
				a.Participants = append(a.Participants[:i], a.Participants[i+1:]...)
				writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Unregistered %s from %s", email, name)})
				return
			}
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Student is not signed up for this activity"})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "Method Not Allowed"})
	}
}

func (s *Server) bearer(r *http.Request) (session.Teacher, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return session.Teacher{}, false
	}
	teacher, ok := s.tokens[token]
	return teacher, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
