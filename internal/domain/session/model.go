package session

import "errors"

// TokenKey is the client storage key holding the bearer token.
const TokenKey = "teacherToken"

// Session states
const (
	StateAnonymous     = "anonymous"
	StateRestoring     = "restoring" // token cached, not yet verified
	StateAuthenticated = "authenticated"
)

// Domain errors
var (
	ErrEmptyToken    = errors.New("session token cannot be empty")
	ErrNoTeacher     = errors.New("session teacher cannot be empty")
	ErrNotRestoring  = errors.New("session has no cached token to confirm")
	ErrEmptyUsername = errors.New("teacher display name cannot be empty")
)

// Teacher is the identity returned by the activities API for a logged-in teacher.
type Teacher struct {
	Username string `json:"username,omitempty"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
}

// DisplayName returns the name to show in the auth button.
func (t Teacher) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Username
}

// Validate checks the teacher has something to display.
// PRE: Teacher struct is populated
// POST: Returns nil if valid, error otherwise
func (t Teacher) Validate() error {
	if t.DisplayName() == "" {
		return ErrEmptyUsername
	}
	return nil
}

// Session is the client-side teacher session.
// The zero value is an anonymous session.
type Session struct {
	Teacher *Teacher
	Token   string
}

// Anonymous returns a session with no teacher and no token.
func Anonymous() Session {
	return Session{}
}

// Restored returns a session holding a cached token awaiting verification.
// PRE: token is non-empty
// POST: State() is StateRestoring
func Restored(token string) (Session, error) {
	if token == "" {
		return Session{}, ErrEmptyToken
	}
	return Session{Token: token}, nil
}

// Authenticated returns a session for a teacher that has just logged in.
// PRE: teacher has a display name, token is non-empty
// POST: State() is StateAuthenticated
func Authenticated(teacher Teacher, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrEmptyToken
	}
	if err := teacher.Validate(); err != nil {
		return Session{}, ErrNoTeacher
	}
	return Session{Teacher: &teacher, Token: token}, nil
}

// Confirm promotes a restored session once the server has verified its token.
// PRE: State() is StateRestoring
// POST: State() is StateAuthenticated; token is unchanged
func (s Session) Confirm(teacher Teacher) (Session, error) {
	if s.State() != StateRestoring {
		return s, ErrNotRestoring
	}
	return Authenticated(teacher, s.Token)
}

// State returns the session's lifecycle state.
func (s Session) State() string {
	switch {
	case s.Teacher != nil && s.Token != "":
		return StateAuthenticated
	case s.Token != "":
		return StateRestoring
	default:
		return StateAnonymous
	}
}

// IsAuthenticated reports whether teacher-only operations are allowed.
func (s Session) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

// TeacherName returns the teacher's display name, or "" when anonymous.
func (s Session) TeacherName() string {
	if s.Teacher == nil {
		return ""
	}
	return s.Teacher.DisplayName()
}
