// Package cli runs portal operations from a terminal, keeping the teacher
// token in a local store between runs.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"portal/internal/adapters/activities"
	"portal/internal/application/orchestrators"
	"portal/internal/application/projections"
	"portal/internal/domain/activity"
	"portal/internal/domain/message"
	"portal/internal/domain/session"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailed  = 1
	ExitBlocked = 2 // guarded command without a teacher session, or bad usage
)

// Commands lists the accepted -cmd values.
var Commands = []string{"activities", "login", "logout", "whoami", "signup", "unregister"}

// API is the activities backend the terminal client talks to.
type API interface {
	ListActivities(ctx context.Context) (activity.Catalog, error)
	Login(ctx context.Context, email, password string) (activities.LoginResult, error)
	Verify(ctx context.Context, token string) (activities.VerifyResult, error)
	Signup(ctx context.Context, token, name, email string) (string, error)
	Unregister(ctx context.Context, token, name, email string) (string, error)
}

// Args carries command flags.
type Args struct {
	Email    string
	Password string
	Activity string
}

// App is one client process. Session starts anonymous until Restore runs.
type App struct {
	API   API
	Store orchestrators.TokenStore
	Out   io.Writer
	Err   io.Writer

	session session.Session
}

// Session returns the current session.
func (a *App) Session() session.Session {
	return a.session
}

// Restore verifies the cached token, discarding it silently if rejected.
func (a *App) Restore(ctx context.Context) {
	a.session = orchestrators.ExecuteRestoreSession(ctx, orchestrators.VerifySessionDeps{
		API:        a.API,
		TokenStore: a.Store,
	})
}

// Run executes one command and returns the process exit code.
func (a *App) Run(ctx context.Context, cmd string, args Args) int {
	switch cmd {
	case "activities":
		return a.activities(ctx)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami()
	case "signup":
		msg, err := orchestrators.ExecuteSignup(ctx, a.membership(args), orchestrators.SignupDeps{API: a.API})
		return a.report(ctx, msg, err)
	case "unregister":
		msg, err := orchestrators.ExecuteUnregister(ctx, a.membership(args), orchestrators.UnregisterDeps{API: a.API})
		return a.report(ctx, msg, err)
	default:
		fmt.Fprintf(a.Err, "unknown command %q (want one of: %s)\n", cmd, strings.Join(Commands, ", "))
		return ExitBlocked
	}
}

func (a *App) activities(ctx context.Context) int {
	board, err := projections.QueryGetActivityBoard(ctx, a.session, projections.GetActivityBoardDeps{API: a.API})
	WriteBoard(a.Out, board)
	if err != nil {
		return ExitFailed
	}
	return ExitOK
}

func (a *App) login(ctx context.Context, args Args) int {
	result, err := orchestrators.ExecuteLogin(ctx, orchestrators.LoginInput{
		Email:    args.Email,
		Password: args.Password,
	}, orchestrators.LoginDeps{API: a.API, TokenStore: a.Store})
	if err != nil {
		writeMessage(a.Err, result.Notice)
		return ExitFailed
	}
	a.session = result.Session
	writeMessage(a.Out, result.Notice)
	return a.whoami()
}

func (a *App) logout(ctx context.Context) int {
	sess, err := orchestrators.ExecuteLogout(ctx, a.session, orchestrators.LogoutDeps{TokenStore: a.Store})
	a.session = sess
	if err != nil {
		fmt.Fprintf(a.Err, "error: %v\n", err)
		return ExitFailed
	}
	fmt.Fprintln(a.Out, "Logged out")
	return ExitOK
}

func (a *App) whoami() int {
	if !a.session.IsAuthenticated() {
		fmt.Fprintln(a.Out, "Not logged in")
		return ExitOK
	}
	fmt.Fprintf(a.Out, "Logged in as %s\n", a.session.TeacherName())
	return ExitOK
}

func (a *App) membership(args Args) orchestrators.MembershipInput {
	return orchestrators.MembershipInput{Session: a.session, Activity: args.Activity, Email: args.Email}
}

// report prints the outcome of a membership change. A success is followed by
// the reloaded activity list; the change stands even if that reload fails.
func (a *App) report(ctx context.Context, msg message.Message, err error) int {
	switch {
	case err == nil:
		writeMessage(a.Out, msg)
		fmt.Fprintln(a.Out)
		a.activities(ctx)
		return ExitOK
	case errors.Is(err, orchestrators.ErrNotAuthenticated):
		fmt.Fprintln(a.Err, msg.Text)
		return ExitBlocked
	default:
		writeMessage(a.Err, msg)
		return ExitFailed
	}
}

func writeMessage(w io.Writer, m message.Message) {
	fmt.Fprintf(w, "%s: %s\n", m.Severity, m.Text)
}

// WriteBoard prints one block per activity.
func WriteBoard(w io.Writer, board projections.ActivityBoard) {
	if board.LoadFailed {
		fmt.Fprintln(w, projections.TextLoadFailed)
		return
	}
	for i, card := range board.Cards {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, card.Name)
		if card.Description != "" {
			fmt.Fprintf(w, "  %s\n", card.Description)
		}
		fmt.Fprintf(w, "  Schedule: %s\n", card.Schedule)
		fmt.Fprintf(w, "  Availability: %d spots left\n", card.SpotsLeft)
		if !card.HasParticipants() {
			fmt.Fprintf(w, "  %s\n", projections.TextNoParticipants)
			continue
		}
		fmt.Fprintln(w, "  Participants:")
		for _, p := range card.Participants {
			marker := "-"
			if p.CanRemove {
				marker = "x"
			}
			fmt.Fprintf(w, "    %s %s\n", marker, p.Email)
		}
	}
}
