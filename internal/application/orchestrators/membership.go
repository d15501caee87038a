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

// SignupAPI is the part of the activities API Signup needs.
type SignupAPI interface {
	Signup(ctx context.Context, token, name, email string) (string, error)
}

// UnregisterAPI is the part of the activities API Unregister needs.
type UnregisterAPI interface {
	Unregister(ctx context.Context, token, name, email string) (string, error)
}

// MembershipInput identifies a student and an activity.
// Signup requires Email to be an address. Unregister accepts any non-empty
// participant string, since it names an entry the server already listed.
type MembershipInput struct {
	Session  session.Session `validate:"-"`
	Activity string          `validate:"required"`
	Email    string          `validate:"required,email"`
}

// SignupDeps holds dependencies for Signup.
type SignupDeps struct {
	API SignupAPI
}

// UnregisterDeps holds dependencies for Unregister.
type UnregisterDeps struct {
	API UnregisterAPI
}

// membershipCall describes one guarded teacher operation.
type membershipCall struct {
	op        string
	alert     string
	invalid   string
	transport string
	check     func(input MembershipInput) error
	send      func(ctx context.Context, token, name, email string) (string, error)
}

func checkSignup(input MembershipInput) error {
	return validate.Struct(input)
}

// checkUnregister requires both fields but not an email format.
func checkUnregister(input MembershipInput) error {
	if err := validate.Var(input.Activity, "required"); err != nil {
		return err
	}
	return validate.Var(input.Email, "required")
}

// ExecuteSignup registers a student for an activity on behalf of the teacher.
// PRE: none; the session guard and input validation happen here
// POST: Returns the message to show. With no teacher session the error is
// ErrNotAuthenticated, the message is the blocking alert and no request is sent.
func ExecuteSignup(ctx context.Context, input MembershipInput, deps SignupDeps) (message.Message, error) {
	return executeMembership(ctx, input, membershipCall{
		op:        "signup",
		alert:     AlertSignupRequiresTeacher,
		invalid:   TextInvalidStudent,
		transport: TextSignupTransport,
		check:     checkSignup,
		send: func(ctx context.Context, token, name, email string) (string, error) {
			return deps.API.Signup(ctx, token, name, email)
		},
	})
}

// ExecuteUnregister removes a student from an activity on behalf of the teacher.
// PRE: none; the session guard and input validation happen here
// POST: Same contract as ExecuteSignup
func ExecuteUnregister(ctx context.Context, input MembershipInput, deps UnregisterDeps) (message.Message, error) {
	return executeMembership(ctx, input, membershipCall{
		op:        "unregister",
		alert:     AlertUnregisterRequiresTeacher,
		invalid:   TextInvalidParticipant,
		transport: TextUnregisterTransport,
		check:     checkUnregister,
		send: func(ctx context.Context, token, name, email string) (string, error) {
			return deps.API.Unregister(ctx, token, name, email)
		},
	})
}

func executeMembership(ctx context.Context, input MembershipInput, call membershipCall) (message.Message, error) {
	if !input.Session.IsAuthenticated() {
		slog.Info("membership_blocked", "op", call.op, "reason", "no_teacher_session")
		return message.Error(call.alert), ErrNotAuthenticated
	}
	if err := call.check(input); err != nil {
		return message.Error(call.invalid), fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	text, err := call.send(ctx, input.Session.Token, input.Activity, input.Email)
	if err != nil {
		var apiErr *activities.APIError
		if errors.As(err, &apiErr) {
			slog.Info("membership_rejected", "op", call.op, "activity", input.Activity, "status", apiErr.Status)
			return message.Error(apiErr.DetailOr(TextGenericServerError)), err
		}
		slog.Error("membership_error", "op", call.op, "activity", input.Activity, "error", err.Error())
		return message.Error(call.transport), err
	}

	if text == "" {
		text = TextRequestCompleted
	}
	slog.Info("membership_changed", "op", call.op, "activity", input.Activity, "teacher", input.Session.TeacherName())
	return message.Success(text), nil
}
