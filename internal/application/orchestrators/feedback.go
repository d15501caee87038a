package orchestrators

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// User-facing texts. Server-provided text always takes precedence where available.
const (
	AlertSignupRequiresTeacher     = "Please log in as a teacher to sign up students."
	AlertUnregisterRequiresTeacher = "Please log in as a teacher to unregister students."

	TextLoginSuccess        = "Successfully logged in!"
	TextLoginFailed         = "Login failed"
	TextLoginTransport      = "Login failed. Please try again."
	TextLoginInvalidInput   = "Please enter your email and password."
	TextGenericServerError  = "An error occurred"
	TextSignupTransport     = "Failed to sign up. Please try again."
	TextUnregisterTransport = "Failed to unregister. Please try again."
	TextInvalidStudent      = "Please choose an activity and enter a valid student email."
	TextInvalidParticipant  = "Please choose an activity and a participant to remove."
	TextRequestCompleted    = "Request completed"
)

var (
	ErrNotAuthenticated = errors.New("teacher session required")
	ErrInvalidInput     = errors.New("invalid input")
)

// validate is shared; validator caches struct metadata and is safe for concurrent use.
var validate = validator.New()
