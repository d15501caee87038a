package message

import (
	"errors"
	"time"
)

// DefaultHideAfter is how long a message stays visible.
const DefaultHideAfter = 5 * time.Second

// Severities double as the CSS class of the message box.
const (
	SeveritySuccess = "success"
	SeverityError   = "error"
)

// Domain errors
var (
	ErrEmptyText       = errors.New("message text cannot be empty")
	ErrInvalidSeverity = errors.New("message severity must be one of: success, error")
)

// Message is transient feedback shown to the user.
type Message struct {
	Text     string
	Severity string
}

// Success builds a success message.
func Success(text string) Message {
	return Message{Text: text, Severity: SeveritySuccess}
}

// Error builds an error message.
func Error(text string) Message {
	return Message{Text: text, Severity: SeverityError}
}

// Validate checks the message can be displayed.
// PRE: Message struct is populated
// POST: Returns nil if valid, error otherwise
func (m Message) Validate() error {
	if m.Text == "" {
		return ErrEmptyText
	}
	if m.Severity != SeveritySuccess && m.Severity != SeverityError {
		return ErrInvalidSeverity
	}
	return nil
}

// IsError reports whether the message has error severity.
func (m Message) IsError() bool {
	return m.Severity == SeverityError
}
