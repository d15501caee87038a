package activities

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrTransport covers network failures and unparseable responses.
var ErrTransport = errors.New("activities api request failed")

// APIError is a non-2xx response from the activities API.
type APIError struct {
	Status int
	Detail string // empty when the server sent no string detail
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("activities api returned %d", e.Status)
	}
	return fmt.Sprintf("activities api returned %d: %s", e.Status, e.Detail)
}

// DetailOr returns the server detail, or fallback when there is none.
func (e *APIError) DetailOr(fallback string) string {
	if e.Detail == "" {
		return fallback
	}
	return e.Detail
}

// DetailOr extracts the server detail from err, or returns fallback.
func DetailOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.DetailOr(fallback)
	}
	return fallback
}

// errorBody is the error shape the API uses. Detail is a string for
// application errors and a list for request validation errors.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func (b errorBody) text() string {
	if len(b.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(b.Detail, &s); err != nil {
		return ""
	}
	return s
}
