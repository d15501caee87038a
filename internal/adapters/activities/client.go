package activities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portal/internal/adapters/http/perf"
	"portal/internal/domain/activity"
	"portal/internal/domain/session"
)

// DefaultTimeout bounds every call to the activities API.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// LoginResult is a successful login response.
type LoginResult struct {
	Teacher session.Teacher
	Token   string
}

// VerifyResult is the token verification response.
type VerifyResult struct {
	Authenticated bool
	Teacher       *session.Teacher
}

// Client calls the activities API.
type Client struct {
	BaseURL   string
	HTTP      *http.Client
	Collector *perf.Collector
}

// New creates a client with the given timeout.
// PRE: baseURL is an absolute http(s) URL
// POST: Returns a ready-to-use client; timeout <= 0 uses DefaultTimeout
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// activityBody is one entry of GET /activities.
type activityBody struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// ListActivities fetches the whole activity catalog.
// PRE: none
// POST: Returns the catalog keyed by name, or an error wrapping ErrTransport / *APIError
func (c *Client) ListActivities(ctx context.Context) (activity.Catalog, error) {
	var out map[string]activityBody
	if err := c.do(ctx, "activities.List", http.MethodGet, "/activities", "", nil, &out); err != nil {
		return nil, err
	}
	catalog := make(activity.Catalog, len(out))
	for name, b := range out {
		participants := b.Participants
		if participants == nil {
			participants = []string{}
		}
		a := activity.Activity{
			Name:            name,
			Description:     b.Description,
			Schedule:        b.Schedule,
			MaxParticipants: b.MaxParticipants,
			Participants:    participants,
		}
		if err := a.Validate(); err != nil {
			// Shown as received; the API owns the data.
			slog.Warn("activity_invalid", "activity", name, "error", err.Error())
		}
		catalog[name] = a
	}
	return catalog, nil
}

type messageBody struct {
	Message string `json:"message"`
}

// Signup registers email for the named activity.
// PRE: token is a teacher bearer token; name and email are non-empty
// POST: Returns the server's confirmation message
func (c *Client) Signup(ctx context.Context, token, name, email string) (string, error) {
	path := "/activities/" + url.PathEscape(name) + "/signup?" + url.Values{"email": {email}}.Encode()
	var out messageBody
	if err := c.do(ctx, "activities.Signup", http.MethodPost, path, token, nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Unregister removes email from the named activity.
// PRE: token is a teacher bearer token; name and email are non-empty
// POST: Returns the server's confirmation message
func (c *Client) Unregister(ctx context.Context, token, name, email string) (string, error) {
	path := "/activities/" + url.PathEscape(name) + "/unregister?" + url.Values{"email": {email}}.Encode()
	var out messageBody
	if err := c.do(ctx, "activities.Unregister", http.MethodDelete, path, token, nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Login exchanges teacher credentials for a bearer token.
// PRE: email and password are non-empty
// POST: Returns the teacher identity and token
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	form := url.Values{"email": {email}, "password": {password}}
	var out struct {
		Teacher session.Teacher `json:"teacher"`
		Token   string          `json:"token"`
	}
	if err := c.do(ctx, "activities.Login", http.MethodPost, "/login", "", form, &out); err != nil {
		return LoginResult{}, err
	}
	if out.Token == "" {
		return LoginResult{}, fmt.Errorf("%w: login response carried no token", ErrTransport)
	}
	return LoginResult{Teacher: out.Teacher, Token: out.Token}, nil
}

// Verify asks the API whether token still identifies a teacher.
// A non-2xx response with a JSON body is an unauthenticated result, not an error.
// PRE: token is non-empty
// POST: Returns the verification result, or an error wrapping ErrTransport
func (c *Client) Verify(ctx context.Context, token string) (VerifyResult, error) {
	var out struct {
		Authenticated bool             `json:"authenticated"`
		Teacher       *session.Teacher `json:"teacher"`
	}
	err := c.do(ctx, "activities.Verify", http.MethodGet, "/auth/verify", token, nil, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return VerifyResult{}, nil
	}
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{Authenticated: out.Authenticated, Teacher: out.Teacher}, nil
}

// Health checks the activities API answers the catalog endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/activities", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode}
	}
	return nil
}

// do sends one request and decodes a 2xx JSON body into out.
// Non-2xx responses become *APIError; network and decode failures wrap ErrTransport.
func (c *Client) do(ctx context.Context, op, method, path, token string, form url.Values, out any) (err error) {
	start := time.Now()
	status := 0
	defer func() {
		elapsed := time.Since(start)
		outcome := outcomeOK
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr):
			outcome = outcomeAPIError
		case err != nil:
			outcome = outcomeTransport
		}
		upstreamRequests.WithLabelValues(op, outcome).Inc()
		upstreamDuration.WithLabelValues(op).Observe(elapsed.Seconds())
		c.Collector.Record(perf.Entry{
			Kind:       perf.KindUpstream,
			Path:       op,
			StatusCode: status,
			DurationMs: float64(elapsed.Microseconds()) / 1000.0,
			Timestamp:  start,
		})
		if outcome == outcomeTransport {
			slog.Error("upstream_error", "op", op, "error", err.Error())
		}
	}()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		if err := json.Unmarshal(raw, &eb); err != nil {
			return fmt.Errorf("%w: %s returned %d with non-JSON body", ErrTransport, op, resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Detail: eb.text()}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrTransport, err)
	}
	return nil
}
