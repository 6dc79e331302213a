// Package remote implements the HTTP client for the remote learning store.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// requestTimeout bounds every remote call so a stalled network can never
// wedge the periodic sync task.
const requestTimeout = 10 * time.Second

// APIError reports a failed remote operation with HTTP detail.
// Extractable via errors.As(). Supports Unwrap().
type APIError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote: %s failed (status %d): %v", e.Operation, e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// Client abstracts communication with the remote learning store.
// Implementations must be safe for concurrent use.
type Client interface {
	// Probe validates connectivity with a lightweight health check.
	Probe(ctx context.Context) error

	// PushSession uploads one learning session.
	PushSession(ctx context.Context, payload *SessionPayload) error

	// PushPattern upserts one learned pattern.
	PushPattern(ctx context.Context, payload *PatternPayload) error

	// PushPreference upserts one user preference.
	PushPreference(ctx context.Context, payload *PreferencePayload) error

	// PushAssignment uploads one forced-choice assignment.
	PushAssignment(ctx context.Context, payload *AssignmentPayload) error

	// DeletePattern removes a pattern from the remote store.
	DeletePattern(ctx context.Context, id string) error

	// FetchPatterns downloads the user's full pattern set.
	FetchPatterns(ctx context.Context) ([]PatternPayload, error)

	// FetchPreferences downloads the user's full preference set.
	FetchPreferences(ctx context.Context) ([]PreferencePayload, error)
}

// HTTPClient implements Client using net/http.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	userID     string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the remote learning store. The user ID
// scopes every request; the remote enforces per-user row isolation.
func NewHTTPClient(baseURL, apiKey, userID string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		userID:  userID,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// WithHTTPClient sets a custom http.Client (for testing or custom timeouts).
func (c *HTTPClient) WithHTTPClient(client *http.Client) *HTTPClient {
	c.httpClient = client
	return c
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", "retain-client/1.0")
	req.Header.Set("X-Retain-User", c.userID)
}

func newAPIError(op string, statusCode int, body []byte) *APIError {
	msg := ""
	if len(body) > 0 && statusCode >= 400 {
		if len(body) > 200 {
			msg = string(body[:200]) + "..."
		} else {
			msg = string(body)
		}
	}
	return &APIError{
		Operation:  op,
		StatusCode: statusCode,
		Err:        fmt.Errorf("HTTP %d: %s", statusCode, msg),
	}
}

func (c *HTTPClient) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return &APIError{Operation: "probe", Err: err}
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Operation: "probe", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return newAPIError("probe", resp.StatusCode, body)
	}

	var probe ProbeResponse
	if err := json.NewDecoder(resp.Body).Decode(&probe); err != nil {
		return &APIError{Operation: "probe", Err: err}
	}
	return nil
}

func (c *HTTPClient) PushSession(ctx context.Context, payload *SessionPayload) error {
	return c.post(ctx, "push_session", "/api/v1/sessions", payload)
}

func (c *HTTPClient) PushPattern(ctx context.Context, payload *PatternPayload) error {
	return c.post(ctx, "push_pattern", "/api/v1/patterns", payload)
}

func (c *HTTPClient) PushPreference(ctx context.Context, payload *PreferencePayload) error {
	return c.post(ctx, "push_preference", "/api/v1/preferences", payload)
}

func (c *HTTPClient) PushAssignment(ctx context.Context, payload *AssignmentPayload) error {
	return c.post(ctx, "push_assignment", "/api/v1/assignments", payload)
}

func (c *HTTPClient) DeletePattern(ctx context.Context, id string) error {
	endpoint := c.baseURL + "/api/v1/patterns/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return &APIError{Operation: "delete_pattern", Err: err}
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Operation: "delete_pattern", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	// 404 means the pattern never reached the remote; treat as success so
	// the queue entry is not retried forever.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return newAPIError("delete_pattern", resp.StatusCode, body)
	}
	return nil
}

func (c *HTTPClient) FetchPatterns(ctx context.Context) ([]PatternPayload, error) {
	var result PatternsResponse
	if err := c.get(ctx, "fetch_patterns", "/api/v1/patterns", &result); err != nil {
		return nil, err
	}
	return result.Patterns, nil
}

func (c *HTTPClient) FetchPreferences(ctx context.Context) ([]PreferencePayload, error) {
	var result PreferencesResponse
	if err := c.get(ctx, "fetch_preferences", "/api/v1/preferences", &result); err != nil {
		return nil, err
	}
	return result.Preferences, nil
}

func (c *HTTPClient) post(ctx context.Context, op, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &APIError{Operation: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &APIError{Operation: op, Err: err}
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Operation: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(resp.Body)
		return newAPIError(op, resp.StatusCode, respBody)
	}
	return nil
}

func (c *HTTPClient) get(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &APIError{Operation: op, Err: err}
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Operation: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return newAPIError(op, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Operation: op, Err: err}
	}
	return nil
}
