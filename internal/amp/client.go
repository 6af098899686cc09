// Package amp implements a client for the control plane's JSON-over-POST API:
// session login, transparent re-authentication on in-band expiry signals, and
// instance discovery with per-instance live metric refresh.
package amp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// In-band expiry sentinels. The upstream API reports session expiry in the
// response payload, not via HTTP status.
const (
	titleUnauthorized   = "Unauthorized Access"
	titleSessionExpired = "Session Expired"
)

// Client talks to one control-plane endpoint and owns its session token.
// Poll cycles never overlap, but per-instance refresh calls within one cycle
// run concurrently, so token access is mutex-guarded.
type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string

	mu        sync.Mutex
	sessionID string
}

// Options configures a Client.
type Options struct {
	// URL is the control plane base URL, without the /API suffix.
	URL      string
	Username string
	Password string
	Timeout  time.Duration
}

// New creates a control-plane client. No network calls are made until the
// first request.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:    opts.URL,
		username:   opts.Username,
		password:   opts.Password,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// loginResponse is the documented login result shape.
type loginResponse struct {
	ResultReason string `json:"resultReason"`
	SessionID    string `json:"sessionID"`
	Success      bool   `json:"success"`
}

// Login authenticates against Core/Login and replaces the held session token.
// A non-success response yields an *AuthError which callers must treat as a
// cycle failure, not retry.
func (c *Client) Login(ctx context.Context) error {
	if c.username == "" || c.password == "" {
		return &AuthError{Reason: "credentials not configured"}
	}

	body, err := c.post(ctx, "Core/Login", map[string]any{
		"username":   c.username,
		"password":   c.password,
		"token":      "",
		"rememberMe": false,
	})
	if err != nil {
		return err
	}

	var res loginResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}

	if !res.Success {
		reason := res.ResultReason
		if reason == "" {
			reason = "unknown"
		}
		return &AuthError{Reason: reason}
	}

	c.mu.Lock()
	c.sessionID = res.SessionID
	c.mu.Unlock()
	log.Debug().Str("url", c.baseURL).Msg("Control plane login successful")

	return nil
}

// Invalidate drops the held session so the next call logs in again.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.sessionID = ""
	c.mu.Unlock()
}

func (c *Client) session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// EnsureSession returns a valid session token, logging in when none is held.
func (c *Client) EnsureSession(ctx context.Context) (string, error) {
	if c.session() == "" {
		if err := c.Login(ctx); err != nil {
			return "", err
		}
	}

	return c.session(), nil
}

// Call issues an authenticated API request. When the response signals session
// expiry in-band (Title field) or the transport returns 401/403, it performs
// exactly one re-login and one retry before surfacing the error.
func (c *Client) Call(ctx context.Context, endpoint string, params map[string]any) (json.RawMessage, error) {
	if _, err := c.EnsureSession(ctx); err != nil {
		return nil, err
	}

	body, err := c.authedPost(ctx, endpoint, params)
	if err != nil {
		if !isAuthStatus(err) {
			return nil, err
		}

		log.Debug().Str("endpoint", endpoint).Msg("Auth status from control plane, re-authenticating")
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
		return c.authedPost(ctx, endpoint, params)
	}

	if expired(body) {
		log.Debug().Str("endpoint", endpoint).Msg("Session expired in-band, re-authenticating")
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
		return c.authedPost(ctx, endpoint, params)
	}

	return body, nil
}

// authedPost sends one POST with the current session injected.
func (c *Client) authedPost(ctx context.Context, endpoint string, params map[string]any) (json.RawMessage, error) {
	payload := map[string]any{"SESSIONID": c.session()}
	for k, v := range params {
		payload[k] = v
	}

	return c.post(ctx, endpoint, payload)
}

// statusError carries a rejected HTTP status through the transport layer.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.status)
}

func isAuthStatus(err error) bool {
	var se *statusError
	if !errors.As(err, &se) {
		return false
	}

	return se.status == http.StatusUnauthorized || se.status == http.StatusForbidden
}

// expired inspects a response body for the documented in-band expiry titles.
func expired(body []byte) bool {
	var probe struct {
		Title string `json:"Title"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}

	return probe.Title == titleUnauthorized || probe.Title == titleSessionExpired
}

// post performs one JSON POST against /API/<endpoint> and returns the raw body.
func (c *Client) post(ctx context.Context, endpoint string, payload any) (json.RawMessage, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/API/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Endpoint: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Endpoint: endpoint, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &statusError{status: resp.StatusCode}
	case resp.StatusCode >= 500:
		return nil, &TransientError{Endpoint: endpoint, Err: &statusError{status: resp.StatusCode}}
	case resp.StatusCode != http.StatusOK:
		return nil, &statusError{status: resp.StatusCode}
	}

	return body, nil
}
