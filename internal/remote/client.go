// Package remote is the typed request layer against the backend record
// store: authentication, record CRUD, and the custom sync and family
// endpoints under /mobile.
//
// The client keeps no in-memory session state of its own. The session
// token and the signed-in user id live in the secret store, so a fresh
// client in another process (the background tracker) derives its auth
// state from durable storage alone.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kinpoint/kinpoint/internal/secrets"
)

// Client talks to the backend at a base URL stored in the secret
// store. All methods are safe for sequential use; the secret store
// serializes the token reads and writes.
type Client struct {
	http    *http.Client
	secrets *secrets.Store
	logger  *log.Logger
}

// New creates a client reading its base URL and session token from the
// secret store. If httpClient is nil a 15 second timeout client is
// used. If logger is nil a default logger writing to stderr is used.
func New(store *secrets.Store, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &Client{
		http:    httpClient,
		secrets: store,
		logger:  logger,
	}
}

// BaseURL returns the configured API host, or "" when unset. Trailing
// slashes are trimmed so path concatenation is safe even when the
// stored value was written without going through SetBaseURL.
func (c *Client) BaseURL() string {
	v, _ := c.secrets.Get(secrets.KeyAPIURL)
	return strings.TrimRight(v, "/")
}

// SetBaseURL persists the API host for this and future processes.
func (c *Client) SetBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{Message: fmt.Sprintf("invalid API URL %q", raw)}
	}
	return c.secrets.Set(secrets.KeyAPIURL, strings.TrimRight(u.String(), "/"))
}

// IsSignedIn reports whether the stored session token exists and has
// not expired. This is a local check; no network call is made and the
// token signature is not verified here (the server does that).
func (c *Client) IsSignedIn() bool {
	token, ok := c.secrets.Get(secrets.KeySessionToken)
	if !ok || token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.After(time.Now())
}

// UserID returns the signed-in user's id from durable storage.
func (c *Client) UserID() (string, error) {
	id, ok := c.secrets.Get(secrets.KeyMyUserID)
	if !ok || id == "" {
		return "", ErrNotAuthenticated
	}
	return id, nil
}

// send issues one request and decodes the JSON response into out (when
// non-nil). Any token field in the response body is captured into the
// secret store, so implicit session renewals from the server are never
// lost.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	base := c.BaseURL()
	if base == "" {
		return &apiError{Message: "API URL is not configured"}
	}

	endpoint := base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &apiError{Err: fmt.Errorf("failed to marshal request body: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &apiError{Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.secrets.Get(secrets.KeySessionToken); ok && token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &apiError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apiError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := strings.TrimSpace(string(data))
		var body struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &body) == nil && body.Message != "" {
			message = body.Message
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return &AuthError{Message: message}
		}
		return &apiError{Status: resp.StatusCode, Message: message}
	}

	c.captureToken(data)

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return &apiError{Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}
	return nil
}

// captureToken persists a refreshed session token when the response
// carries one.
func (c *Client) captureToken(data []byte) {
	var body struct {
		Token string `json:"token"`
	}
	if json.Unmarshal(data, &body) != nil || body.Token == "" {
		return
	}
	if err := c.secrets.Set(secrets.KeySessionToken, body.Token); err != nil {
		c.logger.Printf("WARNING: failed to persist refreshed token: %v", err)
	}
}
