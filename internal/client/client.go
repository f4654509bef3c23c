// ABOUTME: HTTP client for the nestbox API with the session-guard contract built in
// ABOUTME: Attaches the token to every request and reacts to the redirectToLogin flag

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrSessionExpired is returned when the server signals that the session is
// no longer valid. The local session record has already been cleared by the
// time a caller sees this; the only recovery is to log in again.
var ErrSessionExpired = errors.New("session expired, please login again")

// ErrNotLoggedIn is returned when an authenticated call is made with no
// session record present.
var ErrNotLoggedIn = errors.New("not logged in")

// APIError is a non-auth failure returned by the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// Resource is a generic record as returned by the API.
type Resource map[string]any

// ID returns the record's identifier.
func (r Resource) ID() string {
	s, _ := r["id"].(string)
	return s
}

// Ref names a resource: a type, optionally a record, optionally a nested
// subtype and sub-record.
type Ref struct {
	Type    string
	ID      string
	Subtype string
	SubID   string
}

// Client talks to a nestbox server on behalf of one session. It proceeds
// optimistically with whatever token it holds and reacts only to the server's
// expiry signal; it never pre-checks expiry and never retries with a stale
// token.
type Client struct {
	baseURL  string
	http     *http.Client
	sessions *SessionStore
	onReauth func()
}

// New creates a client for the given base URL and session store.
func New(baseURL string, sessions *SessionStore) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		sessions: sessions,
	}
}

// OnReauth registers a hook fired after the session has been cleared because
// the server demanded re-authentication. CLI and UI layers route the user
// back to login from here.
func (c *Client) OnReauth(fn func()) {
	c.onReauth = fn
}

// Session returns the current session record, or nil when logged out.
func (c *Client) Session() (*Session, error) {
	return c.sessions.Load()
}

// RegisterParams are the fields required to create an account.
type RegisterParams struct {
	UserName    string `json:"userName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Website     string `json:"website"`
	Password    string `json:"password"`
}

// Register creates an account and persists the resulting session.
func (c *Client) Register(ctx context.Context, params RegisterParams) (*Session, error) {
	var resp struct {
		Message string `json:"message"`
		Token   string `json:"token"`
		User    struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Email       string `json:"email"`
			PhoneNumber string `json:"phoneNumber"`
			Website     string `json:"website"`
		} `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/register", params, &resp); err != nil {
		return nil, err
	}

	sess := &Session{
		ID:          resp.User.ID,
		Name:        resp.User.Name,
		Email:       resp.User.Email,
		PhoneNumber: resp.User.PhoneNumber,
		Website:     resp.User.Website,
		Token:       resp.Token,
	}
	if err := c.sessions.Save(sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return sess, nil
}

// Login authenticates and persists the resulting session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}

	var sess Session
	if err := c.do(ctx, http.MethodPost, "/login", body, &sess); err != nil {
		return nil, err
	}
	if err := c.sessions.Save(&sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return &sess, nil
}

// Logout discards the local session. The token itself cannot be revoked
// server-side; it simply ages out.
func (c *Client) Logout() error {
	return c.sessions.Clear()
}

// BrowsePosts fetches the public all-users posts view.
func (c *Client) BrowsePosts(ctx context.Context) ([]Resource, error) {
	var posts []Resource
	if err := c.do(ctx, http.MethodGet, "/posts", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// List fetches a collection: the caller's records of ref.Type, or the
// children of ref.Type/ref.ID when ref.Subtype is set.
func (c *Client) List(ctx context.Context, ref Ref) ([]Resource, error) {
	path, err := c.resourcePath(ref)
	if err != nil {
		return nil, err
	}
	var items []Resource
	if err := c.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Get fetches a single record.
func (c *Client) Get(ctx context.Context, ref Ref) (Resource, error) {
	path, err := c.resourcePath(ref)
	if err != nil {
		return nil, err
	}
	var item Resource
	if err := c.do(ctx, http.MethodGet, path, nil, &item); err != nil {
		return nil, err
	}
	return item, nil
}

// Create creates a record or subitem.
func (c *Client) Create(ctx context.Context, ref Ref, fields map[string]any) (Resource, error) {
	path, err := c.resourcePath(ref)
	if err != nil {
		return nil, err
	}
	var item Resource
	if err := c.do(ctx, http.MethodPost, path, fields, &item); err != nil {
		return nil, err
	}
	return item, nil
}

// Update merge-applies fields onto a record or subitem.
func (c *Client) Update(ctx context.Context, ref Ref, fields map[string]any) (Resource, error) {
	path, err := c.resourcePath(ref)
	if err != nil {
		return nil, err
	}
	var item Resource
	if err := c.do(ctx, http.MethodPut, path, fields, &item); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes a record or subitem.
func (c *Client) Delete(ctx context.Context, ref Ref) error {
	path, err := c.resourcePath(ref)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// resourcePath builds the /users/{id}/... path for the current session.
func (c *Client) resourcePath(ref Ref) (string, error) {
	sess, err := c.sessions.Load()
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", ErrNotLoggedIn
	}

	parts := []string{"/users", sess.ID, ref.Type}
	for _, p := range []string{ref.ID, ref.Subtype, ref.SubID} {
		if p == "" {
			break
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "/"), nil
}

// do sends one request. The current token, if any, rides along as a bearer
// header. A response carrying the redirectToLogin flag clears the persisted
// session and fires the reauth hook before anything else in the response is
// considered; the request is never replayed with the stale token.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	sess, err := c.sessions.Load()
	if err != nil {
		return err
	}
	if sess != nil && sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error           string `json:"error"`
			RedirectToLogin bool   `json:"redirectToLogin"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)

		if envelope.RedirectToLogin {
			_ = c.sessions.Clear()
			if c.onReauth != nil {
				c.onReauth()
			}
			return ErrSessionExpired
		}
		return &APIError{StatusCode: resp.StatusCode, Message: envelope.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
