// Package supabase implements the service.Backend interface on top of a hosted
// Supabase project: PostgREST for the tasks table and GoTrue for the session.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"taskmaster/internal/config"
	"taskmaster/internal/logging"
	"taskmaster/internal/service"
)

const (
	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// Table is the PostgREST table holding tasks.
	Table = "tasks"

	// singleObject asks PostgREST for one JSON object instead of an array.
	singleObject = "application/vnd.pgrst.object+json"
)

// Client implements service.Backend against Supabase.
// Row-level policies on the tasks table scope every query to the signed-in user.
type Client struct {
	restURL string
	hc      *http.Client
	auth    *Auth
	cfg     *config.Config

	mu      sync.Mutex
	session *Session
}

// New creates a client from the stored session.
// Requires supabase.url, supabase.anon_key and session.json.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.Supabase.URL == "" || cfg.Supabase.AnonKey == "" {
		return nil, errors.New("supabase.url and supabase.anon_key must be configured")
	}

	sess, err := LoadSession(cfg.SessionPath())
	if err != nil {
		return nil, err
	}

	auth := NewAuth(cfg.Supabase.URL, cfg.Supabase.AnonKey, nil)
	c := &Client{
		restURL: strings.TrimRight(cfg.Supabase.URL, "/") + "/rest/v1",
		auth:    auth,
		cfg:     cfg,
		session: sess,
	}

	// Every request carries the project key; the oauth2 transport adds the bearer token.
	base := &http.Client{Transport: &apiKeyTransport{key: cfg.Supabase.AnonKey}}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	src := &refreshingSource{
		ctx:       ctx,
		auth:      auth,
		refresh:   sess.Token.RefreshToken,
		onRefresh: c.storeSession,
	}
	c.hc = oauth2.NewClient(ctx, oauth2.ReuseTokenSource(sess.Token, src))
	return c, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
// hc must add the apikey and Authorization headers itself.
func NewWithHTTPClient(baseURL string, hc *http.Client, sess *Session) *Client {
	return &Client{
		restURL: strings.TrimRight(baseURL, "/") + "/rest/v1",
		hc:      hc,
		auth:    NewAuth(baseURL, "", hc),
		session: sess,
	}
}

// storeSession keeps a refreshed session and persists it when backed by a config dir.
func (c *Client) storeSession(s *Session) {
	c.mu.Lock()
	if s.User.UserID == "" && c.session != nil {
		s.User = c.session.User
	}
	c.session = s
	c.mu.Unlock()

	if c.cfg == nil {
		return
	}
	if err := SaveSession(c.cfg.SessionPath(), s); err != nil {
		logging.Logger.Warnf("Event ID: SESSION_SAVE_FAILED, Description: Failed to persist refreshed session: %v", err)
	}
}

// ListTasks returns every task visible to the user, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")

	var tasks []service.Task
	if err := c.do(ctx, http.MethodGet, q, nil, nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []service.Task{}
	}
	return tasks, nil
}

// InsertTask inserts one row and returns it as stored.
func (c *Client) InsertTask(ctx context.Context, task service.NewTask) (service.Task, error) {
	headers := http.Header{}
	headers.Set("Prefer", "return=representation")
	headers.Set("Accept", singleObject)

	var created service.Task
	if err := c.do(ctx, http.MethodPost, nil, headers, task, &created); err != nil {
		return service.Task{}, err
	}
	return created, nil
}

// UpdateTask patches the row with the given id.
func (c *Client) UpdateTask(ctx context.Context, id string, patch service.Patch) error {
	return c.do(ctx, http.MethodPatch, idFilter(id), nil, patch, nil)
}

// DeleteTask deletes the row with the given id.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, idFilter(id), nil, nil, nil)
}

// CurrentUser returns the identity of the stored session.
func (c *Client) CurrentUser(ctx context.Context) (service.Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return service.Identity{}, errors.New("not logged in (run: taskmaster login)")
	}
	if c.session.User.UserID != "" {
		return c.session.User, nil
	}
	return IdentityFromToken(c.session.Token.AccessToken)
}

// SignOut revokes the session on the server and removes session.json.
// The local session is removed even when the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	sess := c.session
	c.session = nil
	c.mu.Unlock()

	if sess != nil {
		if err := c.auth.SignOut(ctx, sess.Token.AccessToken); err != nil {
			logging.Logger.Warnf("Event ID: SIGN_OUT_REMOTE_FAILED, Description: Server sign-out failed: %v", err)
		}
	}
	if c.cfg != nil && c.cfg.HasSession() {
		if err := c.cfg.RemoveSession(); err != nil {
			return fmt.Errorf("failed to remove session: %w", err)
		}
	}
	return nil
}

func idFilter(id string) url.Values {
	q := url.Values{}
	q.Set("id", "eq."+id)
	return q
}

// do sends one PostgREST request against the tasks table and decodes the response into out.
func (c *Client) do(ctx context.Context, method string, query url.Values, headers http.Header, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	endpoint := c.restURL + "/" + Table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return wrapError(err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return wrapError(err)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from %s: %w", Table, err)
	}
	return nil
}

// apiKeyTransport adds the project API key to every request.
type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	r := req.Clone(req.Context())
	r.Header.Set("apikey", t.key)
	return base.RoundTrip(r)
}

// APIError is a non-2xx answer from PostgREST or the auth server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// checkResponse turns a non-2xx response into an *APIError.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	// PostgREST uses message/code, the auth server msg/error_code or error/error_description.
	var body struct {
		Message          string `json:"message"`
		Code             any    `json:"code"`
		Msg              string `json:"msg"`
		ErrorCode        string `json:"error_code"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(raw, &body)

	e := &APIError{Status: resp.StatusCode}
	switch {
	case body.Message != "":
		e.Message = body.Message
	case body.Msg != "":
		e.Message = body.Msg
	case body.ErrorDescription != "":
		e.Message = body.ErrorDescription
	default:
		e.Message = strings.TrimSpace(string(raw))
	}
	switch {
	case body.ErrorCode != "":
		e.Code = body.ErrorCode
	case body.Error != "":
		e.Code = body.Error
	default:
		if s, ok := body.Code.(string); ok {
			e.Code = s
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("token expired or revoked (run: taskmaster login)")
		case http.StatusNotFound:
			return service.ErrNotFound
		}
	}
	return err
}

// wrapAuthError maps sign-in and refresh failures.
func wrapAuthError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
		return fmt.Errorf("auth error: %s", apiErr.Message)
	}
	return wrapError(err)
}
