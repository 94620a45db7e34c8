package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Auth talks to the Supabase auth server (/auth/v1).
type Auth struct {
	baseURL string
	anonKey string
	hc      *http.Client
	now     func() time.Time
}

// NewAuth creates an auth client. A nil hc uses a client with APITimeout.
func NewAuth(baseURL, anonKey string, hc *http.Client) *Auth {
	if hc == nil {
		hc = &http.Client{Timeout: APITimeout}
	}
	return &Auth{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		hc:      hc,
		now:     time.Now,
	}
}

// SignIn exchanges an email and password for a session.
func (a *Auth) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	return a.token(ctx, "password", body)
}

// Refresh exchanges a refresh token for a new session.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("session has no refresh token (run: taskmaster login)")
	}
	body := map[string]string{"refresh_token": refreshToken}
	return a.token(ctx, "refresh_token", body)
}

// SignOut revokes the session of accessToken on the server.
func (a *Auth) SignOut(ctx context.Context, accessToken string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", a.anonKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.hc.Do(req)
	if err != nil {
		return wrapError(err)
	}
	defer resp.Body.Close()
	return wrapError(checkResponse(resp))
}

func (a *Auth) token(ctx context.Context, grantType string, body any) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := a.baseURL + "/auth/v1/token?grant_type=" + grantType
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", a.anonKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.hc.Do(req)
	if err != nil {
		return nil, wrapError(err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return nil, wrapAuthError(err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, fmt.Errorf("invalid auth response: %w", err)
	}
	return tr.session(a.now())
}

// refreshingSource is an oauth2.TokenSource that refreshes through the auth
// server and reports every new session to onRefresh.
type refreshingSource struct {
	ctx       context.Context
	auth      *Auth
	onRefresh func(*Session)

	mu      sync.Mutex
	refresh string
}

// Token implements oauth2.TokenSource.
func (s *refreshingSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.auth.Refresh(s.ctx, s.refresh)
	if err != nil {
		return nil, err
	}
	s.refresh = sess.Token.RefreshToken
	if s.onRefresh != nil {
		s.onRefresh(sess)
	}
	return sess.Token, nil
}
