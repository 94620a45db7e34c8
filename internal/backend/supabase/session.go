package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"taskmaster/internal/service"
)

// Session is a signed-in Supabase session as stored in session.json.
type Session struct {
	Token *oauth2.Token    `json:"token"`
	User  service.Identity `json:"user"`
}

// tokenResponse is the body returned by /auth/v1/token.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (r *tokenResponse) session(now time.Time) (*Session, error) {
	if r.AccessToken == "" {
		return nil, errors.New("auth response has no access token")
	}
	expiry := time.Time{}
	switch {
	case r.ExpiresAt > 0:
		expiry = time.Unix(r.ExpiresAt, 0)
	case r.ExpiresIn > 0:
		expiry = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	}

	s := &Session{
		Token: &oauth2.Token{
			AccessToken:  r.AccessToken,
			TokenType:    r.TokenType,
			RefreshToken: r.RefreshToken,
			Expiry:       expiry,
		},
		User: service.Identity{UserID: r.User.ID, Email: r.User.Email},
	}
	if s.User.UserID == "" {
		id, err := IdentityFromToken(r.AccessToken)
		if err != nil {
			return nil, err
		}
		s.User = id
	}
	return s, nil
}

// accessClaims are the claims of a Supabase access token we rely on.
type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IdentityFromToken reads the user id (sub) and email claims of an access token.
// The signature is not verified: the token came from the auth server and is only
// ever sent back to it.
func IdentityFromToken(accessToken string) (service.Identity, error) {
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return service.Identity{}, fmt.Errorf("invalid access token: %w", err)
	}
	if claims.Subject == "" {
		return service.Identity{}, errors.New("invalid access token: no subject")
	}
	return service.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// LoadSession reads a session file.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session.json: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid session.json: %w", err)
	}
	if s.Token == nil || s.Token.AccessToken == "" {
		return nil, errors.New("invalid session.json: no access token")
	}
	return &s, nil
}

// SaveSession writes a session file with mode 0600.
func SaveSession(path string, s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
