package models

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// Session holds the provider token pair for one authenticated browser
// session. A session is considered expired once ExpiresAt has passed,
// independent of the access token's own lifetime.
type Session struct {
	id             string
	accessToken    string
	refreshToken   string
	tokenExpiresAt time.Time
	expiresAt      time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

// NewSession creates a session carrying the given token pair, expiring after ttl.
func NewSession(tok *oauth2.Token, ttl time.Duration) *Session {
	now := time.Now()
	s := &Session{
		expiresAt: now.Add(ttl),
		createdAt: now,
		updatedAt: now,
	}
	s.SetToken(tok)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) UpdatedAt() time.Time { return s.updatedAt }

func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

func (s *Session) AccessToken() string { return s.accessToken }

func (s *Session) RefreshToken() string { return s.refreshToken }

func (s *Session) TokenExpiry() time.Time { return s.tokenExpiresAt }

func (s *Session) SetID(id string) { s.id = id }

func (s *Session) SetCreatedAt(t time.Time) { s.createdAt = t }

func (s *Session) SetUpdatedAt(t time.Time) { s.updatedAt = t }

func (s *Session) SetExpiresAt(t time.Time) { s.expiresAt = t }
func (s *Session) SetTokenFields(access, refresh string, expiry time.Time) {
	s.accessToken = access
	s.refreshToken = refresh
	s.tokenExpiresAt = expiry
}

// SetToken replaces the stored token pair. Used when a refresh mints a new
// access token for an existing session.
func (s *Session) SetToken(tok *oauth2.Token) {
	if tok == nil {
		return
	}
	s.accessToken = tok.AccessToken
	s.refreshToken = tok.RefreshToken
	s.tokenExpiresAt = tok.Expiry
	s.updatedAt = time.Now()
}

// Token reconstructs the stored pair as an [oauth2.Token].
func (s *Session) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
		Expiry:       s.tokenExpiresAt,
	}
}

// Expired reports whether the session idle window has lapsed.
func (s *Session) Expired() bool {
	return time.Now().After(s.expiresAt)
}

// Validate checks if the session's data is valid.
func (s *Session) Validate() error {
	if s.accessToken == "" {
		return fmt.Errorf("session requires an access token")
	}
	if s.expiresAt.IsZero() {
		return fmt.Errorf("session requires an expiry")
	}
	return nil
}

var _ Model = (*Session)(nil)
