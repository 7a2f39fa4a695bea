// Package tokens implements the credential carriers for the playback proxy:
// the signed bearer credential embedding the provider token pair, and the
// server-side session [Store].
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/djbeb/djbeb/internal/shared"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Credential is the typed result of decoding a signed credential. Claims are
// only populated after signature and expiry verification.
type Credential struct {
	AccessToken  string
	RefreshToken string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	ID           string // jti
}

// Token reconstructs the embedded pair as an [oauth2.Token].
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
	}
}

// Issuer mints and verifies HS256-signed credentials embedding the provider
// token pair. No server-side state: revocation is only possible by
// provider-side invalidation or by waiting out the expiry window.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an issuer signing with secret, valid for ttl per credential.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: signing secret is required", shared.ErrInvalidConfig)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}, nil
}

// Issue mints a signed credential embedding the given token pair.
func (i *Issuer) Issue(tok *oauth2.Token) (string, error) {
	if tok == nil || tok.AccessToken == "" {
		return "", fmt.Errorf("%w: token pair required", shared.ErrMissingCredential)
	}

	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"access_token":  tok.AccessToken,
		"refresh_token": tok.RefreshToken,
		"iat":           now.Unix(),
		"exp":           now.Add(i.ttl).Unix(),
		"jti":           uuid.New().String(),
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign credential: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry of a signed credential and
// returns the embedded claims. Any failure is [shared.ErrInvalidCredential];
// claims are never read from an unverified token.
func (i *Issuer) Decode(raw string) (*Credential, error) {
	cred, err := i.parse(raw, true)
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// DecodeExpired verifies the signature of a signed credential but tolerates
// a lapsed expiry window. Used by the refresh flow, where the embedded
// refresh token outlives the credential itself.
func (i *Issuer) DecodeExpired(raw string) (*Credential, error) {
	return i.parse(raw, false)
}

// Renew re-mints a credential carrying the new token pair, preserving the
// claim shape of the original. The old credential's signature must verify,
// but its expiry is tolerated: renewal follows a provider refresh, which may
// happen after the credential window lapsed.
func (i *Issuer) Renew(old string, tok *oauth2.Token) (string, error) {
	if _, err := i.parse(old, false); err != nil {
		return "", err
	}
	return i.Issue(tok)
}

func (i *Issuer) parse(raw string, requireFresh bool) (*Credential, error) {
	if raw == "" {
		return nil, shared.ErrMissingCredential
	}

	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(NowTimeFunc),
	)

	keyFunc := func(t *jwtlib.Token) (any, error) { return i.secret, nil }

	token, err := parser.Parse(raw, keyFunc)
	if err != nil {
		// An expired-but-authentic credential is acceptable for renewal.
		expiredOnly := errors.Is(err, jwtlib.ErrTokenExpired) && token != nil
		if requireFresh || !expiredOnly {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCredential, err)
		}
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: malformed claims", shared.ErrInvalidCredential)
	}

	accessToken, _ := claims["access_token"].(string)
	if accessToken == "" {
		return nil, fmt.Errorf("%w: missing access_token claim", shared.ErrInvalidCredential)
	}
	refreshToken, _ := claims["refresh_token"].(string)
	jti, _ := claims["jti"].(string)
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)

	return &Credential{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IssuedAt:     time.Unix(int64(iat), 0),
		ExpiresAt:    time.Unix(int64(exp), 0),
		ID:           jti,
	}, nil
}
