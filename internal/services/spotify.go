// Spotify API implementation of [Service]
//
// Endpoint shapes based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/djbeb/djbeb/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Outbound calls are bounded; a timeout classifies as ErrUpstream.
	requestTimeout = 10 * time.Second
)

// spotifyScopes is the fixed scope set requested at consent: playlist reads,
// playback state reads and writes, streaming/remote control, and profile.
var spotifyScopes = []string{
	"playlist-read-private",
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"streaming",
	"app-remote-control",
	"user-read-email",
	"user-read-private",
}

// spotifyError mirrors the provider's error envelope.
type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// SpotifyService implements the [Service] interface for Spotify API interactions.
// Uses [oauth2] for the code and refresh exchanges.
type SpotifyService struct {
	config     *oauth2.Config
	baseURL    string
	httpClient *http.Client
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
// The optional "auth_url", "token_url", and "api_base_url" keys override the
// provider endpoints for tests.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("missing client_id in credentials")
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("missing client_secret in credentials")
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	authURL := credentials["auth_url"]
	if authURL == "" {
		authURL = spotifyAuthURL
	}
	tokenURL := credentials["token_url"]
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	baseURL := credentials["api_base_url"]
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       spotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthorizationURL returns the OAuth2 consent URL for user login.
func (s *SpotifyService) AuthorizationURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades the authorization code for a token pair. Codes are
// single-use, so a failed exchange is never retried.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrExchange, err)
	}
	return token, nil
}

// Refresh trades the refresh token for a new access token. A rejected
// refresh token means the caller must force re-authentication.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", shared.ErrRefresh)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	source := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefresh, err)
	}
	return token, nil
}

// doRequest performs an authenticated request against the resource API and
// returns the raw response body. A missing access token fails before any
// network round-trip.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint, accessToken string, body any) ([]byte, error) {
	if accessToken == "" {
		return nil, shared.ErrMissingCredential
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, s.classify(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// classify maps a provider error response onto the error taxonomy so the
// boundary can distinguish re-authentication from device and rate problems.
func (s *SpotifyService) classify(status int, body []byte) error {
	var envelope spotifyError
	reason := ""
	message := ""
	if err := json.Unmarshal(body, &envelope); err == nil {
		reason = envelope.Error.Reason
		message = envelope.Error.Message
	}

	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: status %d: %s", shared.ErrUnauthorized, status, message)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %s", shared.ErrRateLimited, status, message)
	case reason == "NO_ACTIVE_DEVICE" || (status == http.StatusNotFound && message == "Device not found"):
		return fmt.Errorf("%w: status %d: %s", shared.ErrNoActiveDevice, status, message)
	default:
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrUpstream, status, string(body))
	}
}

// Playlists retrieves the current user's playlists as the provider's paging
// JSON, unmodified.
func (s *SpotifyService) Playlists(ctx context.Context, accessToken string) (json.RawMessage, error) {
	return s.doRequest(ctx, http.MethodGet, "/me/playlists", accessToken, nil)
}

// PlaylistTracks retrieves a playlist's track JSON as a raw passthrough.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, accessToken, playlistID string) (json.RawMessage, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id required", shared.ErrInvalidInput)
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodGet, endpoint, accessToken, nil)
}

// Play starts playback of a playlist at the selected track on the given
// device. All identifiers are required; validation happens before the
// credential is inspected and before any network call.
func (s *SpotifyService) Play(ctx context.Context, accessToken string, req PlayRequest) error {
	if req.TrackID == "" || req.DeviceID == "" || req.PlaylistID == "" {
		return fmt.Errorf("%w: trackId, deviceId, and playlistId are required", shared.ErrInvalidInput)
	}

	payload := map[string]any{
		"context_uri": "spotify:playlist:" + req.PlaylistID,
		"offset": map[string]string{
			"uri": "spotify:track:" + req.TrackID,
		},
	}

	endpoint := "/me/player/play?device_id=" + url.QueryEscape(req.DeviceID)
	_, err := s.doRequest(ctx, http.MethodPut, endpoint, accessToken, payload)
	return err
}

// Pause pauses playback on the user's active device.
func (s *SpotifyService) Pause(ctx context.Context, accessToken string) error {
	_, err := s.doRequest(ctx, http.MethodPut, "/me/player/pause", accessToken, nil)
	return err
}

// Resume resumes playback on the given device.
func (s *SpotifyService) Resume(ctx context.Context, accessToken, deviceID string) error {
	endpoint := "/me/player/play"
	if deviceID != "" {
		endpoint += "?device_id=" + url.QueryEscape(deviceID)
	}
	_, err := s.doRequest(ctx, http.MethodPut, endpoint, accessToken, nil)
	return err
}

// Seek moves the playback position. Replaying a seek is safe; the operation
// is idempotent from the provider's perspective.
func (s *SpotifyService) Seek(ctx context.Context, accessToken string, req SeekRequest) error {
	if req.PositionMs < 0 {
		return fmt.Errorf("%w: positionMs must not be negative", shared.ErrInvalidInput)
	}

	endpoint := "/me/player/seek?position_ms=" + strconv.Itoa(req.PositionMs)
	if req.DeviceID != "" {
		endpoint += "&device_id=" + url.QueryEscape(req.DeviceID)
	}
	_, err := s.doRequest(ctx, http.MethodPut, endpoint, accessToken, nil)
	return err
}

var _ Service = (*SpotifyService)(nil)
