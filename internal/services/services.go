// package services defines interface Service for interacting with the
// provider's HTTP API
package services

import (
	"context"
	"encoding/json"

	"golang.org/x/oauth2"
)

// Service defines the operations the proxy forwards to a music streaming
// provider. Resource calls take the access token explicitly; the service
// holds no per-user state and every call is an independent round-trip.
type Service interface {
	// AuthorizationURL constructs the provider's consent-page URL for the
	// authorization code flow. Deterministic given static configuration.
	AuthorizationURL(state string) string

	// Exchange trades a single-use authorization code for a token pair.
	// Never retried: a failed code is spent.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// Refresh trades a refresh token for a new token pair. On failure the
	// caller must force re-authentication; there is no retry loop.
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)

	// Playlists returns the provider's playlist paging JSON unmodified.
	Playlists(ctx context.Context, accessToken string) (json.RawMessage, error)

	// PlaylistTracks returns the provider's track JSON for a playlist as a
	// raw passthrough; the proxy does not parse the track schema.
	PlaylistTracks(ctx context.Context, accessToken, playlistID string) (json.RawMessage, error)

	// Play starts playlist playback at a specific track on a device.
	Play(ctx context.Context, accessToken string, req PlayRequest) error

	// Pause pauses playback on the user's active device.
	Pause(ctx context.Context, accessToken string) error

	// Resume resumes playback on the given device.
	Resume(ctx context.Context, accessToken, deviceID string) error

	// Seek moves the playback position on the given device.
	Seek(ctx context.Context, accessToken string, req SeekRequest) error

	// Name returns the name of the provider (e.g., "Spotify")
	Name() string
}

// PlayRequest identifies the playlist context, starting track, and target
// device for a play command. All three fields are required.
type PlayRequest struct {
	TrackID    string `json:"trackId"`
	DeviceID   string `json:"deviceId"`
	PlaylistID string `json:"playlistId"`
}

// SeekRequest moves playback to a position on a device.
type SeekRequest struct {
	PositionMs int    `json:"positionMs"`
	DeviceID   string `json:"deviceId"`
}
