// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"

	"github.com/djbeb/djbeb/internal/services"
	"golang.org/x/oauth2"
)

// MockService is a test double for [services.Service]. Every method records
// its invocation so tests can assert that no provider call was made.
type MockService struct {
	Calls atomic.Int64

	AuthURL       string
	ExchangeToken *oauth2.Token
	ExchangeErr   error
	RefreshToken  *oauth2.Token
	RefreshErr    error
	PlaylistsJSON json.RawMessage
	TracksJSON    json.RawMessage
	PlaybackErr   error
}

func (m *MockService) AuthorizationURL(state string) string {
	m.Calls.Add(1)
	if m.AuthURL == "" {
		return "https://accounts.example.com/authorize?state=" + state
	}
	return m.AuthURL + "&state=" + state
}

func (m *MockService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	m.Calls.Add(1)
	return m.ExchangeToken, m.ExchangeErr
}

func (m *MockService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	m.Calls.Add(1)
	return m.RefreshToken, m.RefreshErr
}

func (m *MockService) Playlists(ctx context.Context, accessToken string) (json.RawMessage, error) {
	m.Calls.Add(1)
	return m.PlaylistsJSON, m.PlaybackErr
}

func (m *MockService) PlaylistTracks(ctx context.Context, accessToken, playlistID string) (json.RawMessage, error) {
	m.Calls.Add(1)
	return m.TracksJSON, m.PlaybackErr
}

func (m *MockService) Play(ctx context.Context, accessToken string, req services.PlayRequest) error {
	m.Calls.Add(1)
	return m.PlaybackErr
}

func (m *MockService) Pause(ctx context.Context, accessToken string) error {
	m.Calls.Add(1)
	return m.PlaybackErr
}

func (m *MockService) Resume(ctx context.Context, accessToken, deviceID string) error {
	m.Calls.Add(1)
	return m.PlaybackErr
}

func (m *MockService) Seek(ctx context.Context, accessToken string, req services.SeekRequest) error {
	m.Calls.Add(1)
	return m.PlaybackErr
}

func (m *MockService) Name() string { return "mock" }

var _ services.Service = (*MockService)(nil)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}
