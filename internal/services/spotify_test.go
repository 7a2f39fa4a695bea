package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/djbeb/djbeb/internal/shared"
)

func testCredentials(overrides map[string]string) map[string]string {
	credentials := map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
		"redirect_uri":  "http://localhost:8080/callback",
	}
	for k, v := range overrides {
		credentials[k] = v
	}
	return credentials
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials(nil))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv == nil {
				t.Fatal("expected service to be created")
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{
				"client_secret": "test_client_secret",
			})
			if err == nil {
				t.Error("expected error for missing client_id")
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{
				"client_id": "test_client_id",
			})
			if err == nil {
				t.Error("expected error for missing client_secret")
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, err := NewSpotifyService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.config.RedirectURL != "http://localhost:8080/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})
	})

	t.Run("AuthorizationURL", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials(nil))
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.AuthorizationURL("test_state")
		if authURL == "" {
			t.Fatal("expected auth URL to be generated")
		}

		for _, want := range []string{
			"accounts.spotify.com",
			"response_type=code",
			"client_id=test_client_id",
			"state=test_state",
			"user-modify-playback-state",
		} {
			if !strings.Contains(authURL, want) {
				t.Errorf("expected auth URL to contain %q, got %s", want, authURL)
			}
		}

		if strings.Contains(authURL, "test_client_secret") {
			t.Error("auth URL must not leak the client secret")
		}
	})

	t.Run("Exchange", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseForm(); err != nil {
					t.Fatalf("failed to parse token request: %v", err)
				}
				if got := r.Form.Get("grant_type"); got != "authorization_code" {
					t.Errorf("expected grant_type authorization_code, got %s", got)
				}
				if got := r.Form.Get("code"); got != "test_code" {
					t.Errorf("expected code test_code, got %s", got)
				}

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"access_token":"AT1","refresh_token":"RT1","token_type":"Bearer","expires_in":3600}`))
			}))
			defer provider.Close()

			srv, err := NewSpotifyService(testCredentials(map[string]string{"token_url": provider.URL}))
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}

			tok, err := srv.Exchange(context.Background(), "test_code")
			if err != nil {
				t.Fatalf("exchange failed: %v", err)
			}

			if tok.AccessToken != "AT1" {
				t.Errorf("expected access token AT1, got %s", tok.AccessToken)
			}
			if tok.RefreshToken != "RT1" {
				t.Errorf("expected refresh token RT1, got %s", tok.RefreshToken)
			}
		})

		t.Run("Rejected Code", func(t *testing.T) {
			provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"invalid_grant"}`))
			}))
			defer provider.Close()

			srv, err := NewSpotifyService(testCredentials(map[string]string{"token_url": provider.URL}))
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}

			_, err = srv.Exchange(context.Background(), "spent_code")
			if !errors.Is(err, shared.ErrExchange) {
				t.Errorf("expected ErrExchange, got %v", err)
			}
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseForm(); err != nil {
					t.Fatalf("failed to parse token request: %v", err)
				}
				if got := r.Form.Get("grant_type"); got != "refresh_token" {
					t.Errorf("expected grant_type refresh_token, got %s", got)
				}

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"access_token":"AT2","refresh_token":"RT1","token_type":"Bearer","expires_in":3600}`))
			}))
			defer provider.Close()

			srv, err := NewSpotifyService(testCredentials(map[string]string{"token_url": provider.URL}))
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}

			tok, err := srv.Refresh(context.Background(), "RT1")
			if err != nil {
				t.Fatalf("refresh failed: %v", err)
			}
			if tok.AccessToken != "AT2" {
				t.Errorf("expected access token AT2, got %s", tok.AccessToken)
			}
		})

		t.Run("Empty Refresh Token", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials(nil))
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}

			_, err = srv.Refresh(context.Background(), "")
			if !errors.Is(err, shared.ErrRefresh) {
				t.Errorf("expected ErrRefresh, got %v", err)
			}
		})

		t.Run("Rejected Refresh Token", func(t *testing.T) {
			provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"invalid_grant"}`))
			}))
			defer provider.Close()

			srv, err := NewSpotifyService(testCredentials(map[string]string{"token_url": provider.URL}))
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}

			_, err = srv.Refresh(context.Background(), "revoked")
			if !errors.Is(err, shared.ErrRefresh) {
				t.Errorf("expected ErrRefresh, got %v", err)
			}
		})
	})
}

func TestSpotifyResourceCalls(t *testing.T) {
	newServiceWithAPI := func(t *testing.T, handler http.HandlerFunc) (*SpotifyService, *httptest.Server) {
		t.Helper()

		api := httptest.NewServer(handler)
		t.Cleanup(api.Close)

		srv, err := NewSpotifyService(testCredentials(map[string]string{"api_base_url": api.URL}))
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}
		return srv, api
	}

	t.Run("Playlists Passthrough", func(t *testing.T) {
		payload := `{"items":[{"id":"pl1","name":"Mix"}],"total":1,"limit":20,"offset":0}`

		srv, _ := newServiceWithAPI(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/playlists" {
				t.Errorf("expected path /me/playlists, got %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer AT1" {
				t.Errorf("expected bearer header, got %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(payload))
		})

		body, err := srv.Playlists(context.Background(), "AT1")
		if err != nil {
			t.Fatalf("playlists failed: %v", err)
		}

		if string(body) != payload {
			t.Errorf("expected body to pass through unmodified, got %s", string(body))
		}
	})

	t.Run("PlaylistTracks", func(t *testing.T) {
		srv, _ := newServiceWithAPI(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/playlists/pl1/tracks" {
				t.Errorf("expected path /playlists/pl1/tracks, got %s", r.URL.Path)
			}
			w.Write([]byte(`{"items":[]}`))
		})

		if _, err := srv.PlaylistTracks(context.Background(), "AT1", "pl1"); err != nil {
			t.Fatalf("playlist tracks failed: %v", err)
		}

		if _, err := srv.PlaylistTracks(context.Background(), "AT1", ""); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for empty playlist id, got %v", err)
		}
	})

	t.Run("Missing Access Token Fails Before Network", func(t *testing.T) {
		var calls atomic.Int64
		srv, _ := newServiceWithAPI(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		})

		_, err := srv.Playlists(context.Background(), "")
		if !errors.Is(err, shared.ErrMissingCredential) {
			t.Errorf("expected ErrMissingCredential, got %v", err)
		}
		if calls.Load() != 0 {
			t.Errorf("expected zero provider calls, got %d", calls.Load())
		}
	})

	t.Run("Play", func(t *testing.T) {
		t.Run("Builds Context And Offset URIs", func(t *testing.T) {
			srv, _ := newServiceWithAPI(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPut {
					t.Errorf("expected PUT, got %s", r.Method)
				}
				if r.URL.Path != "/me/player/play" {
					t.Errorf("expected path /me/player/play, got %s", r.URL.Path)
				}
				if got := r.URL.Query().Get("device_id"); got != "dev1" {
					t.Errorf("expected device_id dev1, got %s", got)
				}

				var body map[string]any
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode body: %v", err)
				}
				if got := body["context_uri"]; got != "spotify:playlist:pl1" {
					t.Errorf("expected playlist context uri, got %v", got)
				}
				offset, _ := body["offset"].(map[string]any)
				if got := offset["uri"]; got != "spotify:track:tr1" {
					t.Errorf("expected track offset uri, got %v", got)
				}

				w.WriteHeader(http.StatusNoContent)
			})

			err := srv.Play(context.Background(), "AT1", PlayRequest{
				TrackID:    "tr1",
				DeviceID:   "dev1",
				PlaylistID: "pl1",
			})
			if err != nil {
				t.Fatalf("play failed: %v", err)
			}
		})

		t.Run("Missing Fields Fail Before Network", func(t *testing.T) {
			var calls atomic.Int64
			srv, _ := newServiceWithAPI(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
			})

			requests := []PlayRequest{
				{DeviceID: "dev1", PlaylistID: "pl1"},
				{TrackID: "tr1", PlaylistID: "pl1"},
				{TrackID: "tr1", DeviceID: "dev1"},
				{},
			}
			for _, req := range requests {
				if err := srv.Play(context.Background(), "AT1", req); !errors.Is(err, shared.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput for %+v, got %v", req, err)
				}
			}
			if calls.Load() != 0 {
				t.Errorf("expected zero provider calls, got %d", calls.Load())
			}
		})
	})

	t.Run("Pause", func(t *testing.T) {
		srv, _ := newServiceWithAPI(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut || r.URL.Path != "/me/player/pause" {
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			}
			w.WriteHeader(http.StatusNoContent)
		})

		if err := srv.Pause(context.Background(), "AT1"); err != nil {
			t.Fatalf("pause failed: %v", err)
		}
	})

	t.Run("Resume", func(t *testing.T) {
		srv, _ := newServiceWithAPI(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/player/play" {
				t.Errorf("expected path /me/player/play, got %s", r.URL.Path)
			}
			if got := r.URL.Query().Get("device_id"); got != "dev1" {
				t.Errorf("expected device_id dev1, got %s", got)
			}
			w.WriteHeader(http.StatusNoContent)
		})

		if err := srv.Resume(context.Background(), "AT1", "dev1"); err != nil {
			t.Fatalf("resume failed: %v", err)
		}
	})

	t.Run("Seek", func(t *testing.T) {
		srv, _ := newServiceWithAPI(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/player/seek" {
				t.Errorf("expected path /me/player/seek, got %s", r.URL.Path)
			}
			if got := r.URL.Query().Get("position_ms"); got != "42000" {
				t.Errorf("expected position_ms 42000, got %s", got)
			}
			w.WriteHeader(http.StatusNoContent)
		})

		if err := srv.Seek(context.Background(), "AT1", SeekRequest{PositionMs: 42000, DeviceID: ""}); err != nil {
			t.Fatalf("seek failed: %v", err)
		}

		if err := srv.Seek(context.Background(), "AT1", SeekRequest{PositionMs: -1}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for negative position, got %v", err)
		}
	})

	t.Run("Error Classification", func(t *testing.T) {
		cases := []struct {
			name   string
			status int
			body   string
			want   error
		}{
			{"Unauthorized", http.StatusUnauthorized, `{"error":{"status":401,"message":"The access token expired"}}`, shared.ErrUnauthorized},
			{"No Active Device Reason", http.StatusNotFound, `{"error":{"status":404,"message":"Player command failed: No active device found","reason":"NO_ACTIVE_DEVICE"}}`, shared.ErrNoActiveDevice},
			{"Device Not Found", http.StatusNotFound, `{"error":{"status":404,"message":"Device not found"}}`, shared.ErrNoActiveDevice},
			{"Rate Limited", http.StatusTooManyRequests, `{"error":{"status":429,"message":"API rate limit exceeded"}}`, shared.ErrRateLimited},
			{"Server Error", http.StatusBadGateway, `upstream broke`, shared.ErrUpstream},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				srv, _ := newServiceWithAPI(t, func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tc.status)
					w.Write([]byte(tc.body))
				})

				err := srv.Pause(context.Background(), "AT1")
				if !errors.Is(err, tc.want) {
					t.Errorf("expected %v, got %v", tc.want, err)
				}
			})
		}
	})
}
