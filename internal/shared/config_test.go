package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	config := DefaultConfig()
	config.Spotify.ClientID = "test_client_id"
	config.Spotify.ClientSecret = "test_client_secret"
	config.Spotify.RedirectURI = "http://localhost:8080/callback"
	config.Auth.SigningSecret = "test_signing_secret"
	return config
}

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Auth.Mode != AuthModeBearer {
			t.Errorf("expected default auth mode bearer, got %s", config.Auth.Mode)
		}
		if config.Auth.CredentialTTL.Duration != time.Hour {
			t.Errorf("expected default credential ttl of 1h, got %v", config.Auth.CredentialTTL.Duration)
		}
		if config.Auth.SessionTTL.Duration != 24*time.Hour {
			t.Errorf("expected default session ttl of 24h, got %v", config.Auth.SessionTTL.Duration)
		}
		if config.Server.Port != 8080 {
			t.Errorf("expected default port 8080, got %d", config.Server.Port)
		}
		if config.Server.FrontendURL == "" {
			t.Error("expected a default frontend URL")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		t.Run("Valid File", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			content := `
[spotify]
client_id = "file_client_id"
client_secret = "file_client_secret"
redirect_uri = "http://localhost:9090/callback"

[auth]
mode = "session"
session_cookie = "sid"
session_ttl = "48h"

[server]
host = "0.0.0.0"
port = 9090
frontend_url = "http://localhost:3000"

[database]
path = "test.db"
`
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			config, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("failed to load config: %v", err)
			}

			if config.Spotify.ClientID != "file_client_id" {
				t.Errorf("expected file_client_id, got %s", config.Spotify.ClientID)
			}
			if config.Auth.Mode != AuthModeSession {
				t.Errorf("expected session mode, got %s", config.Auth.Mode)
			}
			if config.Auth.SessionTTL.Duration != 48*time.Hour {
				t.Errorf("expected 48h session ttl, got %v", config.Auth.SessionTTL.Duration)
			}
			if config.Server.Addr() != "0.0.0.0:9090" {
				t.Errorf("expected addr 0.0.0.0:9090, got %s", config.Server.Addr())
			}
		})

		t.Run("Missing File", func(t *testing.T) {
			if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}
		})

		t.Run("Malformed File", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.toml")
			if err := os.WriteFile(path, []byte("[spotify\nnope"), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			if _, err := LoadConfig(path); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("Bad Duration", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad_duration.toml")
			if err := os.WriteFile(path, []byte("[auth]\ncredential_ttl = \"soon\"\n"), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			if _, err := LoadConfig(path); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(path); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := LoadConfig(path); err != nil {
			t.Errorf("created config should parse: %v", err)
		}

		if err := CreateConfigFile(path); err == nil {
			t.Error("expected error when config already exists")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		t.Run("Valid", func(t *testing.T) {
			if err := validConfig().Validate(); err != nil {
				t.Errorf("expected valid config, got %v", err)
			}
		})

		t.Run("Missing Provider Credentials", func(t *testing.T) {
			config := validConfig()
			config.Spotify.ClientSecret = ""
			if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("Missing Redirect URI", func(t *testing.T) {
			config := validConfig()
			config.Spotify.RedirectURI = ""
			if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("Bearer Mode Requires Signing Secret", func(t *testing.T) {
			config := validConfig()
			config.Auth.SigningSecret = ""
			if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("Session Mode Requires Cookie Name", func(t *testing.T) {
			config := validConfig()
			config.Auth.Mode = AuthModeSession
			config.Auth.SessionCookie = ""
			if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("Unknown Mode", func(t *testing.T) {
			config := validConfig()
			config.Auth.Mode = "basic"
			if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("SpotifyConfig Map", func(t *testing.T) {
		config := validConfig()
		m := config.Spotify.Map()

		if m["client_id"] != "test_client_id" || m["client_secret"] != "test_client_secret" {
			t.Errorf("unexpected credentials map: %+v", m)
		}
		if m["redirect_uri"] != "http://localhost:8080/callback" {
			t.Errorf("unexpected redirect uri: %s", m["redirect_uri"])
		}
	})
}
