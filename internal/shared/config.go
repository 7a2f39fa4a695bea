package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// AuthMode selects how the service carries credentials across requests.
const (
	AuthModeBearer  = "bearer"  // signed credential handed to the client
	AuthModeSession = "session" // server-side session keyed by cookie
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Auth     AuthConfig     `toml:"auth"`
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Map converts the Spotify credentials into the map form consumed by the services package.
func (c SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_uri":  c.RedirectURI,
	}
}

// Duration wraps [time.Duration] so TOML values like "1h" decode directly.
type Duration struct {
	time.Duration
}

// MarshalText implements [encoding.TextMarshaler] so encoded config stays readable.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler] for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// AuthConfig controls the credential carrier strategy.
type AuthConfig struct {
	Mode          string   `toml:"mode"`           // "bearer" or "session"
	SigningSecret string   `toml:"signing_secret"` // HMAC secret for signed credentials
	CredentialTTL Duration `toml:"credential_ttl"` // validity window for signed credentials
	SessionCookie string   `toml:"session_cookie"` // cookie name for the session strategy
	SessionTTL    Duration `toml:"session_ttl"`    // idle timeout for server-side sessions
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	FrontendURL string `toml:"frontend_url"` // post-login redirect target and CORS origin
}

// Addr returns the host:port string the server binds to.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for the fields the server cannot run without.
func (c *Config) Validate() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret are required", ErrInvalidConfig)
	}
	if c.Spotify.RedirectURI == "" {
		return fmt.Errorf("%w: spotify redirect_uri is required", ErrInvalidConfig)
	}
	switch c.Auth.Mode {
	case AuthModeBearer:
		if c.Auth.SigningSecret == "" {
			return fmt.Errorf("%w: auth signing_secret is required in bearer mode", ErrInvalidConfig)
		}
	case AuthModeSession:
		if c.Auth.SessionCookie == "" {
			return fmt.Errorf("%w: auth session_cookie is required in session mode", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: auth mode must be %q or %q", ErrInvalidConfig, AuthModeBearer, AuthModeSession)
	}
	return nil
}
