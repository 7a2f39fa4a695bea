package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Credential lifecycle errors
	ErrMissingCredential = fmt.Errorf("missing credential")
	ErrInvalidCredential = fmt.Errorf("invalid credential")
	ErrExchange          = fmt.Errorf("authorization code exchange failed")
	ErrRefresh           = fmt.Errorf("token refresh failed")
	ErrInvalidState      = fmt.Errorf("invalid state parameter")

	// Provider errors, classified so callers can distinguish
	// "re-authenticate" from "open the app on a device" from "retry later"
	ErrUnauthorized   = fmt.Errorf("provider rejected access token")
	ErrNoActiveDevice = fmt.Errorf("no active playback device")
	ErrRateLimited    = fmt.Errorf("provider rate limit exceeded")
	ErrUpstream       = fmt.Errorf("provider request failed")

	// Input validation errors
	ErrInvalidInput = fmt.Errorf("invalid input")
)
