package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/djbeb/djbeb/internal/shared"
)

// errorKind is the machine-readable code the frontend switches on.
type errorKind struct {
	status  int
	code    string
	message string
}

// kindOf maps the error taxonomy onto HTTP statuses and safe messages.
// Provider internals stay in the log sink; response bodies carry only the
// classification.
func kindOf(err error) errorKind {
	switch {
	case errors.Is(err, shared.ErrMissingCredential):
		return errorKind{http.StatusUnauthorized, "missing_credential", "You must authenticate first."}
	case errors.Is(err, shared.ErrInvalidCredential):
		return errorKind{http.StatusUnauthorized, "invalid_credential", "Credential is invalid or expired."}
	case errors.Is(err, shared.ErrUnauthorized):
		return errorKind{http.StatusUnauthorized, "unauthorized", "Access token rejected; re-authenticate or refresh."}
	case errors.Is(err, shared.ErrExchange):
		return errorKind{http.StatusUnauthorized, "exchange_failed", "Authorization code exchange failed; log in again."}
	case errors.Is(err, shared.ErrRefresh):
		return errorKind{http.StatusUnauthorized, "refresh_failed", "Token refresh failed; log in again."}
	case errors.Is(err, shared.ErrInvalidState):
		return errorKind{http.StatusBadRequest, "invalid_state", "Invalid state parameter."}
	case errors.Is(err, shared.ErrInvalidInput):
		return errorKind{http.StatusBadRequest, "invalid_input", "Missing or invalid request fields."}
	case errors.Is(err, shared.ErrNoActiveDevice):
		return errorKind{http.StatusNotFound, "no_active_device", "No active playback device; open the app on a device."}
	case errors.Is(err, shared.ErrRateLimited):
		return errorKind{http.StatusTooManyRequests, "rate_limited", "Provider rate limit exceeded; retry later."}
	case errors.Is(err, shared.ErrUpstream):
		return errorKind{http.StatusBadGateway, "upstream_error", "Provider request failed; safe to retry."}
	default:
		return errorKind{http.StatusInternalServerError, "internal_error", "Internal server error."}
	}
}

// respondJSON writes a JSON body with the given status.
func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respondRaw writes a provider JSON body through unmodified.
func respondRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// respondText writes a plain text body.
func respondText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}

// respondError logs the full error and writes the mapped status with a
// structured, provider-internal-free message.
func respondError(w http.ResponseWriter, logger *log.Logger, err error) {
	kind := kindOf(err)
	logger.Error("request failed", "code", kind.code, "error", err)
	respondJSON(w, kind.status, map[string]string{
		"error":   kind.code,
		"message": kind.message,
	})
}
