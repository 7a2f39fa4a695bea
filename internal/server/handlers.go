package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/djbeb/djbeb/internal/services"
	"github.com/djbeb/djbeb/internal/shared"
	"github.com/djbeb/djbeb/internal/tokens"
)

const stateCookieName = "djbeb_oauth_state"

// SpotifyHandler is the credential issuance boundary plus the proxy routes.
// It owns the login/callback/refresh lifecycle and forwards playback
// requests through the provider [services.Service].
type SpotifyHandler struct {
	service     services.Service
	store       tokens.Store
	issuer      *tokens.Issuer
	logger      *log.Logger
	mode        string
	frontendURL string
	cookieName  string
	sessionTTL  time.Duration
}

// SpotifyHandlerOpts contains the dependencies for a [SpotifyHandler].
type SpotifyHandlerOpts struct {
	Service     services.Service
	Store       tokens.Store   // required in session mode
	Issuer      *tokens.Issuer // required in bearer mode
	Logger      *log.Logger
	Mode        string
	FrontendURL string
	CookieName  string
	SessionTTL  time.Duration
}

// NewSpotifyHandler creates the boundary handler from its dependencies.
func NewSpotifyHandler(opts SpotifyHandlerOpts) *SpotifyHandler {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &SpotifyHandler{
		service:     opts.Service,
		store:       opts.Store,
		issuer:      opts.Issuer,
		logger:      opts.Logger,
		mode:        opts.Mode,
		frontendURL: opts.FrontendURL,
		cookieName:  opts.CookieName,
		sessionTTL:  opts.SessionTTL,
	}
}

// Register wires all boundary and proxy routes into the router.
func (h *SpotifyHandler) Register(r Router) {
	r.Handle(http.MethodGet, "/health", http.HandlerFunc(h.Health))
	r.Handle(http.MethodGet, "/login", http.HandlerFunc(h.Login))
	r.Handle(http.MethodGet, "/callback", http.HandlerFunc(h.Callback))
	r.Handle(http.MethodPost, "/refresh", http.HandlerFunc(h.Refresh))
	r.Handle(http.MethodGet, "/token", http.HandlerFunc(h.Token))
	r.Handle(http.MethodPost, "/logout", http.HandlerFunc(h.Logout))
	r.Handle(http.MethodGet, "/playlists", http.HandlerFunc(h.Playlists))
	r.Handle(http.MethodGet, "/playlist/{id}", http.HandlerFunc(h.PlaylistTracks))
	r.Handle(http.MethodPut, "/play", http.HandlerFunc(h.Play))
	r.Handle(http.MethodPost, "/pause", http.HandlerFunc(h.Pause))
	r.Handle(http.MethodPost, "/resume", http.HandlerFunc(h.Resume))
	r.Handle(http.MethodPut, "/seek", http.HandlerFunc(h.Seek))
}

// Health reports service status.
func (h *SpotifyHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"mode":   h.mode,
	})
}

// Login redirects the browser to the provider's consent page with a fresh
// state nonce held in a short-lived cookie.
func (h *SpotifyHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := shared.GenerateID()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
	})

	http.Redirect(w, r, h.service.AuthorizationURL(state), http.StatusFound)
}

// Callback exchanges the authorization code, writes the token pair into the
// configured carrier, and redirects the browser to the frontend.
func (h *SpotifyHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		respondError(w, h.logger, fmt.Errorf("%w: provider returned %q: %s",
			shared.ErrExchange, errParam, query.Get("error_description")))
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != query.Get("state") {
		respondError(w, h.logger, shared.ErrInvalidState)
		return
	}
	// The nonce is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/", MaxAge: -1, HttpOnly: true})

	code := query.Get("code")
	if code == "" {
		respondError(w, h.logger, fmt.Errorf("%w: no authorization code in callback", shared.ErrExchange))
		return
	}

	tok, err := h.service.Exchange(r.Context(), code)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	redirect := h.frontendURL

	switch h.mode {
	case shared.AuthModeSession:
		id := tokens.NewSessionID()
		if err := h.store.Set(r.Context(), id, tok); err != nil {
			respondError(w, h.logger, err)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     h.cookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(h.sessionTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	case shared.AuthModeBearer:
		signed, err := h.issuer.Issue(tok)
		if err != nil {
			respondError(w, h.logger, err)
			return
		}
		redirect = withTokenParam(h.frontendURL, signed)
	}

	http.Redirect(w, r, redirect, http.StatusFound)
}

// withTokenParam appends the signed credential as a token query parameter.
func withTokenParam(frontendURL, signed string) string {
	u, err := url.Parse(frontendURL)
	if err != nil {
		return frontendURL
	}
	q := u.Query()
	q.Set("token", signed)
	u.RawQuery = q.Encode()
	return u.String()
}

// Refresh trades the carried refresh token for a new access token. In bearer
// mode the response carries a re-minted signed credential; in session mode
// the stored pair is replaced in place. A failed refresh leaves any existing
// valid credential untouched.
func (h *SpotifyHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if raw := bearerToken(r); raw != "" && h.issuer != nil {
		cred, err := h.issuer.DecodeExpired(raw)
		if err != nil {
			respondError(w, h.logger, err)
			return
		}
		if cred.RefreshToken == "" {
			respondError(w, h.logger, fmt.Errorf("%w: credential carries no refresh token", shared.ErrRefresh))
			return
		}

		tok, err := h.service.Refresh(r.Context(), cred.RefreshToken)
		if err != nil {
			respondError(w, h.logger, err)
			return
		}

		signed, err := h.issuer.Renew(raw, tok)
		if err != nil {
			respondError(w, h.logger, err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"jwtToken": signed})
		return
	}

	cred, ok := CredentialFromContext(r.Context())
	if !ok || cred.SessionID == "" {
		respondError(w, h.logger, shared.ErrMissingCredential)
		return
	}
	if cred.RefreshToken == "" {
		respondError(w, h.logger, fmt.Errorf("%w: session carries no refresh token", shared.ErrRefresh))
		return
	}

	tok, err := h.service.Refresh(r.Context(), cred.RefreshToken)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.store.Set(r.Context(), cred.SessionID, tok); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"access_token": tok.AccessToken})
}

// Token exposes the session's access token to the frontend (for the
// provider's browser playback SDK).
func (h *SpotifyHandler) Token(w http.ResponseWriter, r *http.Request) {
	cred, ok := CredentialFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, shared.ErrMissingCredential)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"access_token": cred.AccessToken})
}

// Logout destroys the server-side session, if any, and expires the cookie.
// Bearer credentials cannot be revoked server-side; they lapse with exp.
func (h *SpotifyHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cred, ok := CredentialFromContext(r.Context()); ok && cred.SessionID != "" {
		if err := h.store.Delete(r.Context(), cred.SessionID); err != nil {
			respondError(w, h.logger, err)
			return
		}
	}

	if h.cookieName != "" {
		http.SetCookie(w, &http.Cookie{Name: h.cookieName, Path: "/", MaxAge: -1, HttpOnly: true})
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out."})
}

// requireCredential resolves the request credential or answers 401. No
// provider call happens for an unauthenticated request.
func (h *SpotifyHandler) requireCredential(w http.ResponseWriter, r *http.Request) (*Credential, bool) {
	cred, ok := CredentialFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, shared.ErrMissingCredential)
		return nil, false
	}
	return cred, true
}

// Playlists relays the provider's playlist paging JSON.
func (h *SpotifyHandler) Playlists(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.requireCredential(w, r)
	if !ok {
		return
	}

	body, err := h.service.Playlists(r.Context(), cred.AccessToken)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondRaw(w, http.StatusOK, body)
}

// PlaylistTracks relays a playlist's track JSON unmodified.
func (h *SpotifyHandler) PlaylistTracks(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.requireCredential(w, r)
	if !ok {
		return
	}

	body, err := h.service.PlaylistTracks(r.Context(), cred.AccessToken, r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondRaw(w, http.StatusOK, body)
}

// Play validates the playback request before looking at the credential, so
// a malformed body answers 400 regardless of auth state.
func (h *SpotifyHandler) Play(w http.ResponseWriter, r *http.Request) {
	var req services.PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: malformed JSON body: %v", shared.ErrInvalidInput, err))
		return
	}
	if req.TrackID == "" || req.DeviceID == "" || req.PlaylistID == "" {
		respondError(w, h.logger, fmt.Errorf("%w: trackId, deviceId, and playlistId are required", shared.ErrInvalidInput))
		return
	}

	cred, ok := h.requireCredential(w, r)
	if !ok {
		return
	}

	if err := h.service.Play(r.Context(), cred.AccessToken, req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Track playing from playlist."})
}

// Pause pauses playback on the active device.
func (h *SpotifyHandler) Pause(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.requireCredential(w, r)
	if !ok {
		return
	}

	if err := h.service.Pause(r.Context(), cred.AccessToken); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Playback paused."})
}

// Resume resumes playback on the device named by the device_id query
// parameter.
func (h *SpotifyHandler) Resume(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.requireCredential(w, r)
	if !ok {
		return
	}

	if err := h.service.Resume(r.Context(), cred.AccessToken, r.URL.Query().Get("device_id")); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondText(w, http.StatusOK, "Playback resumed.")
}

// Seek moves the playback position.
func (h *SpotifyHandler) Seek(w http.ResponseWriter, r *http.Request) {
	var req services.SeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: malformed JSON body: %v", shared.ErrInvalidInput, err))
		return
	}

	cred, ok := h.requireCredential(w, r)
	if !ok {
		return
	}

	if err := h.service.Seek(r.Context(), cred.AccessToken, req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Playback position updated."})
}
