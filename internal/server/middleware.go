package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/djbeb/djbeb/internal/tokens"
	"golang.org/x/time/rate"
)

// contextKey is a type-safe key for request context values.
type contextKey string

var credentialContextKey = contextKey("credential")

// Credential is the resolved carrier for one request: the provider access
// token plus where it came from (signed bearer credential or server session).
type Credential struct {
	AccessToken  string
	RefreshToken string
	SessionID    string // set when resolved from the session cookie
	FromBearer   bool   // set when resolved from the Authorization header
}

// CredentialFromContext returns the resolved credential for the request, if any.
func CredentialFromContext(ctx context.Context) (*Credential, bool) {
	cred, ok := ctx.Value(credentialContextKey).(*Credential)
	return cred, ok && cred != nil && cred.AccessToken != ""
}

// ContextWithCredential injects a credential into the context. Used by tests
// and by the credential middleware.
func ContextWithCredential(ctx context.Context, cred *Credential) context.Context {
	return context.WithValue(ctx, credentialContextKey, cred)
}

// ResolveCredential returns middleware that extracts the request's credential
// and attaches it to the context without rejecting the request. A bearer
// credential in the Authorization header wins over the session cookie.
// Handlers decide how absence maps to a response, so input validation can
// precede the auth check where the contract requires it.
func ResolveCredential(store tokens.Store, issuer *tokens.Issuer, cookieName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cred := resolve(r, store, issuer, cookieName); cred != nil {
				r = r.WithContext(ContextWithCredential(r.Context(), cred))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolve(r *http.Request, store tokens.Store, issuer *tokens.Issuer, cookieName string) *Credential {
	if issuer != nil {
		if raw := bearerToken(r); raw != "" {
			decoded, err := issuer.Decode(raw)
			if err != nil {
				// Expired or tampered credentials fail closed.
				return nil
			}
			return &Credential{
				AccessToken:  decoded.AccessToken,
				RefreshToken: decoded.RefreshToken,
				FromBearer:   true,
			}
		}
	}

	if store != nil && cookieName != "" {
		cookie, err := r.Cookie(cookieName)
		if err != nil || cookie.Value == "" {
			return nil
		}
		tok, err := store.Get(r.Context(), cookie.Value)
		if err != nil || tok == nil {
			return nil
		}
		return &Credential{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			SessionID:    cookie.Value,
		}
	}

	return nil
}

// bearerToken extracts the raw credential from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Logging returns middleware that logs each request with method, path,
// status, and duration.
func Logging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration", time.Since(start),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Recover returns middleware that converts handler panics into 500 responses
// instead of tearing down the connection.
func Recover(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("handler panic", "path", r.URL.Path, "panic", rec)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORS returns middleware allowing the configured frontend origin with
// credentials, answering preflight requests directly.
func CORS(origin string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientLimiter pairs a limiter with its last access time so idle entries
// can be dropped.
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter applies a per-client token bucket keyed by remote address.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a limiter allowing r requests per second with the
// given burst per client.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     r,
		burst:    burst,
	}
}

// Middleware returns the rate limiting [Middleware], answering 429 when a
// client exceeds its budget.
func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(clientKey(r)) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[key]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastAccess = time.Now()

	// Opportunistic cleanup keeps the map bounded without a background loop.
	if len(rl.limiters) > 1024 {
		cutoff := time.Now().Add(-10 * time.Minute)
		for k, v := range rl.limiters {
			if v.lastAccess.Before(cutoff) {
				delete(rl.limiters, k)
			}
		}
	}

	return entry.limiter.Allow()
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
