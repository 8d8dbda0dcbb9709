package handler

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/contactdeck/be-contacts-admin/internal/apperr"
	"github.com/contactdeck/be-contacts-admin/internal/authz"
	"github.com/contactdeck/be-contacts-admin/internal/repository"
	"github.com/contactdeck/be-contacts-admin/pkg/token"
)

// AuthTokenHeader carries the bearer token on every authenticated request.
const AuthTokenHeader = "X-Auth-Token"

type ctxKey int

const (
	identityKey ctxKey = iota
	chatUserKey
)

// identityFrom returns the verified admin identity placed by adminAuth.
func identityFrom(ctx context.Context) (token.Identity, bool) {
	id, ok := ctx.Value(identityKey).(token.Identity)
	return id, ok
}

// chatUserFrom returns the verified chat account placed by chatAuth.
func chatUserFrom(ctx context.Context) (*repository.ChatUser, bool) {
	u, ok := ctx.Value(chatUserKey).(*repository.ChatUser)
	return u, ok
}

// corsMiddleware answers preflight requests before any auth or routing runs
// and stamps the CORS headers on every response.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+AuthTokenHeader)
		h.Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// timeoutMiddleware puts a deadline on the request context so no storage
// call can block past it. Expiry surfaces as a storage error, which the auth
// paths treat as a denial.
func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
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

func loggingMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(started)).
				Str("ip", clientIP(r)).
				Msg("request")
		})
	}
}

// adminAuth verifies the token header and stores the resolved identity in
// the request context. Missing and invalid tokens get the same response.
func (h *HTTPHandler) adminAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := h.auth.Authenticate(r.Context(), r.Header.Get(AuthTokenHeader))
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	}
}

// requireSuperadmin gates an already-authenticated route on the superadmin
// role.
func (h *HTTPHandler) requireSuperadmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identityFrom(r.Context())
		if !ok {
			writeError(w, apperr.Unauthorized("authentication required"))
			return
		}
		if err := authz.Authorize(authz.Role(id.Role), authz.RoleSuperadmin); err != nil {
			writeError(w, err)
			return
		}
		next(w, r)
	}
}

// chatAuth verifies a chat token and re-checks the ban flag.
func (h *HTTPHandler) chatAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.chat.Authenticate(r.Context(), r.Header.Get(AuthTokenHeader))
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), chatUserKey, user)))
	}
}

// clientIP resolves the caller's address, preferring the first entry of
// X-Forwarded-For when a proxy fills it in.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
