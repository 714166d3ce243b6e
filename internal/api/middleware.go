package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/logger"
	"github.com/erazemk/najdeno/internal/model"
)

const (
	traceIDHeader     = "X-Trace-ID"
	sessionCookieName = "session"
)

type contextKey string

const (
	actorKey  contextKey = "actor"
	claimsKey contextKey = "claims"
)

// withTraceID tags the request with a trace id (taken from the request
// header when present) and stores a logger carrying it in the context.
func (h *Handler) withTraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		l := h.logger.GetChildLogger()
		l.UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("trace_id", traceID)
		})

		w.Header().Set(traceIDHeader, traceID)
		next.ServeHTTP(w, r.WithContext(l.WithContext(r.Context())))
	})
}

// withLogging writes one access log line per request.
func (h *Handler) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		logger.FromRequest(r).Info().
			Str("method", r.Method).
			Str("uri", r.URL.RequestURI()).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Int("size", ww.BytesWritten()).
			Send()
	})
}

// withBodyLimit caps request bodies at the configured size.
func (h *Handler) withBodyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > h.maxBody {
			writeError(w, r, model.ErrPayloadTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
		next.ServeHTTP(w, r)
	})
}

// withSession resolves the session token, if any, to an actor. Requests
// without a usable session continue anonymously; each operation decides
// whether it needs an actor.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		actor, claims, err := h.accounts.Authenticate(ctx, token)
		switch {
		case err == nil:
			ctx = context.WithValue(ctx, actorKey, actor)
			ctx = context.WithValue(ctx, claimsKey, claims)
		case errors.Is(err, model.ErrUnauthenticated):
			logger.FromRequest(r).Debug().Err(err).Msg("ignoring unusable session")
			if auth.IsExpired(err) {
				clearSessionCookie(w, r)
			}
		default:
			writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionToken returns the bearer token or, failing that, the session cookie.
func sessionToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// ActorFrom returns the authenticated actor of the request, or nil.
func ActorFrom(ctx context.Context) *model.Actor {
	actor, _ := ctx.Value(actorKey).(*model.Actor)
	return actor
}

// ClaimsFrom returns the session claims of the request, or nil.
func ClaimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time, persistent bool) {
	c := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
	if persistent {
		c.Expires = expires
	}
	http.SetCookie(w, c)
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
