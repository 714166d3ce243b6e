package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/erazemk/najdeno/internal/logger"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/service"
)

type loginResponse struct {
	Token     string      `json:"token"`
	User      *model.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
	Next      string      `json:"next"`
}

// register handles POST /api/auth/register.
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req service.Registration
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusCreated, user)
}

// login handles POST /api/auth/login. The token is returned in the body and
// set as the session cookie; remembered sessions get a persistent cookie.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req service.Credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Next == "" {
		req.Next = r.URL.Query().Get("next")
	}

	session, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			logger.FromRequest(r).Warn().Str("remote", r.RemoteAddr).Msg("login failed")
		}
		writeError(w, r, err)
		return
	}

	setSessionCookie(w, r, session.Token, session.ExpiresAt, req.Remember)

	jsonResponse(w, http.StatusOK, loginResponse{
		Token:     session.Token,
		User:      session.User,
		ExpiresAt: session.ExpiresAt,
		Next:      session.Next,
	})
}

// logout handles POST /api/auth/logout.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	if claims == nil {
		writeError(w, r, model.ErrUnauthenticated)
		return
	}

	if err := h.accounts.Logout(r.Context(), claims); err != nil {
		writeError(w, r, err)
		return
	}

	clearSessionCookie(w, r)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// me handles GET /api/auth/me.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.CurrentUser(r.Context(), ActorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}
