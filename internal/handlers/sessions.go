package handlers

import (
	"context"
	"net/http"

	"github.com/bioespinhanews/apiserver/internal/authz"
	"github.com/bioespinhanews/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// Authenticator verifies login credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, secret string) (types.User, error)
}

// SessionHandler serves login and logout.
type SessionHandler struct {
	*Responder
	auth     Authenticator
	sessions SessionManager
}

func NewSessionHandler(rs *Responder, auth Authenticator, sessions SessionManager) *SessionHandler {
	return &SessionHandler{Responder: rs, auth: auth, sessions: sessions}
}

// SessionRouter registers /sessions routes on r. Both routes read the cookie
// themselves, so a stale cookie never blocks a new login.
func SessionRouter(r chi.Router, h *SessionHandler) {
	r.Post("/", h.Create)
	r.Delete("/", h.Delete)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Create logs a user in. Accounts that have not been activated hold no
// create:session feature and are refused.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Error(w, r, err)
		return
	}

	user, err := h.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	if err := authz.Require(authz.Authenticated(user), types.FeatureCreateSession, nil); err != nil {
		h.Error(w, r, err)
		return
	}

	session, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.SetSessionCookie(w, session.Token)
	h.JSON(w, http.StatusCreated, session)
}

// Delete revokes the caller's session and clears the cookie.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Validate(r.Context(), sessionToken(r))
	if err != nil {
		h.Error(w, r, err)
		return
	}
	revoked, err := h.sessions.Revoke(r.Context(), session.ID)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.ClearSessionCookie(w)
	h.JSON(w, http.StatusOK, revoked)
}
