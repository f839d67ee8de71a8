package handlers

import (
	"context"
	"net/http"

	"github.com/bioespinhanews/apiserver/internal/authz"
	"github.com/bioespinhanews/apiserver/internal/services"
	"github.com/bioespinhanews/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// UserManager is the user registry used by the handlers.
type UserManager interface {
	Create(ctx context.Context, input services.NewUser) (types.User, error)
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Update(ctx context.Context, username string, patch types.UserPatch) (types.User, error)
}

// Activator issues, mails and redeems activation tokens.
type Activator interface {
	Create(ctx context.Context, userID string) (types.ActivationToken, error)
	SendEmailToUser(ctx context.Context, user types.User, token types.ActivationToken) error
	Activate(ctx context.Context, tokenID string) (types.User, error)
}

// SessionManager issues and manages sessions.
type SessionManager interface {
	Create(ctx context.Context, userID string) (types.Session, error)
	Validate(ctx context.Context, token string) (types.Session, error)
	Renew(ctx context.Context, sessionID string) (types.Session, error)
	Revoke(ctx context.Context, sessionID string) (types.Session, error)
}

// UserHandler serves registration, profiles and the current user.
type UserHandler struct {
	*Responder
	users       UserManager
	activations Activator
	sessions    SessionManager
}

func NewUserHandler(rs *Responder, users UserManager, activations Activator, sessions SessionManager) *UserHandler {
	return &UserHandler{Responder: rs, users: users, activations: activations, sessions: sessions}
}

// UserRouter registers /users routes on r.
func UserRouter(r chi.Router, h *UserHandler, mw *Middleware) {
	r.Use(mw.InjectSubject)
	r.With(mw.CanRequest(types.FeatureCreateUser)).Post("/", h.Create)
	r.Route("/{username}", func(r chi.Router) {
		r.With(mw.CanRequest(types.FeatureReadUser)).Get("/", h.Get)
		r.With(mw.CanRequest(types.FeatureEditUser)).Patch("/", h.Patch)
	})
}

// Create registers a user and mails the activation link.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.NewUser
	if err := decodeJSON(r, &input); err != nil {
		h.Error(w, r, err)
		return
	}

	user, err := h.users.Create(r.Context(), input)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	token, err := h.activations.Create(r.Context(), user.ID)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	if err := h.activations.SendEmailToUser(r.Context(), user, token); err != nil {
		h.Error(w, r, err)
		return
	}

	h.JSON(w, http.StatusCreated, user)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, user)
}

// Patch updates a profile. Without edit:user:others a subject may only
// edit itself.
func (h *UserHandler) Patch(w http.ResponseWriter, r *http.Request) {
	target, err := h.users.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.Error(w, r, err)
		return
	}
	if err := authz.Require(SubjectFromContext(r.Context()), types.FeatureEditUser, &target); err != nil {
		h.Error(w, r, err)
		return
	}

	var patch types.UserPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.Error(w, r, err)
		return
	}
	updated, err := h.users.Update(r.Context(), target.Username, patch)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, updated)
}

// Me validates and renews the caller's session and returns its user.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Validate(r.Context(), sessionToken(r))
	if err != nil {
		h.Error(w, r, err)
		return
	}
	renewed, err := h.sessions.Renew(r.Context(), session.ID)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	user, err := sessionUser(r.Context(), h.users, renewed.UserID)
	if err != nil {
		h.Error(w, r, err)
		return
	}

	h.SetSessionCookie(w, renewed.Token)
	w.Header().Set("Cache-Control", "no-store, no-cache, max-age=0, must-revalidate")
	h.JSON(w, http.StatusOK, user)
}
