package handlers

import (
	"net/http"

	"github.com/bioespinhanews/apiserver/types"
	"github.com/go-chi/chi/v5"
)

type ActivationHandler struct {
	*Responder
	activations Activator
}

func NewActivationHandler(rs *Responder, activations Activator) *ActivationHandler {
	return &ActivationHandler{Responder: rs, activations: activations}
}

// ActivationRouter registers /activations routes on r.
func ActivationRouter(r chi.Router, h *ActivationHandler, mw *Middleware) {
	r.Use(mw.InjectSubject)
	r.With(mw.CanRequest(types.FeatureReadActivationToken)).Patch("/{token_id}", h.Activate)
}

func (h *ActivationHandler) Activate(w http.ResponseWriter, r *http.Request) {
	user, err := h.activations.Activate(r.Context(), chi.URLParam(r, "token_id"))
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, user)
}
