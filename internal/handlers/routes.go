package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// API groups the /api/v1 handlers.
type API struct {
	Responder   *Responder
	Middleware  *Middleware
	Users       *UserHandler
	Sessions    *SessionHandler
	Activations *ActivationHandler
	Status      *StatusHandler
}

// Routes builds the /api/v1 router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.NotFound(a.Responder.NotFound)
	r.MethodNotAllowed(a.Responder.MethodNotAllowed)

	r.Get("/status", a.Status.Status)
	r.Get("/migrations", a.Status.ListMigrations)
	r.Post("/migrations", a.Status.RunMigrations)
	r.Get("/user", a.Users.Me)
	r.Route("/users", func(r chi.Router) {
		UserRouter(r, a.Users, a.Middleware)
	})
	r.Route("/sessions", func(r chi.Router) {
		SessionRouter(r, a.Sessions)
	})
	r.Route("/activations", func(r chi.Router) {
		ActivationRouter(r, a.Activations, a.Middleware)
	})
	return r
}
