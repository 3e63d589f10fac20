package handlers

import (
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/health", h.HealthHandler)

			r.Route("/games", func(r chi.Router) {
				r.Post("/", h.CreateGame)
				r.Get("/", h.ListGames)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetGame)
					r.Put("/", h.UpdateGame)
					r.Delete("/", h.DeleteGame)
					r.Post("/members", h.AddMember)

					r.Post("/messages", h.SendMessage)
					r.Get("/messages", h.ListMessages)
					r.Delete("/messages/{messageId}", h.DeleteMessage)
				})
			})
		})
	})
}

// InitAuth configures HS256 token verification with secret.
func (h *Handler) InitAuth(secret string) {
	h.tokenAuth = jwtauth.New("HS256", []byte(secret), nil)
}
