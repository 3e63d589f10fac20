package routes

import (
	"github.com/avvvet/game-services/internal/socketsvc/handlers"
	"github.com/avvvet/game-services/internal/socketsvc/ws"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

// SetRoutes mounts the socket endpoints. Tokens are read from the
// Authorization header or the "jwt" cookie, since browsers cannot set
// headers on websocket handshakes.
func SetRoutes(r chi.Router, s *ws.Ws, tokenAuth *jwtauth.JWTAuth, port string) {
	h := handlers.NewHandler(s, port)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/ws", h.HandleWebSocket)
		})
	})
}

func NewAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}
