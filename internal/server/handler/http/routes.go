// Package http provides HTTP routing and middleware configuration
// for the ContactKeeper service.
package http

import (
	"net/http"
	"time"

	"github.com/atinyakov/ContactKeeper/internal/middleware"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves
// the ContactKeeper API under /api.
//
// Parameters:
//
//	authHandler    - handler for registration, login, refresh and profile endpoints
//	contactHandler - handler for the contact book
//	resolver       - maps bearer access tokens to users for protected routes
//	logger         - structured logger for request and authentication logging
//	requestTimeout - upper bound on the time a single request may take
//
// Routes:
//
//	POST   /api/register       → authHandler.Register
//	POST   /api/login          → authHandler.Login
//	POST   /api/refresh        → authHandler.Refresh
//	GET    /api/users/me       → authHandler.Me        (bearer)
//	PATCH  /api/users/me       → authHandler.UpdateMe  (bearer)
//	DELETE /api/users/me       → authHandler.DeleteMe  (bearer)
//	GET    /api/contacts       → contactHandler.List   (bearer)
//	POST   /api/contacts       → contactHandler.Create (bearer)
//	GET    /api/contacts/{id}  → contactHandler.Get    (bearer)
//	PUT    /api/contacts/{id}  → contactHandler.Update (bearer)
//	DELETE /api/contacts/{id}  → contactHandler.Delete (bearer)
func NewRouter(
	authHandler *AuthHandler,
	contactHandler *ContactHandler,
	resolver middleware.IdentityResolver,
	logger *zap.Logger,
	requestTimeout time.Duration,
) http.Handler {
	r := chi.NewRouter()

	secureHeaders := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'",
	})

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	if requestTimeout > 0 {
		r.Use(chiMiddleware.Timeout(requestTimeout))
	}
	r.Use(secureHeaders.Handler)

	// Bodies must be JSON; login additionally accepts the OAuth2 password form.
	r.Use(chiMiddleware.AllowContentType("application/json", "application/x-www-form-urlencoded"))

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)

		// Protected group: requires a valid access token
		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(resolver, logger))

			r.Get("/users/me", authHandler.Me)
			r.Patch("/users/me", authHandler.UpdateMe)
			r.Delete("/users/me", authHandler.DeleteMe)

			r.Get("/contacts", contactHandler.List)
			r.Post("/contacts", contactHandler.Create)
			r.Get("/contacts/{id}", contactHandler.Get)
			r.Put("/contacts/{id}", contactHandler.Update)
			r.Delete("/contacts/{id}", contactHandler.Delete)
		})
	})

	return r
}
