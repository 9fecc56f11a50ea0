// Package router sets up all HTTP routes and middleware chains for the
// cmsmini API. Reads are public unless they expose unpublished content or
// account data; every write requires a bearer token and an access decision
// inside the handler.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cmsmini/internal/handlers"
	"cmsmini/internal/middleware"
)

// Handlers bundles the handler groups mounted under /api.
type Handlers struct {
	Auth       *handlers.Auth
	Posts      *handlers.Posts
	Categories *handlers.Categories
	Users      *handlers.Users
}

// New creates and returns the configured Chi router. limiter throttles the
// credential endpoints.
func New(verifier middleware.Verifier, limiter *middleware.RateLimiter, h Handlers) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(middleware.SecureHeaders)

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Get("/health", healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(verifier))

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(limiter.Middleware)
				r.Post("/register", h.Auth.Register)
				r.Post("/login", h.Auth.Login)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/me", h.Auth.Me)
				r.Put("/profile", h.Auth.UpdateProfile)
				r.Put("/change-password", h.Auth.ChangePassword)
				r.Post("/logout", h.Auth.Logout)
				r.Post("/2fa/setup", h.Auth.TwoFASetup)
				r.Post("/2fa/enable", h.Auth.TwoFAEnable)
			})
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", h.Posts.List)
			r.Get("/stats/overview", h.Posts.Stats)
			r.Get("/slug/{slug}", h.Posts.BySlug)
			r.Get("/{id}", h.Posts.ByID)
			r.Post("/", h.Posts.Create)
			r.Put("/{id}", h.Posts.Update)
			r.Delete("/{id}", h.Posts.Delete)
			r.Post("/{id}/like", h.Posts.Like)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.Categories.List)
			r.Get("/all", h.Categories.All)
			r.Get("/tree", h.Categories.Tree)
			r.Get("/tree/structure", h.Categories.Tree)
			r.Get("/{id}", h.Categories.Get)
			r.Get("/{id}/children", h.Categories.Children)
			r.Post("/", h.Categories.Create)
			r.Put("/{id}", h.Categories.Update)
			r.Delete("/{id}", h.Categories.Delete)
		})

		// Account data is never public.
		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/", h.Users.List)
			r.Get("/stats/overview", h.Users.Stats)
			r.Get("/{id}", h.Users.Get)
			r.Put("/{id}", h.Users.Update)
			r.Delete("/{id}", h.Users.Delete)
			r.Post("/{id}/reset-2fa", h.Users.ResetTOTP)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
