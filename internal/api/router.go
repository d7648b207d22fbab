package api

import (
	"net/http"

	mw "github.com/fashionvista/fashionvista/internal/api/middleware"
	"github.com/fashionvista/fashionvista/internal/api/response"
	"github.com/fashionvista/fashionvista/pkg/models"
	"github.com/go-chi/chi/v5"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	SubmitHandler  http.HandlerFunc
	CurrentHandler http.HandlerFunc

	LoginHandler   http.HandlerFunc
	LogoutHandler  http.HandlerFunc
	SessionHandler http.HandlerFunc

	ListAnalysesHandler http.HandlerFunc
	GetAnalysisHandler  http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Session-scoped routes, identified by X-Session-ID
	r.Group(func(r chi.Router) {
		r.Use(mw.Session)

		r.With(deps.RateLimit.Limit).Post("/api/v1/analyze", orNotImplemented(deps.SubmitHandler))
		r.Get("/api/v1/analyze", orNotImplemented(deps.CurrentHandler))

		r.Post("/api/v1/auth/login", orNotImplemented(deps.LoginHandler))
		r.Post("/api/v1/auth/logout", orNotImplemented(deps.LogoutHandler))
		r.Get("/api/v1/auth/session", orNotImplemented(deps.SessionHandler))
	})

	// API key routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeHistory))

			r.Get("/api/v1/analyses", orNotImplemented(deps.ListAnalysesHandler))
			r.Get("/api/v1/analyses/{analysisID}", orNotImplemented(deps.GetAnalysisHandler))
		})

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeAdmin))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
