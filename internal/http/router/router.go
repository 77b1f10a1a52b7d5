// Package router arma el árbol de rutas de la API.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wayfarerhq/wayfarer/internal/cache"
	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
	"github.com/wayfarerhq/wayfarer/internal/http/controllers"
	httperrors "github.com/wayfarerhq/wayfarer/internal/http/errors"
	"github.com/wayfarerhq/wayfarer/internal/http/middlewares"
	jwtx "github.com/wayfarerhq/wayfarer/internal/jwt"
	"github.com/wayfarerhq/wayfarer/internal/session"
)

// Permisos administrativos exigidos por el gate.
const (
	PermManageUsers = "users:manage"
	PermManageRoles = "roles:manage"
)

// Deps agrupa todo lo que el router necesita montar.
type Deps struct {
	Store    repository.Store
	Cache    *cache.Guarded
	Issuer   *jwtx.Issuer
	Sessions *session.Service
	Gate     *middlewares.Gate

	Auth     *controllers.AuthController
	Password *controllers.PasswordController
	Session  *controllers.SessionController
	RBAC     *controllers.RBACController
	Users    *controllers.UsersController
	Health   *controllers.HealthController

	CORSOrigins []string

	// PublicRateLimit limita requests por IP en los endpoints públicos
	// de auth. 0 deshabilita el freno.
	PublicRateLimit int64
}

// New construye el router chi completo.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middlewares.WithRequestID())
	r.Use(middlewares.WithLogging())
	r.Use(middlewares.WithRecover())
	r.Use(middlewares.WithCORS(d.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httperrors.WriteError(w, req, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httperrors.WriteError(w, req, httperrors.ErrMethodNotAllowed)
	})

	r.Get("/healthz", d.Health.Live)
	r.Get("/readyz", d.Health.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	requireAuth := middlewares.WithAuth(d.Issuer, d.Sessions, d.Store)

	// Endpoints públicos de autenticación, con freno por IP.
	r.Route("/auth", func(r chi.Router) {
		if d.PublicRateLimit > 0 {
			r.Use(middlewares.WithRateLimit(d.Cache, d.PublicRateLimit, time.Minute))
		}

		r.Post("/register", d.Auth.Register)
		r.Post("/login", d.Auth.Login)
		r.Post("/oauth/{provider}", d.Auth.LoginOAuth)
		r.Post("/refresh", d.Auth.Refresh)
		r.Post("/revoke", d.Auth.RevokeToken)
		r.Post("/verify-email", d.Auth.VerifyEmail)
		r.Post("/resend-verification", d.Auth.ResendVerification)
		r.Post("/password/forgot", d.Password.Forgot)
		r.Post("/password/reset", d.Password.Reset)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout", d.Auth.Logout)
		})
	})

	// Endpoints del usuario autenticado.
	r.Route("/me", func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/password", d.Password.Change)
		r.Get("/sessions", d.Session.List)
		r.Delete("/sessions", d.Session.RevokeAll)
		r.Delete("/sessions/{id}", d.Session.Revoke)
		r.Get("/tokens", d.Auth.ListTokens)
	})

	// Administración, detrás del gate de permisos.
	r.Route("/admin", func(r chi.Router) {
		r.Use(requireAuth)

		r.Group(func(r chi.Router) {
			r.Use(d.Gate.Require(PermManageRoles))

			r.Get("/roles", d.RBAC.ListRoles)
			r.Post("/roles", d.RBAC.CreateRole)
			r.Get("/roles/{id}", d.RBAC.GetRole)
			r.Put("/roles/{id}", d.RBAC.UpdateRole)
			r.Delete("/roles/{id}", d.RBAC.DeleteRole)
			r.Post("/roles/{id}/permissions", d.RBAC.AssignPermissions)
			r.Delete("/roles/{id}/permissions/{permID}", d.RBAC.RemovePermission)

			r.Get("/permissions", d.RBAC.ListPermissions)
			r.Post("/permissions", d.RBAC.CreatePermission)
			r.Post("/permissions/{id}/deprecate", d.RBAC.DeprecatePermission)
			r.Delete("/permissions/{id}", d.RBAC.DeletePermission)
		})

		r.Group(func(r chi.Router) {
			r.Use(d.Gate.Require(PermManageUsers))

			r.Get("/users/{id}", d.Users.Get)
			r.Patch("/users/{id}/active", d.Users.SetActive)
			r.Delete("/users/{id}", d.Users.Delete)
		})
	})

	return r
}
