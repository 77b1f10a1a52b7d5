// Package metrics define los contadores Prometheus del dominio de
// autenticación. Las métricas HTTP genéricas viven en el middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Logins cuenta intentos de login por resultado.
	// result: success | invalid_credentials | locked | inactive | error
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfarer",
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})

	// OAuthLogins cuenta logins OAuth por provider y resultado.
	OAuthLogins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfarer",
		Subsystem: "auth",
		Name:      "oauth_logins_total",
		Help:      "OAuth login attempts by provider and result.",
	}, []string{"provider", "result"})

	// Registrations cuenta registros exitosos.
	Registrations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wayfarer",
		Subsystem: "auth",
		Name:      "registrations_total",
		Help:      "Successful user registrations.",
	})

	// TokenRefreshes cuenta rotaciones de refresh token por resultado.
	// result: success | invalid | revoked | expired
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfarer",
		Subsystem: "auth",
		Name:      "token_refreshes_total",
		Help:      "Refresh token rotations by result.",
	}, []string{"result"})

	// Lockouts cuenta bloqueos aplicados por fallos de login.
	Lockouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wayfarer",
		Subsystem: "auth",
		Name:      "lockouts_total",
		Help:      "Account lockouts triggered by failed logins.",
	})

	// PermissionChecks cuenta decisiones del gate de autorización.
	PermissionChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfarer",
		Subsystem: "rbac",
		Name:      "permission_checks_total",
		Help:      "Authorization gate decisions.",
	}, []string{"allowed"})

	// CacheOutcomes cuenta hits y misses de las keys calientes.
	CacheOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfarer",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by keyspace and outcome.",
	}, []string{"keyspace", "outcome"})
)
