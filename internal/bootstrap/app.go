// Package bootstrap construye el grafo de dependencias de la aplicación.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/wayfarerhq/wayfarer/internal/audit"
	"github.com/wayfarerhq/wayfarer/internal/cache"
	"github.com/wayfarerhq/wayfarer/internal/config"
	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
	"github.com/wayfarerhq/wayfarer/internal/email"
	"github.com/wayfarerhq/wayfarer/internal/http/controllers"
	"github.com/wayfarerhq/wayfarer/internal/http/middlewares"
	"github.com/wayfarerhq/wayfarer/internal/http/router"
	adminsvc "github.com/wayfarerhq/wayfarer/internal/http/services/admin"
	authsvc "github.com/wayfarerhq/wayfarer/internal/http/services/auth"
	passwordsvc "github.com/wayfarerhq/wayfarer/internal/http/services/password"
	sessionsvc "github.com/wayfarerhq/wayfarer/internal/http/services/session"
	jwtx "github.com/wayfarerhq/wayfarer/internal/jwt"
	"github.com/wayfarerhq/wayfarer/internal/oauth"
	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
	"github.com/wayfarerhq/wayfarer/internal/rate"
	"github.com/wayfarerhq/wayfarer/internal/rbac"
	"github.com/wayfarerhq/wayfarer/internal/session"
	"github.com/wayfarerhq/wayfarer/internal/store/pg"
)

// App es la aplicación armada y lista para servir.
type App struct {
	Handler  http.Handler
	Store    repository.Store
	Sessions *session.Service

	cacheClient cache.Client
}

// Build conecta todas las piezas a partir de la configuración.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := pg.New(ctx, pg.Config{
		DSN:      cfg.Storage.DSN,
		MaxConns: int32(cfg.Storage.Postgres.MaxConns),
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: store: %w", err)
	}

	cacheClient, err := cache.New(cache.Config{
		Kind:     cfg.Cache.Kind,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		// El cache es opcional: la app arranca degradada sin él.
		logger.L().Warn("cache unavailable, running degraded", logger.Err(err))
		cacheClient = nil
	}
	guarded := cache.NewGuarded(cacheClient)

	issuer, err := jwtx.NewIssuer(cfg.JWT.Issuer,
		[]byte(cfg.JWT.AccessSecret), []byte(cfg.JWT.RefreshSecret),
		cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("bootstrap: issuer: %w", err)
	}

	sessions := session.New(store, guarded, issuer, cfg.SessionTTL())
	lockout := rate.NewLockout(guarded)
	resolver := rbac.NewResolver(store, guarded)
	manager := rbac.NewManager(store, resolver)
	auditLog := audit.NewLogger()
	gate := middlewares.NewGate(resolver, auditLog)

	var sender email.Sender
	if cfg.SMTP.Host != "" {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			FromEmail: cfg.SMTP.From,
			TLSMode:   cfg.SMTP.TLS,
		})
	}
	mailer := email.NewService(sender, cfg.Email.BaseURL)

	providers := oauth.NewRegistry(
		oauth.NewGoogle(),
		oauth.NewFacebook(),
		oauth.NewDiscord(),
	)

	authService := authsvc.NewService(authsvc.Deps{
		Store:     store,
		Sessions:  sessions,
		Issuer:    issuer,
		Lockout:   lockout,
		Email:     mailer,
		Providers: providers,
	})
	passwordService := passwordsvc.NewService(passwordsvc.Deps{
		Store:    store,
		Cache:    guarded,
		Sessions: sessions,
		Email:    mailer,
	})
	sessionService := sessionsvc.NewService(store, sessions)
	adminUsers := adminsvc.NewUserService(store, sessions)

	handler := router.New(router.Deps{
		Store:    store,
		Cache:    guarded,
		Issuer:   issuer,
		Sessions: sessions,
		Gate:     gate,

		Auth:     controllers.NewAuthController(authService),
		Password: controllers.NewPasswordController(passwordService),
		Session:  controllers.NewSessionController(sessionService),
		RBAC:     controllers.NewRBACController(manager),
		Users:    controllers.NewUsersController(adminUsers),
		Health:   controllers.NewHealthController(store, cacheClient),

		CORSOrigins:     cfg.Server.CORSAllowedOrigins,
		PublicRateLimit: cfg.Rate.PublicPerMinute,
	})

	return &App{
		Handler:     handler,
		Store:       store,
		Sessions:    sessions,
		cacheClient: cacheClient,
	}, nil
}

// Close libera las conexiones de la aplicación.
func (a *App) Close() {
	a.Store.Close()
	if a.cacheClient != nil {
		_ = a.cacheClient.Close()
	}
}
