package auth

import (
	"context"
	"strings"

	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
	"github.com/wayfarerhq/wayfarer/internal/metrics"
	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
)

// LoginOAuth autentica contra un provider externo. Si el par
// (provider, subject) no existe se crea la cuenta en el momento; el email
// verificado por el provider se acepta como verificado acá.
func (s *Service) LoginOAuth(ctx context.Context, provider, accessToken string, meta LoginMeta) (*Result, error) {
	log := logger.From(ctx).With(
		logger.Component("auth"),
		logger.Op("LoginOAuth"),
		logger.Provider(provider),
	)

	verifier, ok := s.deps.Providers.Lookup(provider)
	if !ok {
		return nil, ErrUnsupportedProvider
	}

	identity, err := verifier.Verify(ctx, accessToken)
	if err != nil {
		metrics.OAuthLogins.WithLabelValues(provider, "rejected").Inc()
		return nil, ErrInvalidCredentials
	}

	user, err := s.deps.Store.Users().GetByOAuth(ctx, provider, identity.Subject)
	if repository.IsNotFound(err) {
		user, err = s.registerOAuthUser(ctx, identity.Provider, identity.Subject, identity.Email, identity.Name, identity.Picture, identity.EmailVerified)
	}
	if err != nil {
		metrics.OAuthLogins.WithLabelValues(provider, "error").Inc()
		return nil, err
	}

	if !user.Active {
		metrics.OAuthLogins.WithLabelValues(provider, "inactive").Inc()
		return nil, ErrAccountInactive
	}

	role, err := s.deps.Store.Roles().GetByID(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}

	metrics.OAuthLogins.WithLabelValues(provider, "success").Inc()
	log.Info("oauth login ok", logger.UserID(user.ID))
	return s.startSession(ctx, user, role.Name, meta)
}

// registerOAuthUser crea la cuenta para una identidad externa nueva.
// No hay password: el hash queda nulo y el login por password nunca pasa.
func (s *Service) registerOAuthUser(ctx context.Context, provider, subject, emailAddr, name, picture string, emailVerified bool) (*repository.User, error) {
	role, err := s.deps.Store.Roles().GetByName(ctx, DefaultRole)
	if err != nil {
		return nil, err
	}

	username := oauthUsername(name, emailAddr, subject)

	var user *repository.User
	err = s.deps.Store.WithinTx(ctx, func(ctx context.Context) error {
		var txErr error
		user, txErr = s.deps.Store.Users().Create(ctx, repository.CreateUserInput{
			Email:         strings.ToLower(emailAddr),
			Username:      username,
			RoleID:        role.ID,
			EmailVerified: emailVerified,
			OAuthProvider: &provider,
			OAuthID:       &subject,
			Picture:       picture,
		})
		return txErr
	})
	if repository.IsConflict(err) {
		// El email ya existe como cuenta local: no se vinculan cuentas
		// automáticamente.
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}

	metrics.Registrations.Inc()
	logger.From(ctx).Info("oauth user registered",
		logger.UserID(user.ID), logger.Provider(provider))
	return user, nil
}

// oauthUsername deriva un username único a partir de la identidad externa.
func oauthUsername(name, emailAddr, subject string) string {
	base := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
	if base == "" && emailAddr != "" {
		if i := strings.IndexByte(emailAddr, '@'); i > 0 {
			base = strings.ToLower(emailAddr[:i])
		}
	}
	if base == "" {
		base = "user"
	}
	suffix := subject
	if len(suffix) > 8 {
		suffix = suffix[len(suffix)-8:]
	}
	return base + "_" + suffix
}
