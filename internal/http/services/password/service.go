// Package password implementa el cambio y reset de contraseñas.
package password

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wayfarerhq/wayfarer/internal/cache"
	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
	"github.com/wayfarerhq/wayfarer/internal/email"
	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
	pwhash "github.com/wayfarerhq/wayfarer/internal/security/password"
	tokens "github.com/wayfarerhq/wayfarer/internal/security/token"
	"github.com/wayfarerhq/wayfarer/internal/session"
)

// Errores del flujo de contraseñas.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrWeakPassword       = errors.New("password does not meet minimum requirements")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrNoPassword         = errors.New("account has no password set")
)

const (
	keyReset = "pwreset:"

	resetTTL       = time.Hour
	minPasswordLen = 8

	// revokeTimeout acota el revoke masivo post-cambio; que un Redis o
	// Postgres lentos no volteen un cambio de password ya persistido.
	revokeTimeout = 2 * time.Second
)

// Deps contiene las dependencias del servicio.
type Deps struct {
	Store    repository.Store
	Cache    *cache.Guarded
	Sessions *session.Service
	Email    *email.Service
}

// Service implementa el cambio y reset de contraseñas.
type Service struct {
	deps Deps
}

// NewService crea el servicio de contraseñas.
func NewService(deps Deps) *Service {
	return &Service{deps: deps}
}

// Change verifica la contraseña actual y persiste la nueva dentro de una
// transacción. Después revoca todas las sesiones del usuario de forma
// best-effort: un timeout ahí no deshace el cambio.
func (s *Service) Change(ctx context.Context, userID, currentPassword, newPassword string) error {
	log := logger.From(ctx).With(logger.Component("password"), logger.Op("Change"))

	if len(newPassword) < minPasswordLen {
		return ErrWeakPassword
	}

	err := s.deps.Store.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.deps.Store.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.PasswordHash == nil {
			return ErrNoPassword
		}
		if !pwhash.Verify(user.PasswordHash, currentPassword) {
			return ErrInvalidCredentials
		}

		hash, err := pwhash.Hash(newPassword, pwhash.DefaultCost)
		if err != nil {
			return err
		}
		return s.deps.Store.Users().UpdatePasswordHash(ctx, userID, hash)
	})
	if err != nil {
		return err
	}

	s.revokeEverything(ctx, userID, log)
	log.Info("password changed", logger.UserID(userID))
	return nil
}

// CreateResetToken genera un token de reset de alta entropía y guarda
// sha256(token) → userId en el cache por una hora. Retorna el token crudo;
// solo el hash queda almacenado.
func (s *Service) CreateResetToken(ctx context.Context, emailAddr string) (string, error) {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))

	user, err := s.deps.Store.Users().GetByEmail(ctx, emailAddr)
	if repository.IsNotFound(err) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}

	raw, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return "", err
	}

	s.deps.Cache.Set(ctx, keyReset+tokens.SHA256Hex(raw), user.ID, resetTTL)
	return raw, nil
}

// RequestReset es el flujo completo de "olvidé mi contraseña": genera el
// token y lo manda por email. Un email no registrado retorna nil igual;
// la respuesta del endpoint es indistinguible (anti-enumeración).
func (s *Service) RequestReset(ctx context.Context, emailAddr string) error {
	raw, err := s.CreateResetToken(ctx, emailAddr)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.deps.Email.SendPasswordReset(emailAddr, raw, resetTTL)
}

// Reset consume un token de reset (un solo uso), persiste la nueva
// contraseña y revoca todas las sesiones y refresh tokens del usuario.
func (s *Service) Reset(ctx context.Context, rawToken, newPassword string) error {
	log := logger.From(ctx).With(logger.Component("password"), logger.Op("Reset"))

	if len(newPassword) < minPasswordLen {
		return ErrWeakPassword
	}

	key := keyReset + tokens.SHA256Hex(rawToken)
	userID, ok := s.deps.Cache.Get(ctx, key)
	if !ok || userID == "" {
		return ErrInvalidResetToken
	}

	hash, err := pwhash.Hash(newPassword, pwhash.DefaultCost)
	if err != nil {
		return err
	}
	err = s.deps.Store.WithinTx(ctx, func(ctx context.Context) error {
		return s.deps.Store.Users().UpdatePasswordHash(ctx, userID, hash)
	})
	if err != nil {
		return err
	}

	// Un solo uso: la entrada se borra antes de revocar sesiones.
	s.deps.Cache.Delete(ctx, key)

	s.revokeEverything(ctx, userID, log)
	log.Info("password reset", logger.UserID(userID))
	return nil
}

// revokeEverything cierra sesiones y refresh tokens con timeout acotado.
func (s *Service) revokeEverything(ctx context.Context, userID string, log *zap.Logger) {
	rctx, cancel := context.WithTimeout(ctx, revokeTimeout)
	defer cancel()

	if _, err := s.deps.Sessions.RevokeAll(rctx, userID, ""); err != nil {
		log.Warn("session revoke after password change failed",
			logger.UserID(userID), logger.Err(err))
	}
	if _, err := s.deps.Store.Tokens().RevokeAllByUser(rctx, userID); err != nil {
		log.Warn("refresh token revoke after password change failed",
			logger.UserID(userID), logger.Err(err))
	}
}
