// Package admin implementa operaciones administrativas sobre cuentas.
package admin

import (
	"context"

	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
	sessioncore "github.com/wayfarerhq/wayfarer/internal/session"
)

// UserService administra el estado de cuentas ajenas.
type UserService struct {
	store    repository.Store
	sessions *sessioncore.Service
}

// NewUserService crea el servicio.
func NewUserService(store repository.Store, sessions *sessioncore.Service) *UserService {
	return &UserService{store: store, sessions: sessions}
}

// Get retorna un usuario por ID.
func (s *UserService) Get(ctx context.Context, userID string) (*repository.User, error) {
	return s.store.Users().GetByID(ctx, userID)
}

// SetActive habilita o deshabilita una cuenta. Deshabilitar revoca todas
// sus sesiones y refresh tokens en el momento.
func (s *UserService) SetActive(ctx context.Context, userID string, active bool) error {
	if err := s.store.Users().SetActive(ctx, userID, active); err != nil {
		return err
	}

	if !active {
		if _, err := s.sessions.RevokeAll(ctx, userID, ""); err != nil {
			logger.From(ctx).Warn("revoking sessions of deactivated user failed",
				logger.UserID(userID), logger.Err(err))
		}
		if _, err := s.store.Tokens().RevokeAllByUser(ctx, userID); err != nil {
			logger.From(ctx).Warn("revoking tokens of deactivated user failed",
				logger.UserID(userID), logger.Err(err))
		}
	}

	logger.From(ctx).Info("user active flag updated",
		logger.UserID(userID), logger.Bool("active", active))
	return nil
}

// Delete elimina la cuenta. Las sesiones y tokens no se cascadean en la
// base: se invalidan explícitamente antes de borrar la fila.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if _, err := s.sessions.RevokeAll(ctx, userID, ""); err != nil {
		return err
	}
	if _, err := s.store.Tokens().RevokeAllByUser(ctx, userID); err != nil {
		return err
	}
	return s.store.Users().Delete(ctx, userID)
}
