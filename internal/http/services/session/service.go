// Package session expone la gestión de sesiones del usuario autenticado:
// listado de dispositivos, revocación puntual y revocación masiva.
package session

import (
	"context"
	"errors"

	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
	sessioncore "github.com/wayfarerhq/wayfarer/internal/session"
)

// ErrNotOwned indica que la sesión no pertenece al usuario.
var ErrNotOwned = errors.New("session does not belong to user")

// Service opera sesiones en nombre del usuario autenticado.
type Service struct {
	store    repository.Store
	sessions *sessioncore.Service
}

// NewService crea el servicio.
func NewService(store repository.Store, sessions *sessioncore.Service) *Service {
	return &Service{store: store, sessions: sessions}
}

// List retorna las sesiones activas del usuario.
func (s *Service) List(ctx context.Context, userID string) ([]repository.Session, error) {
	return s.sessions.ActiveForUser(ctx, userID)
}

// Revoke revoca una sesión del usuario. Revocar una sesión ajena falla
// con ErrNotOwned sin filtrar si existe o no.
func (s *Service) Revoke(ctx context.Context, userID, sessionID string) error {
	sess, err := s.store.Sessions().Get(ctx, sessionID)
	if repository.IsNotFound(err) {
		return ErrNotOwned
	}
	if err != nil {
		return err
	}
	if sess.UserID != userID {
		return ErrNotOwned
	}

	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}
	logger.From(ctx).Info("session revoked", logger.SessionID(sessionID))
	return nil
}

// RevokeAll revoca todas las sesiones del usuario menos la actual.
func (s *Service) RevokeAll(ctx context.Context, userID, currentSessionID string) (int, error) {
	return s.sessions.RevokeAll(ctx, userID, currentSessionID)
}
