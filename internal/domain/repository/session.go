package repository

import (
	"context"
	"time"
)

// Session representa un login lógico persistido.
type Session struct {
	ID         string // session id (uuid), también la clave del cache
	UserID     string
	IPAddress  string
	UserAgent  string
	DeviceInfo string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
}

// Revoked indica si la sesión fue revocada.
func (s *Session) Revoked() bool { return s.RevokedAt != nil }

// Expired indica si la sesión pasó su expiración.
func (s *Session) Expired(now time.Time) bool { return now.After(s.ExpiresAt) }

// CreateSessionInput contiene los datos para crear una sesión.
type CreateSessionInput struct {
	ID         string
	UserID     string
	IPAddress  string
	UserAgent  string
	DeviceInfo string
	ExpiresAt  time.Time
}

// SessionRepository define operaciones sobre sesiones.
// La fila en DB es la fuente de verdad; el cache es un acelerador.
type SessionRepository interface {
	// Create persiste una nueva sesión.
	Create(ctx context.Context, input CreateSessionInput) (*Session, error)

	// Get obtiene una sesión por ID. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Revoke marca la sesión como revocada. Idempotente: revocar una sesión
	// ya revocada no es error.
	Revoke(ctx context.Context, sessionID string) error

	// RevokeAllByUser revoca todas las sesiones activas del usuario.
	// Si exceptID no es vacío, esa sesión se preserva.
	// Retorna el número de sesiones revocadas.
	RevokeAllByUser(ctx context.Context, userID, exceptID string) (int, error)

	// ListActiveByUser retorna las sesiones no revocadas ni expiradas.
	ListActiveByUser(ctx context.Context, userID string) ([]Session, error)

	// DeleteExpired elimina sesiones expiradas o revocadas (cleanup job).
	DeleteExpired(ctx context.Context) (int, error)
}
