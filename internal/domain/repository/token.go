package repository

import (
	"context"
	"time"
)

// RefreshToken representa un refresh token persistido (solo su hash).
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// CreateRefreshTokenInput contiene los datos para crear un refresh token.
type CreateRefreshTokenInput struct {
	UserID    string
	TokenHash string
	ExpiresAt time.Time
}

// TokenRepository define operaciones sobre refresh tokens.
type TokenRepository interface {
	// Create persiste un refresh token y retorna su ID.
	Create(ctx context.Context, input CreateRefreshTokenInput) (string, error)

	// GetByHash busca un token por su hash. Retorna ErrNotFound si no existe.
	GetByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)

	// Revoke revoca un token por ID. Idempotente.
	Revoke(ctx context.Context, tokenID string) error

	// RevokeIfActive revoca el token solo si todavía está activo. Retorna
	// true únicamente para el caller que efectuó la transición: bajo
	// rotaciones concurrentes del mismo token exactamente uno recibe true.
	RevokeIfActive(ctx context.Context, tokenID string) (bool, error)

	// RevokeAllByUser revoca todos los tokens activos del usuario.
	// Retorna el número de tokens revocados.
	RevokeAllByUser(ctx context.Context, userID string) (int, error)

	// ListActiveByUser retorna los tokens no revocados ni expirados.
	ListActiveByUser(ctx context.Context, userID string) ([]RefreshToken, error)
}
