package repository

import (
	"context"
	"time"
)

// User representa una cuenta de la plataforma.
type User struct {
	ID              string
	Email           string
	Username        string
	PasswordHash    *string // nil para cuentas OAuth-only
	RoleID          string
	Active          bool
	EmailVerified   bool
	EmailVerifiedAt *time.Time
	FailedLogins    int
	LockUntil       *time.Time
	OAuthProvider   *string
	OAuthID         *string
	Picture         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateUserInput contiene los datos para crear un usuario.
type CreateUserInput struct {
	Email         string
	Username      string
	PasswordHash  *string
	RoleID        string
	EmailVerified bool
	OAuthProvider *string
	OAuthID       *string
	Picture       string
}

// UserRepository define operaciones sobre usuarios.
type UserRepository interface {
	// GetByEmail busca un usuario por email. Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByUsername busca un usuario por username. Retorna ErrNotFound si no existe.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID busca un usuario por ID. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, userID string) (*User, error)

	// GetByOAuth busca un usuario por par proveedor/ID externo.
	GetByOAuth(ctx context.Context, provider, providerID string) (*User, error)

	// Create crea un nuevo usuario. Retorna ErrConflict si el email o el
	// username ya existen (la unique constraint es la fuente de verdad).
	Create(ctx context.Context, input CreateUserInput) (*User, error)

	// UpdatePasswordHash actualiza el hash del password.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// SetEmailVerified marca el email como verificado con timestamp.
	SetEmailVerified(ctx context.Context, userID string, at time.Time) error

	// SetActive habilita o deshabilita la cuenta.
	SetActive(ctx context.Context, userID string, active bool) error

	// SetLockState persiste el contador de fallos y el lock-until.
	// Best-effort: el lockout autoritativo vive en el cache.
	SetLockState(ctx context.Context, userID string, failedLogins int, lockUntil *time.Time) error

	// Delete elimina un usuario. Las sesiones y tokens asociados deben
	// invalidarse explícitamente por el caller.
	Delete(ctx context.Context, userID string) error
}
