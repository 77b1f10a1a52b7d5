package repository

import "context"

// Store agrupa los repositorios y el manejo transaccional.
//
// WithinTx ejecuta fn con un contexto transaccional: todos los repos
// consultados a través de ese contexto operan sobre la misma transacción.
// Commit si fn retorna nil; rollback si retorna error o hace panic.
type Store interface {
	Users() UserRepository
	Roles() RoleRepository
	Permissions() PermissionRepository
	Sessions() SessionRepository
	Tokens() TokenRepository

	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error

	Ping(ctx context.Context) error
	Close()
}
