// Package pg implementa repository.Store sobre PostgreSQL (pgx/v5).
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
)

// querier es el subconjunto común de pgxpool.Pool y pgx.Tx que usan los repos.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// Store implementa repository.Store.
type Store struct {
	pool *pgxpool.Pool

	users       *userRepo
	roles       *roleRepo
	permissions *permissionRepo
	sessions    *sessionRepo
	tokens      *tokenRepo
}

// Config contiene los parámetros de conexión.
type Config struct {
	DSN             string
	MaxConns        int32
	ConnMaxLifetime time.Duration
}

// New abre el pool y construye el Store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}

	s := &Store{pool: pool}
	s.users = &userRepo{s}
	s.roles = &roleRepo{s}
	s.permissions = &permissionRepo{s}
	s.sessions = &sessionRepo{s}
	s.tokens = &tokenRepo{s}
	return s, nil
}

func (s *Store) Users() repository.UserRepository             { return s.users }
func (s *Store) Roles() repository.RoleRepository             { return s.roles }
func (s *Store) Permissions() repository.PermissionRepository { return s.permissions }
func (s *Store) Sessions() repository.SessionRepository       { return s.sessions }
func (s *Store) Tokens() repository.TokenRepository           { return s.tokens }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }
func (s *Store) Close()                         { s.pool.Close() }

// q retorna la transacción del contexto si existe, o el pool.
func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

// WithinTx ejecuta fn dentro de una transacción. Los repos que reciban el
// contexto derivado operan sobre la misma transacción. Commit si fn retorna
// nil; rollback si retorna error o hace panic.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		// Ya estamos dentro de una transacción: reusar.
		return fn(ctx)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pg: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// translate convierte errores de pgx a sentinels de repository.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return repository.ErrConflict
	}
	return err
}
