package pg

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
)

type userRepo struct{ s *Store }

const userColumns = `
	id, email, username, password_hash, role_id, active,
	email_verified, email_verified_at, failed_logins, lock_until,
	oauth_provider, oauth_id, picture, created_at, updated_at
`

func scanUser(row interface{ Scan(...any) error }) (*repository.User, error) {
	var u repository.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.RoleID, &u.Active,
		&u.EmailVerified, &u.EmailVerifiedAt, &u.FailedLogins, &u.LockUntil,
		&u.OAuthProvider, &u.OAuthID, &u.Picture, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.s.q(ctx).QueryRow(ctx, query, email))
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*repository.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.s.q(ctx).QueryRow(ctx, query, username))
}

func (r *userRepo) GetByID(ctx context.Context, userID string) (*repository.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.s.q(ctx).QueryRow(ctx, query, userID))
}

func (r *userRepo) GetByOAuth(ctx context.Context, provider, providerID string) (*repository.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE oauth_provider = $1 AND oauth_id = $2`
	return scanUser(r.s.q(ctx).QueryRow(ctx, query, provider, providerID))
}

func (r *userRepo) Create(ctx context.Context, input repository.CreateUserInput) (*repository.User, error) {
	const query = `
		INSERT INTO users (
			id, email, username, password_hash, role_id, active,
			email_verified, oauth_provider, oauth_id, picture, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7, $8, $9, NOW(), NOW())
		RETURNING ` + userColumns

	id := uuid.NewString()
	row := r.s.q(ctx).QueryRow(ctx, query,
		id, input.Email, input.Username, input.PasswordHash, input.RoleID,
		input.EmailVerified, input.OAuthProvider, input.OAuthID, input.Picture,
	)
	return scanUser(row)
}

func (r *userRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.s.q(ctx).Exec(ctx, query, userID, newHash)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepo) SetEmailVerified(ctx context.Context, userID string, at time.Time) error {
	const query = `
		UPDATE users SET email_verified = TRUE, email_verified_at = $2, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.s.q(ctx).Exec(ctx, query, userID, at)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepo) SetActive(ctx context.Context, userID string, active bool) error {
	const query = `UPDATE users SET active = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.s.q(ctx).Exec(ctx, query, userID, active)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepo) SetLockState(ctx context.Context, userID string, failedLogins int, lockUntil *time.Time) error {
	const query = `
		UPDATE users SET failed_logins = $2, lock_until = $3, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.s.q(ctx).Exec(ctx, query, userID, failedLogins, lockUntil)
	return translate(err)
}

func (r *userRepo) Delete(ctx context.Context, userID string) error {
	const query = `DELETE FROM users WHERE id = $1`
	tag, err := r.s.q(ctx).Exec(ctx, query, userID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
