package pg

import (
	"context"

	"github.com/google/uuid"

	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
)

type tokenRepo struct{ s *Store }

const refreshColumns = `id, user_id, token_hash, issued_at, expires_at, revoked_at`

func scanRefreshToken(row interface{ Scan(...any) error }) (*repository.RefreshToken, error) {
	var rt repository.RefreshToken
	err := row.Scan(&rt.ID, &rt.UserID, &rt.TokenHash, &rt.IssuedAt, &rt.ExpiresAt, &rt.RevokedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &rt, nil
}

func (r *tokenRepo) Create(ctx context.Context, input repository.CreateRefreshTokenInput) (string, error) {
	const query = `
		INSERT INTO refresh_tokens (id, user_id, token_hash, issued_at, expires_at)
		VALUES ($1, $2, $3, NOW(), $4)
		RETURNING id
	`
	id := uuid.NewString()
	var out string
	err := r.s.q(ctx).QueryRow(ctx, query, id, input.UserID, input.TokenHash, input.ExpiresAt).Scan(&out)
	return out, translate(err)
}

func (r *tokenRepo) GetByHash(ctx context.Context, tokenHash string) (*repository.RefreshToken, error) {
	const query = `SELECT ` + refreshColumns + ` FROM refresh_tokens WHERE token_hash = $1`
	return scanRefreshToken(r.s.q(ctx).QueryRow(ctx, query, tokenHash))
}

func (r *tokenRepo) Revoke(ctx context.Context, tokenID string) error {
	const query = `UPDATE refresh_tokens SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`
	_, err := r.s.q(ctx).Exec(ctx, query, tokenID)
	return translate(err)
}

func (r *tokenRepo) RevokeIfActive(ctx context.Context, tokenID string) (bool, error) {
	const query = `UPDATE refresh_tokens SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`
	tag, err := r.s.q(ctx).Exec(ctx, query, tokenID)
	if err != nil {
		return false, translate(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *tokenRepo) RevokeAllByUser(ctx context.Context, userID string) (int, error) {
	const query = `UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`
	tag, err := r.s.q(ctx).Exec(ctx, query, userID)
	if err != nil {
		return 0, translate(err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *tokenRepo) ListActiveByUser(ctx context.Context, userID string) ([]repository.RefreshToken, error) {
	const query = `
		SELECT ` + refreshColumns + `
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > NOW()
		ORDER BY issued_at DESC
	`
	rows, err := r.s.q(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []repository.RefreshToken
	for rows.Next() {
		rt, err := scanRefreshToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rt)
	}
	return out, rows.Err()
}
