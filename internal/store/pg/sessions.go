package pg

import (
	"context"

	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
)

type sessionRepo struct{ s *Store }

const sessionColumns = `id, user_id, ip_address, user_agent, device_info, created_at, expires_at, revoked_at`

func scanSession(row interface{ Scan(...any) error }) (*repository.Session, error) {
	var sess repository.Session
	err := row.Scan(
		&sess.ID, &sess.UserID, &sess.IPAddress, &sess.UserAgent, &sess.DeviceInfo,
		&sess.CreatedAt, &sess.ExpiresAt, &sess.RevokedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &sess, nil
}

func (r *sessionRepo) Create(ctx context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	const query = `
		INSERT INTO sessions (id, user_id, ip_address, user_agent, device_info, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), $6)
		RETURNING ` + sessionColumns
	row := r.s.q(ctx).QueryRow(ctx, query,
		input.ID, input.UserID, input.IPAddress, input.UserAgent, input.DeviceInfo, input.ExpiresAt,
	)
	return scanSession(row)
}

func (r *sessionRepo) Get(ctx context.Context, sessionID string) (*repository.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.s.q(ctx).QueryRow(ctx, query, sessionID))
}

func (r *sessionRepo) Revoke(ctx context.Context, sessionID string) error {
	// Idempotente: una sesión ya revocada o inexistente no es error.
	const query = `UPDATE sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`
	_, err := r.s.q(ctx).Exec(ctx, query, sessionID)
	return translate(err)
}

func (r *sessionRepo) RevokeAllByUser(ctx context.Context, userID, exceptID string) (int, error) {
	const query = `
		UPDATE sessions SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL AND ($2 = '' OR id <> $2)
	`
	tag, err := r.s.q(ctx).Exec(ctx, query, userID, exceptID)
	if err != nil {
		return 0, translate(err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *sessionRepo) ListActiveByUser(ctx context.Context, userID string) ([]repository.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > NOW()
		ORDER BY created_at DESC
	`
	rows, err := r.s.q(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []repository.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

func (r *sessionRepo) DeleteExpired(ctx context.Context) (int, error) {
	const query = `DELETE FROM sessions WHERE expires_at < NOW() OR revoked_at IS NOT NULL`
	tag, err := r.s.q(ctx).Exec(ctx, query)
	if err != nil {
		return 0, translate(err)
	}
	return int(tag.RowsAffected()), nil
}
