package pg

import (
	"context"

	"github.com/google/uuid"

	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
)

// ─── RoleRepository ───

type roleRepo struct{ s *Store }

const roleColumns = `id, name, description, parent_role_id, system, level, created_at, updated_at`

func scanRole(row interface{ Scan(...any) error }) (*repository.Role, error) {
	var r repository.Role
	err := row.Scan(
		&r.ID, &r.Name, &r.Description, &r.ParentRoleID, &r.System, &r.Level,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (r *roleRepo) GetByName(ctx context.Context, name string) (*repository.Role, error) {
	const query = `SELECT ` + roleColumns + ` FROM roles WHERE name = $1`
	return scanRole(r.s.q(ctx).QueryRow(ctx, query, name))
}

func (r *roleRepo) GetByID(ctx context.Context, roleID string) (*repository.Role, error) {
	const query = `SELECT ` + roleColumns + ` FROM roles WHERE id = $1`
	return scanRole(r.s.q(ctx).QueryRow(ctx, query, roleID))
}

func (r *roleRepo) List(ctx context.Context) ([]repository.Role, error) {
	const query = `SELECT ` + roleColumns + ` FROM roles ORDER BY level, name`
	rows, err := r.s.q(ctx).Query(ctx, query)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []repository.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *role)
	}
	return out, rows.Err()
}

func (r *roleRepo) Create(ctx context.Context, input repository.RoleInput) (*repository.Role, error) {
	const query = `
		INSERT INTO roles (id, name, description, parent_role_id, system, level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, NOW(), NOW())
		RETURNING ` + roleColumns
	row := r.s.q(ctx).QueryRow(ctx, query,
		uuid.NewString(), input.Name, input.Description, input.ParentRoleID, input.Level,
	)
	return scanRole(row)
}

func (r *roleRepo) Update(ctx context.Context, roleID string, input repository.RoleInput) (*repository.Role, error) {
	const query = `
		UPDATE roles
		SET name = $2, description = $3, parent_role_id = $4, level = $5, updated_at = NOW()
		WHERE id = $1 AND NOT system
		RETURNING ` + roleColumns
	row := r.s.q(ctx).QueryRow(ctx, query,
		roleID, input.Name, input.Description, input.ParentRoleID, input.Level,
	)
	role, err := scanRole(row)
	if repository.IsNotFound(err) {
		// Puede no existir o ser un rol sistema: distinguir para el caller.
		if existing, gerr := r.GetByID(ctx, roleID); gerr == nil && existing.System {
			return nil, repository.ErrSystemProtected
		}
		return nil, repository.ErrNotFound
	}
	return role, err
}

func (r *roleRepo) Delete(ctx context.Context, roleID string) error {
	role, err := r.GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role.System {
		return repository.ErrSystemProtected
	}
	const query = `DELETE FROM roles WHERE id = $1`
	_, err = r.s.q(ctx).Exec(ctx, query, roleID)
	return translate(err)
}

const permissionColumns = `id, name, "group", action, resource, system, deprecated, deprecated_reason, created_at`

func scanPermission(row interface{ Scan(...any) error }) (*repository.Permission, error) {
	var p repository.Permission
	err := row.Scan(
		&p.ID, &p.Name, &p.Group, &p.Action, &p.Resource, &p.System,
		&p.Deprecated, &p.DeprecatedReason, &p.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *roleRepo) GetPermissions(ctx context.Context, roleID string) ([]repository.Permission, error) {
	const query = `
		SELECT p.id, p.name, p."group", p.action, p.resource, p.system,
		       p.deprecated, p.deprecated_reason, p.created_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name
	`
	rows, err := r.s.q(ctx).Query(ctx, query, roleID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []repository.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *roleRepo) AssignPermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	const query = `
		INSERT INTO role_permissions (role_id, permission_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (role_id, permission_id) DO NOTHING
	`
	for _, pid := range permissionIDs {
		if _, err := r.s.q(ctx).Exec(ctx, query, roleID, pid); err != nil {
			return translate(err)
		}
	}
	return nil
}

func (r *roleRepo) RemovePermission(ctx context.Context, roleID, permissionID string) error {
	const query = `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`
	_, err := r.s.q(ctx).Exec(ctx, query, roleID, permissionID)
	return translate(err)
}

// ─── PermissionRepository ───

type permissionRepo struct{ s *Store }

func (r *permissionRepo) GetByID(ctx context.Context, permissionID string) (*repository.Permission, error) {
	const query = `SELECT ` + permissionColumns + ` FROM permissions WHERE id = $1`
	return scanPermission(r.s.q(ctx).QueryRow(ctx, query, permissionID))
}

func (r *permissionRepo) GetByName(ctx context.Context, name string) (*repository.Permission, error) {
	const query = `SELECT ` + permissionColumns + ` FROM permissions WHERE name = $1`
	return scanPermission(r.s.q(ctx).QueryRow(ctx, query, name))
}

func (r *permissionRepo) List(ctx context.Context) ([]repository.Permission, error) {
	const query = `SELECT ` + permissionColumns + ` FROM permissions ORDER BY "group", name`
	rows, err := r.s.q(ctx).Query(ctx, query)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []repository.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *permissionRepo) Create(ctx context.Context, input repository.PermissionInput) (*repository.Permission, error) {
	const query = `
		INSERT INTO permissions (id, name, "group", action, resource, system, deprecated, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, FALSE, NOW())
		RETURNING ` + permissionColumns
	row := r.s.q(ctx).QueryRow(ctx, query,
		uuid.NewString(), input.Name, input.Group, input.Action, input.Resource,
	)
	return scanPermission(row)
}

func (r *permissionRepo) Deprecate(ctx context.Context, permissionID, reason string) error {
	const query = `UPDATE permissions SET deprecated = TRUE, deprecated_reason = $2 WHERE id = $1`
	tag, err := r.s.q(ctx).Exec(ctx, query, permissionID, reason)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *permissionRepo) Delete(ctx context.Context, permissionID string) error {
	perm, err := r.GetByID(ctx, permissionID)
	if err != nil {
		return err
	}
	if perm.System {
		return repository.ErrSystemProtected
	}
	// role_permissions cae por FK ON DELETE CASCADE
	const query = `DELETE FROM permissions WHERE id = $1`
	_, err = r.s.q(ctx).Exec(ctx, query, permissionID)
	return translate(err)
}

func (r *permissionRepo) RolesWithPermission(ctx context.Context, permissionID string) ([]string, error) {
	const query = `SELECT role_id FROM role_permissions WHERE permission_id = $1`
	rows, err := r.s.q(ctx).Query(ctx, query, permissionID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
