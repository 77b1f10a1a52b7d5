package rbac

import (
	"context"
	"errors"

	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
	"github.com/wayfarerhq/wayfarer/internal/validation"
)

var (
	// ErrInheritanceCycle indica que el parent propuesto crearía un ciclo.
	ErrInheritanceCycle = errors.New("role inheritance would create a cycle")
	// ErrInvalidName indica un nombre de rol o permiso fuera del patrón.
	ErrInvalidName = errors.New("invalid name")
)

// Manager administra roles y permisos e invalida el cache del resolver
// cuando una mutación cambia sets efectivos.
type Manager struct {
	store    repository.Store
	resolver *Resolver
}

// NewManager construye el Manager.
func NewManager(store repository.Store, resolver *Resolver) *Manager {
	return &Manager{store: store, resolver: resolver}
}

// ListRoles lista todos los roles.
func (m *Manager) ListRoles(ctx context.Context) ([]repository.Role, error) {
	return m.store.Roles().List(ctx)
}

// GetRole obtiene un rol con sus permisos directos.
func (m *Manager) GetRole(ctx context.Context, roleID string) (*repository.Role, []repository.Permission, error) {
	role, err := m.store.Roles().GetByID(ctx, roleID)
	if err != nil {
		return nil, nil, err
	}
	perms, err := m.store.Roles().GetPermissions(ctx, roleID)
	if err != nil {
		return nil, nil, err
	}
	return role, perms, nil
}

// CreateRole crea un rol. Un parent inexistente o que forme ciclo es error.
func (m *Manager) CreateRole(ctx context.Context, input repository.RoleInput) (*repository.Role, error) {
	if !validation.ValidRoleName(input.Name) {
		return nil, ErrInvalidName
	}
	if input.ParentRoleID != nil {
		if _, err := m.store.Roles().GetByID(ctx, *input.ParentRoleID); err != nil {
			return nil, err
		}
	}
	role, err := m.store.Roles().Create(ctx, input)
	if err != nil {
		return nil, err
	}
	logger.From(ctx).Info("role created", logger.Role(role.Name))
	return role, nil
}

// UpdateRole actualiza un rol. Si el update cambia el parent se valida que
// la cadena resultante no contenga ciclos, y se invalida el cache del rol
// y de todos sus descendientes (sus sets efectivos cambian en cascada).
func (m *Manager) UpdateRole(ctx context.Context, roleID string, input repository.RoleInput) (*repository.Role, error) {
	if input.Name != "" && !validation.ValidRoleName(input.Name) {
		return nil, ErrInvalidName
	}
	if input.ParentRoleID != nil {
		if err := m.checkNoCycle(ctx, roleID, *input.ParentRoleID); err != nil {
			return nil, err
		}
	}

	role, err := m.store.Roles().Update(ctx, roleID, input)
	if err != nil {
		return nil, err
	}

	m.invalidateSubtree(ctx, role)
	logger.From(ctx).Info("role updated", logger.Role(role.Name))
	return role, nil
}

// DeleteRole elimina un rol no-sistema e invalida su cache.
func (m *Manager) DeleteRole(ctx context.Context, roleID string) error {
	role, err := m.store.Roles().GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if err := m.store.Roles().Delete(ctx, roleID); err != nil {
		return err
	}
	// Los descendientes quedaron con parent colgante; sus sets cambian.
	m.resolver.InvalidateAll(ctx)
	logger.From(ctx).Info("role deleted", logger.Role(role.Name))
	return nil
}

// AssignPermissions asigna permisos al rol (idempotente) e invalida el
// subtree del rol.
func (m *Manager) AssignPermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	role, err := m.store.Roles().GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	for _, pid := range permissionIDs {
		if _, err := m.store.Permissions().GetByID(ctx, pid); err != nil {
			return err
		}
	}
	if err := m.store.Roles().AssignPermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}
	m.invalidateSubtree(ctx, role)
	logger.From(ctx).Info("permissions assigned",
		logger.Role(role.Name), logger.Count(len(permissionIDs)))
	return nil
}

// RemovePermission quita un permiso del rol e invalida el subtree.
func (m *Manager) RemovePermission(ctx context.Context, roleID, permissionID string) error {
	role, err := m.store.Roles().GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if err := m.store.Roles().RemovePermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	m.invalidateSubtree(ctx, role)
	return nil
}

// ListPermissions lista todos los permisos.
func (m *Manager) ListPermissions(ctx context.Context) ([]repository.Permission, error) {
	return m.store.Permissions().List(ctx)
}

// CreatePermission crea un permiso nuevo.
func (m *Manager) CreatePermission(ctx context.Context, input repository.PermissionInput) (*repository.Permission, error) {
	if !validation.ValidPermissionName(input.Name) {
		return nil, ErrInvalidName
	}
	perm, err := m.store.Permissions().Create(ctx, input)
	if err != nil {
		return nil, err
	}
	logger.From(ctx).Info("permission created", logger.Permission(perm.Name))
	return perm, nil
}

// DeprecatePermission marca un permiso como deprecado. El permiso sigue
// resolviendo para los roles que lo tienen; solo cambia la señal admin.
func (m *Manager) DeprecatePermission(ctx context.Context, permissionID, reason string) error {
	return m.store.Permissions().Deprecate(ctx, permissionID, reason)
}

// DeletePermission elimina un permiso no-sistema e invalida los roles que
// lo tenían asignado.
func (m *Manager) DeletePermission(ctx context.Context, permissionID string) error {
	roleIDs, err := m.store.Permissions().RolesWithPermission(ctx, permissionID)
	if err != nil {
		return err
	}
	if err := m.store.Permissions().Delete(ctx, permissionID); err != nil {
		return err
	}
	for _, rid := range roleIDs {
		role, err := m.store.Roles().GetByID(ctx, rid)
		if err != nil {
			continue
		}
		m.invalidateSubtree(ctx, role)
	}
	return nil
}

// checkNoCycle rechaza parents que harían al rol ancestro de sí mismo.
func (m *Manager) checkNoCycle(ctx context.Context, roleID, parentID string) error {
	current := parentID
	for depth := 0; depth < maxInheritanceDepth; depth++ {
		if current == roleID {
			return ErrInheritanceCycle
		}
		parent, err := m.store.Roles().GetByID(ctx, current)
		if repository.IsNotFound(err) {
			return err
		}
		if err != nil {
			return err
		}
		if parent.ParentRoleID == nil {
			return nil
		}
		current = *parent.ParentRoleID
	}
	return ErrInheritanceCycle
}

// invalidateSubtree invalida el cache del rol y de todo descendiente, ya
// que heredan los permisos mutados.
func (m *Manager) invalidateSubtree(ctx context.Context, role *repository.Role) {
	roles, err := m.store.Roles().List(ctx)
	if err != nil {
		// Sin el listado no se puede acotar: invalidar todo.
		m.resolver.InvalidateAll(ctx)
		return
	}

	children := make(map[string][]repository.Role, len(roles))
	for _, r := range roles {
		if r.ParentRoleID != nil {
			children[*r.ParentRoleID] = append(children[*r.ParentRoleID], r)
		}
	}

	queue := []repository.Role{*role}
	seen := map[string]struct{}{}
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		m.resolver.Invalidate(ctx, r.Name)
		queue = append(queue, children[r.ID]...)
	}
}
