package repository

import (
	"context"
	"time"
)

// Role representa un rol con bundle de permisos.
type Role struct {
	ID           string
	Name         string
	Description  string
	ParentRoleID *string // herencia: los permisos del padre se acumulan
	System       bool    // roles de sistema no se eliminan
	Level        int     // ordenamiento jerárquico
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Permission representa una capacidad atómica.
type Permission struct {
	ID               string
	Name             string
	Group            string
	Action           string
	Resource         string
	System           bool
	Deprecated       bool
	DeprecatedReason *string
	CreatedAt        time.Time
}

// RoleInput contiene los datos para crear/actualizar un rol.
type RoleInput struct {
	Name         string
	Description  string
	ParentRoleID *string
	Level        int
}

// PermissionInput contiene los datos para crear un permiso.
type PermissionInput struct {
	Name     string
	Group    string
	Action   string
	Resource string
}

// RoleRepository define operaciones sobre roles.
type RoleRepository interface {
	// GetByName obtiene un rol por nombre único.
	GetByName(ctx context.Context, name string) (*Role, error)

	// GetByID obtiene un rol por ID.
	GetByID(ctx context.Context, roleID string) (*Role, error)

	// List lista todos los roles ordenados por level.
	List(ctx context.Context) ([]Role, error)

	// Create crea un rol. Retorna ErrConflict si el nombre ya existe.
	Create(ctx context.Context, input RoleInput) (*Role, error)

	// Update actualiza un rol. Retorna ErrSystemProtected para roles sistema.
	Update(ctx context.Context, roleID string, input RoleInput) (*Role, error)

	// Delete elimina un rol. Retorna ErrSystemProtected para roles sistema.
	Delete(ctx context.Context, roleID string) error

	// GetPermissions retorna los permisos asignados directamente al rol
	// (sin herencia). El join es siempre por role_id.
	GetPermissions(ctx context.Context, roleID string) ([]Permission, error)

	// AssignPermissions crea los pares (role_id, permission_id) que falten.
	// Pares ya existentes se ignoran (idempotente).
	AssignPermissions(ctx context.Context, roleID string, permissionIDs []string) error

	// RemovePermission elimina un par (role_id, permission_id).
	RemovePermission(ctx context.Context, roleID, permissionID string) error
}

// PermissionRepository define operaciones sobre permisos.
type PermissionRepository interface {
	// GetByID obtiene un permiso por ID.
	GetByID(ctx context.Context, permissionID string) (*Permission, error)

	// GetByName obtiene un permiso por nombre único.
	GetByName(ctx context.Context, name string) (*Permission, error)

	// List lista todos los permisos.
	List(ctx context.Context) ([]Permission, error)

	// Create crea un permiso. Retorna ErrConflict si el nombre ya existe.
	Create(ctx context.Context, input PermissionInput) (*Permission, error)

	// Deprecate marca un permiso como deprecado con razón.
	Deprecate(ctx context.Context, permissionID, reason string) error

	// Delete elimina un permiso no-sistema junto con sus role_permissions.
	// Retorna ErrSystemProtected para permisos sistema.
	Delete(ctx context.Context, permissionID string) error

	// RolesWithPermission retorna los IDs de roles que tienen asignado el
	// permiso (para invalidación de cache).
	RolesWithPermission(ctx context.Context, permissionID string) ([]string, error)
}
