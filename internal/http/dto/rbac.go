package dto

import "time"

// RoleRequest es el body de creación/actualización de roles.
type RoleRequest struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	ParentRoleID *string `json:"parent_role_id"`
	Level        int     `json:"level"`
}

// RoleResponse es la vista pública de un rol.
type RoleResponse struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Description  string               `json:"description,omitempty"`
	ParentRoleID *string              `json:"parent_role_id,omitempty"`
	System       bool                 `json:"system"`
	Level        int                  `json:"level"`
	Permissions  []PermissionResponse `json:"permissions,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// PermissionRequest es el body de creación de permisos.
type PermissionRequest struct {
	Name     string `json:"name"`
	Group    string `json:"group"`
	Action   string `json:"action"`
	Resource string `json:"resource"`
}

// PermissionResponse es la vista pública de un permiso.
type PermissionResponse struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Group            string  `json:"group,omitempty"`
	Action           string  `json:"action,omitempty"`
	Resource         string  `json:"resource,omitempty"`
	System           bool    `json:"system"`
	Deprecated       bool    `json:"deprecated"`
	DeprecatedReason *string `json:"deprecated_reason,omitempty"`
}

// AssignPermissionsRequest es el body para asignar permisos a un rol.
type AssignPermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids"`
}

// DeprecatePermissionRequest es el body para deprecar un permiso.
type DeprecatePermissionRequest struct {
	Reason string `json:"reason"`
}

// SetActiveRequest es el body para activar/desactivar una cuenta.
type SetActiveRequest struct {
	Active bool `json:"active"`
}
