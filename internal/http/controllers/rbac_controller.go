package controllers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
	"github.com/wayfarerhq/wayfarer/internal/http/dto"
	httperrors "github.com/wayfarerhq/wayfarer/internal/http/errors"
	"github.com/wayfarerhq/wayfarer/internal/rbac"
)

// RBACController maneja la administración de roles y permisos.
type RBACController struct {
	manager *rbac.Manager
}

// NewRBACController crea el controller.
func NewRBACController(manager *rbac.Manager) *RBACController {
	return &RBACController{manager: manager}
}

// ListRoles maneja GET /admin/roles.
func (c *RBACController) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := c.manager.ListRoles(r.Context())
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	out := make([]dto.RoleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(&role, nil))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetRole maneja GET /admin/roles/{id}.
func (c *RBACController) GetRole(w http.ResponseWriter, r *http.Request) {
	role, perms, err := c.manager.GetRole(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httperrors.WriteError(w, r, mapRBACError(err))
		return
	}
	writeJSON(w, http.StatusOK, toRoleResponse(role, perms))
}

// CreateRole maneja POST /admin/roles.
func (c *RBACController) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req dto.RoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	if req.Name == "" {
		httperrors.WriteError(w, r, httperrors.ErrMissingFields)
		return
	}

	role, err := c.manager.CreateRole(r.Context(), repository.RoleInput{
		Name:         req.Name,
		Description:  req.Description,
		ParentRoleID: req.ParentRoleID,
		Level:        req.Level,
	})
	if err != nil {
		httperrors.WriteError(w, r, mapRBACError(err))
		return
	}
	writeJSON(w, http.StatusCreated, toRoleResponse(role, nil))
}

// UpdateRole maneja PUT /admin/roles/{id}.
func (c *RBACController) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req dto.RoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	role, err := c.manager.UpdateRole(r.Context(), chi.URLParam(r, "id"), repository.RoleInput{
		Name:         req.Name,
		Description:  req.Description,
		ParentRoleID: req.ParentRoleID,
		Level:        req.Level,
	})
	if err != nil {
		httperrors.WriteError(w, r, mapRBACError(err))
		return
	}
	writeJSON(w, http.StatusOK, toRoleResponse(role, nil))
}

// DeleteRole maneja DELETE /admin/roles/{id}.
func (c *RBACController) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := c.manager.DeleteRole(r.Context(), chi.URLParam(r, "id")); err != nil {
		httperrors.WriteError(w, r, mapRBACError(err))
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "rol eliminado"})
}

// AssignPermissions maneja POST /admin/roles/{id}/permissions.
func (c *RBACController) AssignPermissions(w http.ResponseWriter, r *http.Request) {
	var req dto.AssignPermissionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	if len(req.PermissionIDs) == 0 {
		httperrors.WriteError(w, r, httperrors.ErrMissingFields)
		return
	}

	if err := c.manager.AssignPermissions(r.Context(), chi.URLParam(r, "id"), req.PermissionIDs); err != nil {
		httperrors.WriteError(w, r, mapRBACError(err))
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "permisos asignados"})
}

// RemovePermission maneja DELETE /admin/roles/{id}/permissions/{permID}.
func (c *RBACController) RemovePermission(w http.ResponseWriter, r *http.Request) {
	err := c.manager.RemovePermission(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "permID"))
	if err != nil {
		httperrors.WriteError(w, r, mapRBACError(err))
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "permiso removido"})
}

// ListPermissions maneja GET /admin/permissions.
func (c *RBACController) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := c.manager.ListPermissions(r.Context())
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	out := make([]dto.PermissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, toPermissionResponse(&p))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreatePermission maneja POST /admin/permissions.
func (c *RBACController) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var req dto.PermissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	if req.Name == "" {
		httperrors.WriteError(w, r, httperrors.ErrMissingFields)
		return
	}

	perm, err := c.manager.CreatePermission(r.Context(), repository.PermissionInput{
		Name:     req.Name,
		Group:    req.Group,
		Action:   req.Action,
		Resource: req.Resource,
	})
	if err != nil {
		httperrors.WriteError(w, r, mapRBACError(err))
		return
	}
	writeJSON(w, http.StatusCreated, toPermissionResponse(perm))
}

// DeprecatePermission maneja POST /admin/permissions/{id}/deprecate.
func (c *RBACController) DeprecatePermission(w http.ResponseWriter, r *http.Request) {
	var req dto.DeprecatePermissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	if err := c.manager.DeprecatePermission(r.Context(), chi.URLParam(r, "id"), req.Reason); err != nil {
		httperrors.WriteError(w, r, mapRBACError(err))
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "permiso deprecado"})
}

// DeletePermission maneja DELETE /admin/permissions/{id}.
func (c *RBACController) DeletePermission(w http.ResponseWriter, r *http.Request) {
	if err := c.manager.DeletePermission(r.Context(), chi.URLParam(r, "id")); err != nil {
		httperrors.WriteError(w, r, mapRBACError(err))
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "permiso eliminado"})
}

func toRoleResponse(role *repository.Role, perms []repository.Permission) dto.RoleResponse {
	resp := dto.RoleResponse{
		ID:           role.ID,
		Name:         role.Name,
		Description:  role.Description,
		ParentRoleID: role.ParentRoleID,
		System:       role.System,
		Level:        role.Level,
		CreatedAt:    role.CreatedAt,
	}
	for _, p := range perms {
		resp.Permissions = append(resp.Permissions, toPermissionResponse(&p))
	}
	return resp
}

func toPermissionResponse(p *repository.Permission) dto.PermissionResponse {
	return dto.PermissionResponse{
		ID:               p.ID,
		Name:             p.Name,
		Group:            p.Group,
		Action:           p.Action,
		Resource:         p.Resource,
		System:           p.System,
		Deprecated:       p.Deprecated,
		DeprecatedReason: p.DeprecatedReason,
	}
}

func mapRBACError(err error) error {
	switch {
	case repository.IsNotFound(err):
		return httperrors.ErrNotFound
	case repository.IsConflict(err):
		return httperrors.ErrConflict
	case errors.Is(err, repository.ErrSystemProtected):
		return httperrors.ErrSystemProtected
	case errors.Is(err, rbac.ErrInheritanceCycle):
		return httperrors.ErrBadRequest.WithDetail("la herencia propuesta crea un ciclo")
	case errors.Is(err, rbac.ErrInvalidName):
		return httperrors.ErrInvalidFormat.WithDetail("nombre de rol o permiso inválido")
	default:
		return err
	}
}
