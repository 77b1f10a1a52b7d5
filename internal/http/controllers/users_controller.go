package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
	"github.com/wayfarerhq/wayfarer/internal/http/dto"
	httperrors "github.com/wayfarerhq/wayfarer/internal/http/errors"
	adminsvc "github.com/wayfarerhq/wayfarer/internal/http/services/admin"
)

// UsersController maneja la administración de cuentas.
type UsersController struct {
	service *adminsvc.UserService
}

// NewUsersController crea el controller.
func NewUsersController(service *adminsvc.UserService) *UsersController {
	return &UsersController{service: service}
}

// Get maneja GET /admin/users/{id}.
func (c *UsersController) Get(w http.ResponseWriter, r *http.Request) {
	user, err := c.service.Get(r.Context(), chi.URLParam(r, "id"))
	if repository.IsNotFound(err) {
		httperrors.WriteError(w, r, httperrors.ErrUserNotFound)
		return
	}
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user, ""))
}

// SetActive maneja PATCH /admin/users/{id}/active.
func (c *UsersController) SetActive(w http.ResponseWriter, r *http.Request) {
	var req dto.SetActiveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	err := c.service.SetActive(r.Context(), chi.URLParam(r, "id"), req.Active)
	if repository.IsNotFound(err) {
		httperrors.WriteError(w, r, httperrors.ErrUserNotFound)
		return
	}
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "estado actualizado"})
}

// Delete maneja DELETE /admin/users/{id}.
func (c *UsersController) Delete(w http.ResponseWriter, r *http.Request) {
	err := c.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if repository.IsNotFound(err) {
		httperrors.WriteError(w, r, httperrors.ErrUserNotFound)
		return
	}
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "usuario eliminado"})
}
