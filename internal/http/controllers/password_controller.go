package controllers

import (
	"errors"
	"net/http"

	"github.com/wayfarerhq/wayfarer/internal/http/dto"
	httperrors "github.com/wayfarerhq/wayfarer/internal/http/errors"
	"github.com/wayfarerhq/wayfarer/internal/http/middlewares"
	passwordsvc "github.com/wayfarerhq/wayfarer/internal/http/services/password"
)

// PasswordController maneja cambio y reset de contraseñas.
type PasswordController struct {
	service *passwordsvc.Service
}

// NewPasswordController crea el controller.
func NewPasswordController(service *passwordsvc.Service) *PasswordController {
	return &PasswordController{service: service}
}

// Change maneja POST /me/password. Requiere autenticación.
func (c *PasswordController) Change(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		httperrors.WriteError(w, r, httperrors.ErrMissingFields)
		return
	}

	userID := middlewares.GetUserID(r.Context())
	if err := c.service.Change(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		httperrors.WriteError(w, r, mapPasswordError(err))
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "contraseña actualizada"})
}

// Forgot maneja POST /auth/password/forgot. La respuesta es siempre la
// misma, exista o no el email.
func (c *PasswordController) Forgot(w http.ResponseWriter, r *http.Request) {
	var req dto.RequestPasswordResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	if req.Email == "" {
		httperrors.WriteError(w, r, httperrors.ErrMissingFields)
		return
	}

	if err := c.service.RequestReset(r.Context(), req.Email); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "si el email existe, se envió el link de reset"})
}

// Reset maneja POST /auth/password/reset.
func (c *PasswordController) Reset(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		httperrors.WriteError(w, r, httperrors.ErrMissingFields)
		return
	}

	if err := c.service.Reset(r.Context(), req.Token, req.NewPassword); err != nil {
		httperrors.WriteError(w, r, mapPasswordError(err))
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "contraseña restablecida"})
}

func mapPasswordError(err error) error {
	switch {
	case errors.Is(err, passwordsvc.ErrInvalidCredentials), errors.Is(err, passwordsvc.ErrNoPassword):
		return httperrors.ErrInvalidCredentials
	case errors.Is(err, passwordsvc.ErrWeakPassword):
		return httperrors.ErrPasswordTooWeak
	case errors.Is(err, passwordsvc.ErrInvalidResetToken):
		return httperrors.ErrTokenInvalid
	default:
		return err
	}
}
