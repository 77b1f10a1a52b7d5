package controllers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wayfarerhq/wayfarer/internal/http/dto"
	httperrors "github.com/wayfarerhq/wayfarer/internal/http/errors"
	"github.com/wayfarerhq/wayfarer/internal/http/middlewares"
	sessionsvc "github.com/wayfarerhq/wayfarer/internal/http/services/session"
)

// SessionController maneja las sesiones del usuario autenticado.
type SessionController struct {
	service *sessionsvc.Service
}

// NewSessionController crea el controller.
func NewSessionController(service *sessionsvc.Service) *SessionController {
	return &SessionController{service: service}
}

// List maneja GET /me/sessions.
func (c *SessionController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)
	current := middlewares.GetSessionID(ctx)

	sessions, err := c.service.List(ctx, userID)
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	out := make([]dto.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, dto.SessionResponse{
			ID:         s.ID,
			IPAddress:  s.IPAddress,
			UserAgent:  s.UserAgent,
			DeviceInfo: s.DeviceInfo,
			Current:    s.ID == current,
			CreatedAt:  s.CreatedAt,
			ExpiresAt:  s.ExpiresAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Revoke maneja DELETE /me/sessions/{id}.
func (c *SessionController) Revoke(w http.ResponseWriter, r *http.Request) {
	userID := middlewares.GetUserID(r.Context())
	sessionID := chi.URLParam(r, "id")

	err := c.service.Revoke(r.Context(), userID, sessionID)
	if errors.Is(err, sessionsvc.ErrNotOwned) {
		httperrors.WriteError(w, r, httperrors.ErrNotFound)
		return
	}
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "sesión revocada"})
}

// RevokeAll maneja DELETE /me/sessions. Preserva la sesión actual.
func (c *SessionController) RevokeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)
	current := middlewares.GetSessionID(ctx)

	n, err := c.service.RevokeAll(ctx, userID, current)
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RevokedResponse{Revoked: n})
}
