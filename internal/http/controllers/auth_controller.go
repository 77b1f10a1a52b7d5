package controllers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
	"github.com/wayfarerhq/wayfarer/internal/http/dto"
	httperrors "github.com/wayfarerhq/wayfarer/internal/http/errors"
	"github.com/wayfarerhq/wayfarer/internal/http/middlewares"
	authsvc "github.com/wayfarerhq/wayfarer/internal/http/services/auth"
	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
)

// AuthController maneja registro, login, logout, verificación y refresh.
type AuthController struct {
	service *authsvc.Service
}

// NewAuthController crea el controller.
func NewAuthController(service *authsvc.Service) *AuthController {
	return &AuthController{service: service}
}

// Register maneja POST /auth/register.
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	result, err := c.service.Register(r.Context(), authsvc.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	}, loginMeta(r))
	if err != nil {
		httperrors.WriteError(w, r, mapAuthError(err))
		return
	}

	writeJSON(w, http.StatusCreated, toAuthResponse(result))
}

// Login maneja POST /auth/login.
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	result, err := c.service.Login(r.Context(), req.Email, req.Password, loginMeta(r))
	if err != nil {
		httperrors.WriteError(w, r, mapAuthError(err))
		return
	}

	writeJSON(w, http.StatusOK, toAuthResponse(result))
}

// LoginOAuth maneja POST /auth/oauth/{provider}.
func (c *AuthController) LoginOAuth(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	var req dto.OAuthLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	if req.AccessToken == "" {
		httperrors.WriteError(w, r, httperrors.ErrMissingFields)
		return
	}

	result, err := c.service.LoginOAuth(r.Context(), provider, req.AccessToken, loginMeta(r))
	if err != nil {
		httperrors.WriteError(w, r, mapAuthError(err))
		return
	}

	writeJSON(w, http.StatusOK, toAuthResponse(result))
}

// Logout maneja POST /auth/logout. Requiere autenticación.
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := middlewares.GetSessionID(r.Context())
	if err := c.service.Logout(r.Context(), sessionID); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "sesión cerrada"})
}

// VerifyEmail maneja POST /auth/verify-email.
func (c *AuthController) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	if req.Token == "" {
		httperrors.WriteError(w, r, httperrors.ErrMissingFields)
		return
	}

	if err := c.service.VerifyEmail(r.Context(), req.Token); err != nil {
		httperrors.WriteError(w, r, mapAuthError(err))
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "email verificado"})
}

// ResendVerification maneja POST /auth/resend-verification.
func (c *AuthController) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req dto.ResendVerificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	if err := c.service.ResendVerification(r.Context(), req.Email); err != nil {
		// Acá el fallo de SMTP sí se escala: el usuario espera el mail.
		logger.From(r.Context()).Warn("resend verification failed", logger.Err(err))
		httperrors.WriteError(w, r, mapAuthError(err))
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "si el email existe, se envió la verificación"})
}

// Refresh maneja POST /auth/refresh.
func (c *AuthController) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	if req.RefreshToken == "" {
		httperrors.WriteError(w, r, httperrors.ErrMissingFields)
		return
	}

	pair, err := c.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httperrors.WriteError(w, r, mapAuthError(err))
		return
	}

	writeJSON(w, http.StatusOK, dto.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
	})
}

// RevokeToken maneja POST /auth/revoke.
func (c *AuthController) RevokeToken(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	if err := c.service.RevokeRefresh(r.Context(), req.RefreshToken); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "token revocado"})
}

// ListTokens maneja GET /me/tokens.
func (c *AuthController) ListTokens(w http.ResponseWriter, r *http.Request) {
	userID := middlewares.GetUserID(r.Context())

	toks, err := c.service.ListRefreshTokens(r.Context(), userID)
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	out := make([]dto.RefreshTokenResponse, 0, len(toks))
	for _, t := range toks {
		out = append(out, dto.RefreshTokenResponse{
			ID:        t.ID,
			CreatedAt: t.IssuedAt,
			ExpiresAt: t.ExpiresAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func loginMeta(r *http.Request) authsvc.LoginMeta {
	return authsvc.LoginMeta{
		IPAddress:  clientIP(r),
		UserAgent:  r.UserAgent(),
		DeviceInfo: r.Header.Get("X-Device-Info"),
	}
}

func toAuthResponse(res *authsvc.Result) dto.AuthResponse {
	return dto.AuthResponse{
		User:         toUserResponse(res.User, res.RoleName),
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    res.ExpiresIn,
	}
}

func toUserResponse(u *repository.User, roleName string) dto.UserResponse {
	return dto.UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		Role:          roleName,
		Active:        u.Active,
		EmailVerified: u.EmailVerified,
		Picture:       u.Picture,
		CreatedAt:     u.CreatedAt,
		VerifiedAt:    u.EmailVerifiedAt,
	}
}

// mapAuthError traduce los errores del service a la taxonomía HTTP.
func mapAuthError(err error) error {
	switch {
	case errors.Is(err, authsvc.ErrMissingFields):
		return httperrors.ErrMissingFields
	case errors.Is(err, authsvc.ErrInvalidEmail):
		return httperrors.ErrInvalidFormat.WithDetail("email inválido")
	case errors.Is(err, authsvc.ErrWeakPassword):
		return httperrors.ErrPasswordTooWeak
	case errors.Is(err, authsvc.ErrEmailTaken):
		return httperrors.ErrEmailAlreadyInUse
	case errors.Is(err, authsvc.ErrUsernameTaken):
		return httperrors.ErrUsernameTaken
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		return httperrors.ErrInvalidCredentials
	case errors.Is(err, authsvc.ErrAccountLocked):
		return httperrors.ErrAccountLocked
	case errors.Is(err, authsvc.ErrAccountInactive):
		return httperrors.ErrAccountInactive
	case errors.Is(err, authsvc.ErrEmailNotVerified):
		return httperrors.ErrEmailNotVerified
	case errors.Is(err, authsvc.ErrAlreadyVerified):
		return httperrors.ErrAlreadyVerified
	case errors.Is(err, authsvc.ErrInvalidToken):
		return httperrors.ErrTokenInvalid
	case errors.Is(err, authsvc.ErrRefreshInvalid), errors.Is(err, authsvc.ErrRefreshRevoked):
		return httperrors.ErrRefreshInvalid
	case errors.Is(err, authsvc.ErrUnsupportedProvider):
		return httperrors.ErrBadRequest.WithDetail("provider no soportado")
	default:
		return err
	}
}
