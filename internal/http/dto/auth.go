// Package dto define los contratos JSON de la API.
package dto

import "time"

// RegisterRequest es el body de POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest es el body de POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OAuthLoginRequest es el body de POST /auth/oauth/{provider}.
type OAuthLoginRequest struct {
	AccessToken string `json:"access_token"`
}

// RefreshRequest es el body de POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// VerifyEmailRequest es el body de POST /auth/verify-email.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// ResendVerificationRequest es el body de POST /auth/resend-verification.
type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// UserResponse es la vista pública de un usuario. Nunca incluye el hash.
type UserResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	Role          string     `json:"role,omitempty"`
	Active        bool       `json:"active"`
	EmailVerified bool       `json:"email_verified"`
	Picture       string     `json:"picture,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
}

// AuthResponse es la respuesta de register/login/oauth.
type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	TokenType    string       `json:"token_type"` // siempre "Bearer"
	ExpiresIn    int64        `json:"expires_in"` // segundos del access token
}

// TokenPairResponse es la respuesta de POST /auth/refresh.
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// MessageResponse es una respuesta simple con mensaje.
type MessageResponse struct {
	Message string `json:"message"`
}
