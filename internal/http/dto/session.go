package dto

import "time"

// SessionResponse es la vista pública de una sesión activa.
type SessionResponse struct {
	ID         string    `json:"id"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	DeviceInfo string    `json:"device_info,omitempty"`
	Current    bool      `json:"current"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// RefreshTokenResponse es la vista pública de un refresh token activo.
type RefreshTokenResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RevokedResponse indica cuántas sesiones se revocaron.
type RevokedResponse struct {
	Revoked int `json:"revoked"`
}
