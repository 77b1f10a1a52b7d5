package dto

// ChangePasswordRequest es el body de POST /me/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// RequestPasswordResetRequest es el body de POST /auth/password/forgot.
type RequestPasswordResetRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest es el body de POST /auth/password/reset.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}
