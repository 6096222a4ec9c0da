package auth

import (
	"github.com/careconnect/portal-api/internal/types"
)

// RegisterRequest is the POST /auth/register body.
type RegisterRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=6"`
	FirstName   string  `json:"firstName" validate:"required,max=50"`
	LastName    string  `json:"lastName" validate:"required,max=50"`
	Role        string  `json:"role" validate:"required,oneof=patient doctor nurse admin"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	Gender      *string `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=255"`
}

// LoginRequest is the POST /auth/login body.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RefreshRequest is the POST /auth/refresh body.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// ResetPasswordRequest is the POST /auth/reset-password body.
type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CompleteResetRequest is the POST /auth/reset-password/complete body.
type CompleteResetRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// VerifyEmailRequest is the POST /auth/verify-email body.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// SessionResponse is the payload returned by register and login. The user
// struct hides its hash and internal tokens through its JSON tags.
type SessionResponse struct {
	User         *types.User `json:"user"`
	AccessToken  string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
}
