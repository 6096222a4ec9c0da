package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of portal roles. Persisted as text with a CHECK
// constraint; anything outside the set is rejected at the boundary.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleNurse   Role = "nurse"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a raw role value against the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient, RoleDoctor, RoleNurse, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) String() string { return string(r) }

// User is the identity record backing every authentication decision.
// PasswordHash is never serialized; reset/verification tokens are internal
// bookkeeping and stay server-side as well.
type User struct {
	ID                     uuid.UUID  `json:"id" db:"id"`
	Email                  string     `json:"email" db:"email"`
	PasswordHash           string     `json:"-" db:"password_hash"`
	FirstName              string     `json:"firstName" db:"first_name"`
	LastName               string     `json:"lastName" db:"last_name"`
	Role                   Role       `json:"role" db:"role"`
	Phone                  *string    `json:"phone,omitempty" db:"phone"`
	DateOfBirth            *string    `json:"dateOfBirth,omitempty" db:"date_of_birth"`
	Gender                 *string    `json:"gender,omitempty" db:"gender"`
	Address                *string    `json:"address,omitempty" db:"address"`
	ProfileImage           *string    `json:"profileImage,omitempty" db:"profile_image"`
	IsActive               bool       `json:"isActive" db:"is_active"`
	IsEmailVerified        bool       `json:"isEmailVerified" db:"is_email_verified"`
	EmailVerificationToken *string    `json:"-" db:"email_verification_token"`
	PasswordResetToken     *string    `json:"-" db:"password_reset_token"`
	PasswordResetExpires   *time.Time `json:"-" db:"password_reset_expires"`
	LastLoginAt            *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt              time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt              time.Time  `json:"updatedAt" db:"updated_at"`
}
