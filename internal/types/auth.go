package types

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenType discriminates access from refresh tokens so a refresh token can
// never pass access verification even if the secrets were misconfigured to
// the same value.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the identity fields embedded in a signed token. They are a
// cache of identity at issue time, not a source of truth for current
// account state; verification always re-fetches the user.
type Claims struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	TokenType TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Identity is the minimal authenticated principal attached to a request
// context after the middleware has resolved the bearer token to a live,
// active user.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

// TokenPair is the credential pair returned by login, register and refresh.
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}
