package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/careconnect/portal-api/config"
	"github.com/careconnect/portal-api/internal/types"
)

// TokenService issues and verifies the signed access/refresh pair. Access
// and refresh tokens use distinct secrets and TTLs; a `typ` claim keeps
// cross-use failing even when the secrets are misconfigured to match.
type TokenService struct {
	cfg config.JWTConfig
}

func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{cfg: cfg}
}

// IssuePair signs a fresh access/refresh token pair for the given user.
func (s *TokenService) IssuePair(user *types.User) (types.TokenPair, error) {
	access, err := s.sign(user, types.TokenTypeAccess, s.cfg.SecretKey, s.cfg.AccessTokenTTL)
	if err != nil {
		return types.TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.sign(user, types.TokenTypeRefresh, s.cfg.RefreshSecretKey, s.cfg.RefreshTokenTTL)
	if err != nil {
		return types.TokenPair{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return types.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *TokenService) sign(user *types.User, typ types.TokenType, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &types.Claims{
		UserID:    user.ID.String(),
		Email:     user.Email,
		Role:      user.Role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyAccess validates an access token and returns its claims. Every
// failure mode (expired, malformed, bad signature, wrong token type)
// collapses to ErrInvalidToken.
func (s *TokenService) VerifyAccess(tokenString string) (*types.Claims, error) {
	return s.verify(tokenString, types.TokenTypeAccess, s.cfg.SecretKey)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (s *TokenService) VerifyRefresh(tokenString string) (*types.Claims, error) {
	return s.verify(tokenString, types.TokenTypeRefresh, s.cfg.RefreshSecretKey)
}

func (s *TokenService) verify(tokenString string, typ types.TokenType, secret string) (*types.Claims, error) {
	claims := &types.Claims{}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
	}
	if s.cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(s.cfg.Audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, parserOpts...)
	if err != nil || !token.Valid {
		return nil, types.ErrInvalidToken
	}
	if claims.TokenType != typ {
		return nil, types.ErrInvalidToken
	}
	if !claims.Role.Valid() {
		return nil, types.ErrInvalidToken
	}
	return claims, nil
}
