package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/careconnect/portal-api/internal/api"
	"github.com/careconnect/portal-api/internal/types"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityFromContext returns the authenticated principal attached by
// Authenticate or OptionalAuth.
func IdentityFromContext(ctx context.Context) (types.Identity, bool) {
	id, ok := ctx.Value(identityKey).(types.Identity)
	return id, ok
}

// ContextWithIdentity attaches a resolved principal to the context.
func ContextWithIdentity(ctx context.Context, identity types.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// resolveBearer runs the shared half of Authenticate and OptionalAuth:
// extract the bearer token, verify it, and re-fetch the user so claims are
// never trusted over current account state.
func resolveBearer(ctx context.Context, r *http.Request, tokens *TokenService, repo AuthRepo) (types.Identity, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return types.Identity{}, errors.New("authorization header required")
	}

	headerParts := strings.SplitN(authHeader, " ", 2)
	if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
		return types.Identity{}, errors.New("authorization header format must be Bearer {token}")
	}

	claims, err := tokens.VerifyAccess(headerParts[1])
	if err != nil {
		return types.Identity{}, types.ErrInvalidToken
	}

	user, err := repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return types.Identity{}, types.ErrInvalidToken
		}
		return types.Identity{}, err
	}
	if !user.IsActive {
		return types.Identity{}, types.ErrInvalidToken
	}

	return types.Identity{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   user.Role,
	}, nil
}

// Authenticate validates the bearer access token and attaches the resolved
// identity to the request context. Missing or invalid tokens, deleted
// users and deactivated accounts all short-circuit with 401.
func Authenticate(logger *slog.Logger, tokens *TokenService, repo AuthRepo) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			identity, err := resolveBearer(ctx, r, tokens, repo)
			if err != nil {
				if errors.Is(err, types.ErrStoreUnavailable) {
					l.ErrorContext(ctx, "Credential store unavailable during authentication", slog.Any("error", err))
					api.ErrorResponse(w, r, http.StatusServiceUnavailable, "Service temporarily unavailable")
					return
				}
				l.WarnContext(ctx, "Authentication rejected", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusUnauthorized, types.ErrInvalidToken.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(ctx, identity)))
		})
	}
}

// RequireRole rejects authenticated requests whose role is absent from the
// allow-list. Runs after Authenticate.
func RequireRole(logger *slog.Logger, roles ...types.Role) func(next http.Handler) http.Handler {
	allowed := make(map[types.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			identity, ok := IdentityFromContext(ctx)
			if !ok {
				logger.ErrorContext(ctx, "RequireRole used without Authenticate")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}

			if _, permitted := allowed[identity.Role]; !permitted {
				logger.WarnContext(ctx, "Role denied for route",
					slog.String("role", identity.Role.String()),
					slog.String("path", r.URL.Path))
				api.ErrorResponse(w, r, http.StatusForbidden, types.ErrInsufficientPermissions.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// OptionalAuth attaches an identity when a valid token is present and
// silently proceeds unauthenticated otherwise. It never fails the request.
func OptionalAuth(logger *slog.Logger, tokens *TokenService, repo AuthRepo) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			identity, err := resolveBearer(ctx, r, tokens, repo)
			if err == nil {
				ctx = ContextWithIdentity(ctx, identity)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
