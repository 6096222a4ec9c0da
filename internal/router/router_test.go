package router

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careconnect/portal-api/config"
	"github.com/careconnect/portal-api/internal/api/auth"
	"github.com/careconnect/portal-api/internal/api/health"
	"github.com/careconnect/portal-api/internal/api/user"
	"github.com/careconnect/portal-api/internal/rolegate"
	"github.com/careconnect/portal-api/internal/types"
)

// stubAuthService satisfies auth.AuthService; only Logout is exercised.
type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, input auth.RegisterInput) (*types.User, types.TokenPair, error) {
	return nil, types.TokenPair{}, types.ErrStoreUnavailable
}

func (stubAuthService) Login(ctx context.Context, email, password string) (*types.User, types.TokenPair, error) {
	return nil, types.TokenPair{}, types.ErrInvalidCredentials
}

func (stubAuthService) Refresh(ctx context.Context, refreshToken string) (types.TokenPair, error) {
	return types.TokenPair{}, types.ErrInvalidToken
}

func (stubAuthService) RequestPasswordReset(ctx context.Context, email string) error { return nil }

func (stubAuthService) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	return types.ErrInvalidToken
}

func (stubAuthService) VerifyEmail(ctx context.Context, token string) error {
	return types.ErrInvalidToken
}

func (stubAuthService) Logout(ctx context.Context) error { return nil }

// stubUserRepo satisfies user.UserRepo; the protected routes under test
// never get past the middleware.
type stubUserRepo struct{}

func (stubUserRepo) GetByID(ctx context.Context, id string) (*types.User, error) {
	return nil, types.ErrUserNotFound
}

func (stubUserRepo) UpdateProfile(ctx context.Context, id string, update user.ProfileUpdate) (*types.User, error) {
	return nil, types.ErrUserNotFound
}

func (stubUserRepo) List(ctx context.Context) ([]types.User, error) { return nil, nil }

func (stubUserRepo) SetActive(ctx context.Context, id string, active bool) error {
	return types.ErrUserNotFound
}

// stubAuthRepo satisfies auth.AuthRepo for the Authenticate middleware;
// every lookup misses, so no bearer token resolves to a user.
type stubAuthRepo struct{}

func (stubAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	return nil, types.ErrUserNotFound
}

func (stubAuthRepo) GetUserByID(ctx context.Context, id string) (*types.User, error) {
	return nil, types.ErrUserNotFound
}

func (stubAuthRepo) CreateUser(ctx context.Context, u *types.User) error { return nil }

func (stubAuthRepo) UpdateLastLogin(ctx context.Context, id string) error { return nil }

func (stubAuthRepo) SetPasswordResetToken(ctx context.Context, id, token string, expires time.Time) error {
	return nil
}

func (stubAuthRepo) GetUserByResetToken(ctx context.Context, token string) (*types.User, error) {
	return nil, types.ErrUserNotFound
}

func (stubAuthRepo) CompletePasswordReset(ctx context.Context, id, newPasswordHash string) error {
	return nil
}

func (stubAuthRepo) GetUserByVerificationToken(ctx context.Context, token string) (*types.User, error) {
	return nil, types.ErrUserNotFound
}

func (stubAuthRepo) MarkEmailVerified(ctx context.Context, id string) error { return nil }

func (stubAuthRepo) SetActive(ctx context.Context, id string, active bool) error { return nil }

func testRouter(t *testing.T) chi.Router {
	t.Helper()
	logger := slog.Default()
	tokens := auth.NewTokenService(config.JWTConfig{
		SecretKey:        "test-access-secret",
		RefreshSecretKey: "test-refresh-secret",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  time.Hour,
		Issuer:           "test-issuer",
	})

	return SetupRouter(&Config{
		AuthHandler:   auth.NewHandlerImpl(stubAuthService{}, logger),
		UserHandler:   user.NewHandlerImpl(user.NewUserService(stubUserRepo{}, logger), logger),
		HealthHandler: health.NewHandlerImpl(nil, "test", logger),
		Authenticate:  auth.Authenticate(logger, tokens, stubAuthRepo{}),
		RequireRoles: func(gate rolegate.Gate) func(http.Handler) http.Handler {
			return auth.RequireRole(logger, rolegate.AllowedRoles(gate)...)
		},
		RateLimit:      func(next http.Handler) http.Handler { return next },
		AllowedOrigins: []string{"*"},
	})
}

func TestLogoutWithoutToken(t *testing.T) {
	router := testRouter(t)

	// No Authorization header at all: the caller discarding a dead session
	// still gets acknowledged.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Logged out successfully")
}

func TestLogoutWithStaleToken(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer not-a-valid-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestProtectedRoutesStillGated(t *testing.T) {
	router := testRouter(t)

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodGet, "/api/v1/users"},
		{http.MethodPut, "/api/v1/users/someid/status"},
	} {
		req := httptest.NewRequest(route.method, route.path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s %s", route.method, route.path)
	}
}
