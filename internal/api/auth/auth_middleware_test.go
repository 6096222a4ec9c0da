package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/careconnect/portal-api/internal/types"
)

func identityEcho(t *testing.T, want types.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		require.True(t, ok, "handler reached without identity in context")
		assert.Equal(t, want, identity.Role)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	tokens := NewTokenService(testJWTConfig())
	logger := slog.Default()

	t.Run("MissingHeader", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		handler := Authenticate(logger, tokens, mockRepo)(identityEcho(t, types.RolePatient))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		mockRepo.AssertNotCalled(t, "GetUserByID")
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		handler := Authenticate(logger, tokens, mockRepo)(identityEcho(t, types.RolePatient))

		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("ValidToken", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		user := activeUser(t, "doc@x.com", "password123", types.RoleDoctor)
		pair, err := tokens.IssuePair(user)
		require.NoError(t, err)

		mockRepo.On("GetUserByID", mock.Anything, user.ID.String()).Return(user, nil).Once()
		handler := Authenticate(logger, tokens, mockRepo)(identityEcho(t, types.RoleDoctor))

		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockRepo.AssertExpectations(t)
	})

	t.Run("RefreshTokenRejected", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		user := activeUser(t, "doc@x.com", "password123", types.RoleDoctor)
		pair, err := tokens.IssuePair(user)
		require.NoError(t, err)

		handler := Authenticate(logger, tokens, mockRepo)(identityEcho(t, types.RoleDoctor))

		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		mockRepo.AssertNotCalled(t, "GetUserByID")
	})

	t.Run("DeactivatedUserWithLiveToken", func(t *testing.T) {
		// Claims in a still-valid token do not outlive a deactivation.
		mockRepo := new(MockAuthRepo)
		user := activeUser(t, "off@x.com", "password123", types.RoleNurse)
		pair, err := tokens.IssuePair(user)
		require.NoError(t, err)

		deactivated := *user
		deactivated.IsActive = false
		mockRepo.On("GetUserByID", mock.Anything, user.ID.String()).Return(&deactivated, nil).Once()

		handler := Authenticate(logger, tokens, mockRepo)(identityEcho(t, types.RoleNurse))

		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("StoreDown", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		user := activeUser(t, "doc@x.com", "password123", types.RoleDoctor)
		pair, err := tokens.IssuePair(user)
		require.NoError(t, err)

		mockRepo.On("GetUserByID", mock.Anything, user.ID.String()).
			Return(nil, types.ErrStoreUnavailable).Once()
		handler := Authenticate(logger, tokens, mockRepo)(identityEcho(t, types.RoleDoctor))

		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestRequireRole(t *testing.T) {
	tokens := NewTokenService(testJWTConfig())
	logger := slog.Default()

	serve := func(t *testing.T, user *types.User, allowed ...types.Role) *httptest.ResponseRecorder {
		t.Helper()
		mockRepo := new(MockAuthRepo)
		mockRepo.On("GetUserByID", mock.Anything, user.ID.String()).Return(user, nil).Once()

		pair, err := tokens.IssuePair(user)
		require.NoError(t, err)

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		handler := Authenticate(logger, tokens, mockRepo)(RequireRole(logger, allowed...)(next))

		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	t.Run("AllowedRole", func(t *testing.T) {
		admin := activeUser(t, "admin@x.com", "password123", types.RoleAdmin)
		rr := serve(t, admin, types.RoleAdmin)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("DeniedRole", func(t *testing.T) {
		nurse := activeUser(t, "nurse@x.com", "password123", types.RoleNurse)
		rr := serve(t, nurse, types.RoleAdmin)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("WithoutAuthenticate", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run without an identity")
		})
		handler := RequireRole(logger, types.RoleAdmin)(next)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestOptionalAuth(t *testing.T) {
	tokens := NewTokenService(testJWTConfig())
	logger := slog.Default()

	t.Run("NoTokenStillServes", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := IdentityFromContext(r.Context())
			assert.False(t, ok)
			w.WriteHeader(http.StatusOK)
		})
		handler := OptionalAuth(logger, tokens, mockRepo)(next)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("ValidTokenAttachesIdentity", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		user := activeUser(t, "pat@x.com", "password123", types.RolePatient)
		pair, err := tokens.IssuePair(user)
		require.NoError(t, err)
		mockRepo.On("GetUserByID", mock.Anything, user.ID.String()).Return(user, nil).Once()

		handler := OptionalAuth(logger, tokens, mockRepo)(identityEcho(t, types.RolePatient))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
