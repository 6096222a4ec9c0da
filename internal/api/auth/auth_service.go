package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/careconnect/portal-api/app/observability/metrics"
	"github.com/careconnect/portal-api/internal/types"
)

// bcryptCost matches the original deployment; high enough to resist
// offline brute force at interactive latency.
const bcryptCost = 12

// resetTokenTTL is the validity window for password reset tokens.
const resetTokenTTL = time.Hour

var _ AuthService = (*AuthServiceImpl)(nil)

// RegisterInput carries the validated registration fields into the service.
type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Role        types.Role
	Phone       *string
	DateOfBirth *string
	Gender      *string
	Address     *string
}

// AuthService orchestrates registration, login, token refresh, password
// reset and email verification over the credential store and token service.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*types.User, types.TokenPair, error)
	Login(ctx context.Context, email, password string) (*types.User, types.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (types.TokenPair, error)
	RequestPasswordReset(ctx context.Context, email string) error
	CompletePasswordReset(ctx context.Context, token, newPassword string) error
	VerifyEmail(ctx context.Context, token string) error
	Logout(ctx context.Context) error
}

type AuthServiceImpl struct {
	logger  *slog.Logger
	repo    AuthRepo
	tokens  *TokenService
	metrics *metrics.AppMetrics
}

func NewAuthService(repo AuthRepo, tokens *TokenService, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:  logger,
		repo:    repo,
		tokens:  tokens,
		metrics: metrics.Get(),
	}
}

// Register creates a new user and issues a token pair. Duplicate emails
// surface as ErrDuplicateEmail from the store's unique constraint.
func (s *AuthServiceImpl) Register(ctx context.Context, input RegisterInput) (*types.User, types.TokenPair, error) {
	start := time.Now()

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, types.TokenPair{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	verificationToken := NewVerificationToken()
	user := &types.User{
		ID:           uuid.New(),
		Email:        NormalizeEmail(input.Email),
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         input.Role,
		Phone:        input.Phone,
		DateOfBirth:  input.DateOfBirth,
		Gender:       input.Gender,
		Address:      input.Address,
		IsActive:     true,
		// Demo behavior carried over from the original deployment: accounts
		// start verified, while a verification token is still recorded.
		IsEmailVerified:        true,
		EmailVerificationToken: &verificationToken,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		s.countStoreError(ctx, err)
		return nil, types.TokenPair{}, err
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, types.TokenPair{}, err
	}

	if s.metrics != nil {
		s.metrics.RegisterRequestsTotal.Add(ctx, 1)
		s.metrics.RegisterDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}
	s.logger.InfoContext(ctx, "New user registered",
		slog.String("email", user.Email), slog.String("role", user.Role.String()))
	return user, pair, nil
}

// Login authenticates a user. Unknown email, wrong password and a
// deactivated account all collapse to ErrInvalidCredentials so callers
// cannot enumerate accounts.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*types.User, types.TokenPair, error) {
	if s.metrics != nil {
		s.metrics.LoginAttemptsTotal.Add(ctx, 1)
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return nil, types.TokenPair{}, s.loginRejected(ctx, email, "unknown email")
		}
		s.countStoreError(ctx, err)
		return nil, types.TokenPair{}, err
	}

	if !user.IsActive {
		return nil, types.TokenPair{}, s.loginRejected(ctx, email, "inactive account")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, types.TokenPair{}, s.loginRejected(ctx, email, "password mismatch")
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID.String()); err != nil {
		// Not fatal for the login itself.
		s.logger.WarnContext(ctx, "Failed to update last login", slog.Any("error", err))
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, types.TokenPair{}, err
	}

	s.logger.InfoContext(ctx, "User logged in", slog.String("email", user.Email))
	return user, pair, nil
}

func (s *AuthServiceImpl) loginRejected(ctx context.Context, email, reason string) error {
	if s.metrics != nil {
		s.metrics.LoginFailuresTotal.Add(ctx, 1)
	}
	// Reason stays in the logs only; the client sees one message for every
	// cause.
	s.logger.WarnContext(ctx, "Login rejected",
		slog.String("email", NormalizeEmail(email)), slog.String("reason", reason))
	return types.ErrInvalidCredentials
}

// Refresh rotates the token pair. The refresh token's claims are only a
// cache of identity: the user is re-fetched, and a deleted or deactivated
// account invalidates the token.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (types.TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return types.TokenPair{}, types.ErrInvalidToken
	}

	user, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return types.TokenPair{}, types.ErrInvalidToken
		}
		s.countStoreError(ctx, err)
		return types.TokenPair{}, err
	}
	if !user.IsActive {
		return types.TokenPair{}, types.ErrInvalidToken
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return types.TokenPair{}, err
	}
	if s.metrics != nil {
		s.metrics.TokenRefreshTotal.Add(ctx, 1)
	}
	return pair, nil
}

// RequestPasswordReset stores a fresh single-use reset token when the email
// belongs to an active account. The caller returns the same generic
// message either way; only store failures propagate.
func (s *AuthServiceImpl) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return nil
		}
		s.countStoreError(ctx, err)
		return err
	}
	if !user.IsActive {
		return nil
	}

	token := NewVerificationToken()
	expires := time.Now().Add(resetTokenTTL)
	if err := s.repo.SetPasswordResetToken(ctx, user.ID.String(), token, expires); err != nil {
		s.countStoreError(ctx, err)
		return err
	}

	// Dispatching the token to the user is an external collaborator
	// (email sender); here it only reaches the logs.
	s.logger.InfoContext(ctx, "Password reset requested", slog.String("email", user.Email))
	return nil
}

// CompletePasswordReset consumes a reset token. Expired and unknown tokens
// are the same ErrInvalidToken outcome.
func (s *AuthServiceImpl) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	user, err := s.repo.GetUserByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return types.ErrInvalidToken
		}
		s.countStoreError(ctx, err)
		return err
	}
	if user.PasswordResetExpires == nil || time.Now().After(*user.PasswordResetExpires) {
		return types.ErrInvalidToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.CompletePasswordReset(ctx, user.ID.String(), string(hash)); err != nil {
		s.countStoreError(ctx, err)
		return err
	}
	s.logger.InfoContext(ctx, "Password reset completed", slog.String("email", user.Email))
	return nil
}

// VerifyEmail marks the account verified and clears the one-shot token.
func (s *AuthServiceImpl) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.repo.GetUserByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return types.ErrInvalidToken
		}
		s.countStoreError(ctx, err)
		return err
	}
	if err := s.repo.MarkEmailVerified(ctx, user.ID.String()); err != nil {
		s.countStoreError(ctx, err)
		return err
	}
	return nil
}

// Logout is a stateless acknowledgment. No server-side revocation exists:
// an already-issued access token stays valid until its natural expiry.
// Known gap; keep the access TTL short relative to trust requirements.
func (s *AuthServiceImpl) Logout(ctx context.Context) error {
	return nil
}

func (s *AuthServiceImpl) countStoreError(ctx context.Context, err error) {
	if s.metrics != nil && errors.Is(err, types.ErrStoreUnavailable) {
		s.metrics.StoreErrorsTotal.Add(ctx, 1)
	}
}
