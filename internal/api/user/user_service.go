package user

import (
	"context"
	"log/slog"

	"github.com/careconnect/portal-api/internal/types"
)

var _ UserService = (*UserServiceImpl)(nil)

type UserService interface {
	GetProfile(ctx context.Context, userID string) (*types.User, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*types.User, error)
	ListUsers(ctx context.Context) ([]types.User, error)
	SetUserStatus(ctx context.Context, userID string, active bool) error
}

type UserServiceImpl struct {
	logger *slog.Logger
	repo   UserRepo
}

func NewUserService(repo UserRepo, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *UserServiceImpl) GetProfile(ctx context.Context, userID string) (*types.User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *UserServiceImpl) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*types.User, error) {
	return s.repo.UpdateProfile(ctx, userID, update)
}

func (s *UserServiceImpl) ListUsers(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// SetUserStatus flips the account's active flag. Deactivation takes effect
// on the next authenticated request because the middleware re-fetches the
// user on every request.
func (s *UserServiceImpl) SetUserStatus(ctx context.Context, userID string, active bool) error {
	if err := s.repo.SetActive(ctx, userID, active); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "User status changed",
		slog.String("user_id", userID), slog.Bool("active", active))
	return nil
}
