package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careconnect/portal-api/internal/types"
)

const queryTimeout = 3 * time.Second

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo covers profile reads/updates and the admin-facing directory.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*types.User, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*types.User, error)
	List(ctx context.Context) ([]types.User, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// ProfileUpdate carries the mutable profile fields; nil means unchanged.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	Phone       *string
	DateOfBirth *string
	Gender      *string
	Address     *string
}

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresUserRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const userColumns = `id, email, password_hash, first_name, last_name, role, phone,
       date_of_birth, gender, address, profile_image, is_active, is_email_verified,
       email_verification_token, password_reset_token, password_reset_expires,
       last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	var role string
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &role,
		&u.Phone, &u.DateOfBirth, &u.Gender, &u.Address, &u.ProfileImage,
		&u.IsActive, &u.IsEmailVerified, &u.EmailVerificationToken,
		&u.PasswordResetToken, &u.PasswordResetExpires, &u.LastLoginAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	parsed, err := types.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("corrupt role in store: %w", err)
	}
	u.Role = parsed
	return &u, nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return types.ErrUserNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return types.ErrStoreUnavailable
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%w: %s", types.ErrStoreUnavailable, pgErr.Code)
	}
	return fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id string) (*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := r.pgpool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, classify(err)
	}
	return user, nil
}

// UpdateProfile applies only the provided fields via COALESCE and returns
// the fresh row.
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := r.pgpool.QueryRow(ctx,
		`UPDATE users SET
            first_name    = COALESCE($1, first_name),
            last_name     = COALESCE($2, last_name),
            phone         = COALESCE($3, phone),
            date_of_birth = COALESCE($4, date_of_birth),
            gender        = COALESCE($5, gender),
            address       = COALESCE($6, address),
            updated_at    = $7
         WHERE id = $8
         RETURNING `+userColumns,
		update.FirstName, update.LastName, update.Phone, update.DateOfBirth,
		update.Gender, update.Address, time.Now(), id)
	user, err := scanUser(row)
	if err != nil {
		return nil, classify(err)
	}
	return user, nil
}

func (r *PostgresUserRepo) List(ctx context.Context) ([]types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pgpool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, classify(err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return users, nil
}

func (r *PostgresUserRepo) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.pgpool.Exec(ctx,
		`UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now(), id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}
	return nil
}
