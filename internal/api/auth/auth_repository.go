package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/careconnect/portal-api/internal/types"
)

// queryTimeout bounds every store operation so a slow database surfaces as
// ErrStoreUnavailable instead of hanging the request.
const queryTimeout = 3 * time.Second

const uniqueViolation = "23505"

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies
// it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// AuthRepo is the credential store contract. Implementations must enforce
// email uniqueness atomically and never hand the password hash past the
// auth service boundary.
type AuthRepo interface {
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	GetUserByID(ctx context.Context, id string) (*types.User, error)
	CreateUser(ctx context.Context, user *types.User) error
	UpdateLastLogin(ctx context.Context, id string) error
	SetPasswordResetToken(ctx context.Context, id, token string, expires time.Time) error
	GetUserByResetToken(ctx context.Context, token string) (*types.User, error)
	CompletePasswordReset(ctx context.Context, id, newPasswordHash string) error
	GetUserByVerificationToken(ctx context.Context, token string) (*types.User, error)
	MarkEmailVerified(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	db     DB
}

func NewPostgresAuthRepo(db DB, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		db:     db,
	}
}

// NormalizeEmail lowercases an email before any lookup or insert so
// uniqueness is case-insensitive end to end.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

const userColumns = `id, email, password_hash, first_name, last_name, role, phone,
       date_of_birth, gender, address, profile_image, is_active, is_email_verified,
       email_verification_token, password_reset_token, password_reset_expires,
       last_login_at, created_at, updated_at`

func (r *PostgresAuthRepo) scanUser(row pgx.Row) (*types.User, error) {
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

// classify maps driver errors onto the domain taxonomy.
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
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return types.ErrDuplicateEmail
	}
	return fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
}

func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		NormalizeEmail(email))
	user, err := r.scanUser(row)
	if err != nil {
		return nil, classify(err)
	}
	return user, nil
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, id string) (*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := r.scanUser(row)
	if err != nil {
		return nil, classify(err)
	}
	return user, nil
}

// CreateUser inserts a new user. Duplicate emails surface as
// ErrDuplicateEmail via the unique index, which also closes the race
// between a concurrent duplicate check and insert.
func (r *PostgresAuthRepo) CreateUser(ctx context.Context, user *types.User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	user.Email = NormalizeEmail(user.Email)
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (
            id, email, password_hash, first_name, last_name, role, phone,
            date_of_birth, gender, address, is_active, is_email_verified,
            email_verification_token, created_at, updated_at
         ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		string(user.Role), user.Phone, user.DateOfBirth, user.Gender, user.Address,
		user.IsActive, user.IsEmailVerified, user.EmailVerificationToken,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return classify(err)
	}
	return nil
}

func (r *PostgresAuthRepo) UpdateLastLogin(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.Exec(ctx,
		`UPDATE users SET last_login_at = $1, updated_at = $1 WHERE id = $2`,
		time.Now(), id)
	return classify(err)
}

// SetPasswordResetToken overwrites any previously issued reset token, so
// only the most recently requested token is honored.
func (r *PostgresAuthRepo) SetPasswordResetToken(ctx context.Context, id, token string, expires time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_reset_token = $1, password_reset_expires = $2, updated_at = $3
         WHERE id = $4`,
		token, expires, time.Now(), id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}
	return nil
}

func (r *PostgresAuthRepo) GetUserByResetToken(ctx context.Context, token string) (*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE password_reset_token = $1`, token)
	user, err := r.scanUser(row)
	if err != nil {
		return nil, classify(err)
	}
	return user, nil
}

// CompletePasswordReset replaces the hash and clears the single-use token.
func (r *PostgresAuthRepo) CompletePasswordReset(ctx context.Context, id, newPasswordHash string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $1, password_reset_token = NULL,
            password_reset_expires = NULL, updated_at = $2
         WHERE id = $3`,
		newPasswordHash, time.Now(), id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}
	return nil
}

func (r *PostgresAuthRepo) GetUserByVerificationToken(ctx context.Context, token string) (*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email_verification_token = $1`, token)
	user, err := r.scanUser(row)
	if err != nil {
		return nil, classify(err)
	}
	return user, nil
}

func (r *PostgresAuthRepo) MarkEmailVerified(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET is_email_verified = TRUE, email_verification_token = NULL,
            updated_at = $1
         WHERE id = $2`,
		time.Now(), id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}
	return nil
}

// SetActive flips the soft activation flag. Deactivation is a state, not a
// deletion; the record stays.
func (r *PostgresAuthRepo) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx,
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

// NewVerificationToken mints the opaque single-use tokens stored on the
// user row (email verification, password reset).
func NewVerificationToken() string {
	return uuid.NewString()
}
