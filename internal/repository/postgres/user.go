package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Upendra-HQ/professional-backend-code/internal/domain"
	"github.com/Upendra-HQ/professional-backend-code/pkg/database"
	apperrors "github.com/Upendra-HQ/professional-backend-code/pkg/errors"
)

const userColumns = `id, username, email, fullname, avatar, cover_image, password_hash, refresh_token_hash, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	query := `
		INSERT INTO users (id, username, email, fullname, avatar, cover_image, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	ctx, end := database.TraceQuery(ctx, "CreateUser", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		u.ID,
		u.Username,
		u.Email,
		u.Fullname,
		u.Avatar,
		u.CoverImage,
		u.PasswordHash,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := database.IsUniqueViolation(err); ok {
			return duplicateUser(constraint, u)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(ctx, "GetUserByID", query, id)
}

// GetByUsernameOrEmail retrieves a user whose username or email matches.
func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	if username == "" && email == "" {
		return nil, apperrors.ErrNotFound
	}

	// NULLIF keeps an empty argument from matching anything.
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE username = NULLIF($1, '') OR email = NULLIF($2, '')
		LIMIT 1`
	return r.scanUser(ctx, "GetUserByUsernameOrEmail", query, username, email)
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.scanUser(ctx, "GetUserByUsername", query, username)
}

// UpdateFields applies the non-nil fields of f in a single statement.
func (r *UserRepository) UpdateFields(ctx context.Context, id string, f domain.UserFields) (*domain.User, error) {
	query := `
		UPDATE users
		SET fullname           = COALESCE($2, fullname),
		    email              = COALESCE($3, email),
		    avatar             = COALESCE($4, avatar),
		    cover_image        = COALESCE($5, cover_image),
		    password_hash      = COALESCE($6, password_hash),
		    refresh_token_hash = CASE WHEN $7 THEN NULL ELSE refresh_token_hash END,
		    updated_at         = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := r.scanUser(ctx, "UpdateUserFields", query,
		id, f.Fullname, f.Email, f.Avatar, f.CoverImage, f.PasswordHash, f.ClearRefreshToken)
	if err != nil {
		if constraint, ok := database.IsUniqueViolation(err); ok {
			dup := &domain.User{}
			if f.Email != nil {
				dup.Email = *f.Email
			}
			return nil, duplicateUser(constraint, dup)
		}
		return nil, err
	}
	return u, nil
}

// SetRefreshToken records fingerprint as the only redeemable refresh token.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id, fingerprint string) (err error) {
	query := `UPDATE users SET refresh_token_hash = $2, updated_at = NOW() WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "SetRefreshToken", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id, fingerprint)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}
	return nil
}

// ClearRefreshToken revokes the outstanding session.
func (r *UserRepository) ClearRefreshToken(ctx context.Context, id string) (err error) {
	query := `UPDATE users SET refresh_token_hash = NULL, updated_at = NOW() WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "ClearRefreshToken", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}
	return nil
}

// RotateRefreshToken swaps expected for next in one conditional UPDATE.
// Row-level locking serializes concurrent swaps, and a loser re-evaluates
// the WHERE clause against the winner's value, so it matches zero rows.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, id, expected, next string) (_ bool, err error) {
	query := `
		UPDATE users
		SET refresh_token_hash = $3, updated_at = NOW()
		WHERE id = $1 AND refresh_token_hash = $2`

	ctx, end := database.TraceQuery(ctx, "RotateRefreshToken", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id, expected, next)
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *UserRepository) scanUser(ctx context.Context, op, query string, args ...any) (_ *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() {
		if errors.Is(err, apperrors.ErrNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	var (
		u           domain.User
		refreshHash *string
	)
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Fullname,
		&u.Avatar,
		&u.CoverImage,
		&u.PasswordHash,
		&refreshHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		if _, ok := database.IsUniqueViolation(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if refreshHash != nil {
		u.RefreshTokenHash = *refreshHash
	}

	return &u, nil
}

func duplicateUser(constraint string, u *domain.User) *apperrors.AppError {
	switch {
	case strings.Contains(constraint, "username"):
		return apperrors.AlreadyExists("user", "username", u.Username)
	case strings.Contains(constraint, "email"):
		return apperrors.AlreadyExists("user", "email", u.Email)
	default:
		return apperrors.AlreadyExists("user", "username or email", u.Username)
	}
}
