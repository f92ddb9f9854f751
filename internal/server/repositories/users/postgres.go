package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/dmitrijs2005/neurorecall/internal/dbx"
	"github.com/dmitrijs2005/neurorecall/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const selectColumns = `SELECT id, username, email, password_hash, age, sex, profile_photo, role,
		failed_login_attempts, locked_until, last_login, reset_token, reset_token_expiry, created_at
		FROM users`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (username, email, password_hash, age, sex, role)
         VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at
		 `

	role := user.Role
	if role == "" {
		role = models.RoleUser
	}

	err := r.db.QueryRowContext(ctx, query,
		user.UserName, user.Email, user.PasswordHash, user.Age, user.Sex, role).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Role = role
	return user, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, selectColumns+" WHERE "+where, arg).Scan(
		&user.ID, &user.UserName, &user.Email, &user.PasswordHash, &user.Age, &user.Sex, &user.ProfilePhoto, &user.Role,
		&user.FailedLoginAttempts, &user.LockedUntil, &user.LastLogin, &user.ResetToken, &user.ResetTokenExpiry, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, userName string) (*models.User, error) {
	return r.getOne(ctx, "username = $1", userName)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email = lower($1)", email)
}

func (r *PostgresRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	return r.getOne(ctx, "reset_token = $1", token)
}

func (r *PostgresRepository) RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, error) {
	query :=
		`UPDATE users SET failed_login_attempts = failed_login_attempts + 1,
		 locked_until = CASE WHEN failed_login_attempts + 1 >= $2 THEN $3 ELSE locked_until END
		 WHERE id = $1
		 RETURNING failed_login_attempts
		 `

	var attempts int
	if err := r.db.QueryRowContext(ctx, query, id, maxAttempts, lockUntil).Scan(&attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return attempts, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) RecordSuccessfulLogin(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx,
		`UPDATE users SET failed_login_attempts = 0, locked_until = NULL, last_login = $2 WHERE id = $1`,
		id, at)
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, id string, token string, expiry time.Time) error {
	return r.exec(ctx,
		`UPDATE users SET reset_token = $2, reset_token_expiry = $3 WHERE id = $1`,
		id, token, expiry)
}

func (r *PostgresRepository) ClearResetToken(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE users SET reset_token = NULL, reset_token_expiry = NULL WHERE id = $1`, id)
}

func (r *PostgresRepository) ResetPassword(ctx context.Context, id string, passwordHash string) error {
	return r.exec(ctx,
		`UPDATE users SET password_hash = $2, reset_token = NULL, reset_token_expiry = NULL,
		 failed_login_attempts = 0, locked_until = NULL WHERE id = $1`,
		id, passwordHash)
}

func (r *PostgresRepository) SetProfilePhoto(ctx context.Context, id string, key string) error {
	return r.exec(ctx, `UPDATE users SET profile_photo = $2 WHERE id = $1`, id, key)
}

func (r *PostgresRepository) SetRole(ctx context.Context, id string, role string) error {
	return r.exec(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, role)
}

func (r *PostgresRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token = NULL, reset_token_expiry = NULL WHERE reset_token_expiry < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
