package attempts

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/neurorecall/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Lock(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Record(ctx context.Context, key string, at time.Time) error {
	query := `INSERT INTO rate_limit_attempts (key, attempted_at) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, key, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountSince(ctx context.Context, key string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM rate_limit_attempts WHERE key = $1 AND attempted_at >= $2`
	var n int
	if err := r.db.QueryRowContext(ctx, query, key, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rate_limit_attempts WHERE attempted_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
