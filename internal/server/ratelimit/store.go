package ratelimit

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/neurorecall/internal/dbx"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/attempts"
)

// StoreCounter keeps attempts in the rate_limit_attempts table.
type StoreCounter struct {
	db    *sql.DB
	repos func(dbx.DBTX) attempts.Repository
}

// NewStoreCounter builds a counter over db. repos binds the attempts
// repository to a connection or transaction.
func NewStoreCounter(db *sql.DB, repos func(dbx.DBTX) attempts.Repository) *StoreCounter {
	return &StoreCounter{db: db, repos: repos}
}

func (c *StoreCounter) Record(ctx context.Context, key string, at time.Time) error {
	return c.repos(c.db).Record(ctx, key, at)
}

func (c *StoreCounter) Count(ctx context.Context, key string, since time.Time) (int, error) {
	return c.repos(c.db).CountSince(ctx, key, since)
}

// Take counts and records inside one transaction holding a per-key lock, so
// server processes sharing the table serialize on the same key.
func (c *StoreCounter) Take(ctx context.Context, key string, at, since time.Time, max int) (bool, error) {
	var allowed bool
	err := dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := c.repos(tx)
		if err := repo.Lock(ctx, key); err != nil {
			return err
		}
		n, err := repo.CountSince(ctx, key, since)
		if err != nil {
			return err
		}
		if n >= max {
			return nil
		}
		if err := repo.Record(ctx, key, at); err != nil {
			return err
		}
		allowed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return allowed, nil
}

func (c *StoreCounter) Prune(ctx context.Context, before time.Time) (int64, error) {
	return c.repos(c.db).DeleteBefore(ctx, before)
}
