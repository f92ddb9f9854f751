// Package attempts stores timestamped attempts per rate-limit key.
package attempts

import (
	"context"
	"time"
)

type Repository interface {
	// Lock takes a transaction-scoped lock on key; it is released on commit
	// or rollback. Outside a transaction it is released immediately.
	Lock(ctx context.Context, key string) error
	Record(ctx context.Context, key string, at time.Time) error
	// CountSince returns the attempts recorded for key at or after since.
	CountSince(ctx context.Context, key string, since time.Time) (int, error)
	// DeleteBefore drops attempts older than before, for every key.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
