package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/neurorecall/internal/logging"
	"github.com/dmitrijs2005/neurorecall/internal/server/ratelimit"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/repomanager"
)

// MaintenanceService purges expired credentials and stale rate-limit data.
type MaintenanceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	pruners     []ratelimit.Pruner
	// retention is how long rate-limit attempts are kept.
	retention time.Duration
	logger    logging.Logger
	now       func() time.Time
}

func NewMaintenanceService(db *sql.DB, m repomanager.RepositoryManager, retention time.Duration, logger logging.Logger, pruners ...ratelimit.Pruner) *MaintenanceService {
	return &MaintenanceService{
		db:          db,
		repomanager: m,
		pruners:     pruners,
		retention:   retention,
		logger:      logger.With("module", "maintenance"),
		now:         time.Now,
	}
}

// PurgeResetTokens clears reset tokens past their expiry.
func (s *MaintenanceService) PurgeResetTokens(ctx context.Context) (int64, error) {
	n, err := s.repomanager.Users(s.db).ClearExpiredResetTokens(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("clear expired reset tokens: %w", err)
	}
	s.logger.Debug(ctx, "expired reset tokens cleared", "count", n)
	return n, nil
}

// PurgeRefreshTokens deletes expired refresh tokens.
func (s *MaintenanceService) PurgeRefreshTokens(ctx context.Context) (int64, error) {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	s.logger.Debug(ctx, "expired refresh tokens deleted", "count", n)
	return n, nil
}

// PruneAttempts forgets rate-limit attempts older than the retention.
func (s *MaintenanceService) PruneAttempts(ctx context.Context) (int64, error) {
	before := s.now().Add(-s.retention)
	var total int64
	var errs []error
	for _, p := range s.pruners {
		n, err := p.Prune(ctx, before)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		total += n
	}
	if err := errors.Join(errs...); err != nil {
		return total, fmt.Errorf("prune attempts: %w", err)
	}
	s.logger.Debug(ctx, "rate-limit attempts pruned", "count", total)
	return total, nil
}
