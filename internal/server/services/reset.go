package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/dmitrijs2005/neurorecall/internal/logging"
	"github.com/dmitrijs2005/neurorecall/internal/server/auth"
	"github.com/dmitrijs2005/neurorecall/internal/server/config"
	"github.com/dmitrijs2005/neurorecall/internal/server/mailer"
	"github.com/dmitrijs2005/neurorecall/internal/server/ratelimit"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/repomanager"
)

// Outcomes of a reset confirmation, as reported to clients.
const (
	ResetSuccessful         = "successful"
	ResetInvalidToken       = "invalidToken"
	ResetExpiredToken       = "expiredToken"
	ResetUnmatchedPasswords = "unmatchedPasswords"
)

// resetTokenBytes yields 43 base64url characters.
const (
	resetTokenBytes  = 32
	resetTokenLength = 43
)

// PasswordResetService issues reset links by mail and applies new passwords.
type PasswordResetService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	mailer      mailer.Mailer
	limiter     *ratelimit.Limiter
	validity    time.Duration
	frontendURL string
	logger      logging.Logger
	now         func() time.Time
}

func NewPasswordResetService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, ml mailer.Mailer, limiter *ratelimit.Limiter, logger logging.Logger) *PasswordResetService {
	return &PasswordResetService{
		db:          db,
		repomanager: m,
		mailer:      ml,
		limiter:     limiter,
		validity:    cfg.ResetTokenValidityDuration,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		logger:      logger.With("module", "password_reset"),
		now:         time.Now,
	}
}

// RequestReset mails a reset link to the account registered under email.
// Unknown addresses succeed silently. A still valid earlier token, or too
// many requests from clientKey, yield common.ErrorRateLimited.
func (s *PasswordResetService) RequestReset(ctx context.Context, email, clientKey string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return common.NewValidationError("email", "Email is required")
	}
	if !validEmail(email) {
		return common.NewValidationError("email", "Invalid email format")
	}

	allowed, err := s.limiter.Allow(ctx, "reset:"+clientKey)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	if !allowed {
		s.logger.Warn(ctx, "reset rate limit exceeded", "client", clientKey)
		return common.Public(common.ErrorRateLimited, "Too many reset requests. Please try again later.")
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "reset requested for unknown email", "client", clientKey)
			return nil
		}
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	now := s.now()
	if user.ResetToken != nil && user.ResetTokenExpiry != nil && user.ResetTokenExpiry.After(now) {
		return common.Public(common.ErrorRateLimited, "Reset email already sent recently")
	}

	token, err := common.MakeURLSafeToken(resetTokenBytes)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	if err := repo.SetResetToken(ctx, user.ID, token, now.Add(s.validity)); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	msg, err := mailer.ResetMessage(user.Email, user.UserName, s.frontendURL+"/password-reset/"+token, s.validity)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.logger.Error(ctx, "reset mail failed", "user_id", user.ID, "error", err)
		if clearErr := repo.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.logger.Error(ctx, "clear reset token failed", "user_id", user.ID, "error", clearErr)
		}
		return fmt.Errorf("%w: send reset mail: %w", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "reset mail sent", "user_id", user.ID)
	return nil
}

// ConfirmReset applies a new password for the holder of token and returns
// one of the Reset* outcomes. Policy violations are validation errors.
func (s *PasswordResetService) ConfirmReset(ctx context.Context, token, password, confirm string) (string, error) {
	if len(token) != resetTokenLength {
		return ResetInvalidToken, nil
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "unknown reset token", "prefix", token[:10])
			return ResetInvalidToken, nil
		}
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	if user.ResetTokenExpiry != nil && s.now().After(*user.ResetTokenExpiry) {
		if err := repo.ClearResetToken(ctx, user.ID); err != nil {
			return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
		}
		return ResetExpiredToken, nil
	}

	if password == "" || confirm == "" {
		return "", common.NewValidationError("newPassword", "Both password fields are required")
	}
	if password != confirm {
		return ResetUnmatchedPasswords, nil
	}
	if err := auth.ValidatePassword("newPassword", password); err != nil {
		return "", err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	if err := repo.ResetPassword(ctx, user.ID, hash); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "password reset completed", "user_id", user.ID)
	return ResetSuccessful, nil
}
