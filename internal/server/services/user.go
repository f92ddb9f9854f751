// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login with lockout, and
// issuing/refreshing JWTs plus server-stored refresh tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/dmitrijs2005/neurorecall/internal/dbx"
	"github.com/dmitrijs2005/neurorecall/internal/logging"
	"github.com/dmitrijs2005/neurorecall/internal/server/auth"
	"github.com/dmitrijs2005/neurorecall/internal/server/config"
	"github.com/dmitrijs2005/neurorecall/internal/server/models"
	"github.com/dmitrijs2005/neurorecall/internal/server/ratelimit"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is a successful login.
type LoginResult struct {
	User    *models.User
	IsAdmin bool
	Tokens  *TokenPair
}

// UserService provides authentication-related operations:
// - Register: validate and create users
// - Login: verify credentials, enforce lockout and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
// - Logout: revoke a refresh token
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	maxLoginAttempts             int
	lockoutDuration              time.Duration
	loginLimiter                 *ratelimit.Limiter
	logger                       logging.Logger
	now                          func() time.Time
}

// NewUserService constructs a UserService using repositories and server
// config. loginLimiter throttles login attempts per client address.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, loginLimiter *ratelimit.Limiter, logger logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		maxLoginAttempts:             cfg.MaxLoginAttempts,
		lockoutDuration:              cfg.LoginLockoutDuration,
		loginLimiter:                 loginLimiter,
		logger:                       logger.With("module", "users"),
		now:                          time.Now,
	}
}

// Register validates in and creates the account. The password is stored as
// a bcrypt hash and the email lowercased.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %w", common.ErrorInternal, err)
	}

	user := &models.User{
		UserName:     in.UserName,
		Email:        in.Email,
		PasswordHash: hash,
		Age:          in.Age,
		Sex:          in.Sex,
		Role:         models.RoleUser,
	}
	u, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.Public(common.ErrorAlreadyExists, "User already exists")
		}
		return nil, fmt.Errorf("%w: error creating user: %w", common.ErrorInternal, err)
	}
	s.logger.Info(ctx, "user registered", "user_id", u.ID, "username", u.UserName)
	return u, nil
}

// Login checks the per-client rate limit and the account lockout, verifies
// the password and, on success, resets the failure counter and returns a
// new TokenPair. Every wrong password counts towards the lockout.
func (s *UserService) Login(ctx context.Context, userName, password, clientKey string) (*LoginResult, error) {
	if userName == "" || password == "" {
		return nil, common.NewValidationError("credentials", "Username and password required")
	}

	allowed, err := s.loginLimiter.Allow(ctx, "login:"+clientKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	if !allowed {
		s.logger.Warn(ctx, "login rate limit exceeded", "client", clientKey, "username", userName)
		return nil, common.Public(common.ErrorRateLimited, "Too many login attempts. Please try again later.")
	}

	if len(userName) > 100 || len(password) > 200 {
		return nil, common.NewValidationError("credentials", "Invalid input length")
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByUsername(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "login failed, unknown username", "client", clientKey, "username", userName)
			return nil, common.Public(common.ErrorUnauthorized, "Invalid credentials")
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	now := s.now()
	if user.IsLocked(now) {
		return nil, common.Public(common.ErrorLocked, lockedMessage(user.LockedUntil.Sub(now)))
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		if !errors.Is(err, common.ErrorUnauthorized) {
			return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
		}
		return nil, s.recordFailure(ctx, user, now)
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).RecordSuccessfulLogin(ctx, user.ID, now); err != nil {
			return err
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user.ID, tx)
		return genErr
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "login succeeded", "user_id", user.ID, "client", clientKey)
	return &LoginResult{User: user, IsAdmin: auth.IsAdmin(user), Tokens: pair}, nil
}

func (s *UserService) recordFailure(ctx context.Context, user *models.User, now time.Time) error {
	failures, err := s.repomanager.Users(s.db).RecordFailedLogin(ctx, user.ID, s.maxLoginAttempts, now.Add(s.lockoutDuration))
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	s.logger.Warn(ctx, "login failed, wrong password", "user_id", user.ID, "failures", failures)

	remaining := s.maxLoginAttempts - failures
	if remaining <= 0 {
		return common.Public(common.ErrorUnauthorized, fmt.Sprintf(
			"Account locked due to too many failed attempts. Try again in %d minutes.", int(s.lockoutDuration.Minutes())))
	}
	return common.Public(common.ErrorUnauthorized, fmt.Sprintf("Invalid credentials. %d attempts remaining.", remaining))
}

func lockedMessage(left time.Duration) string {
	return fmt.Sprintf("Account locked. Try again in %d minutes.", int(left.Minutes()))
}

// RefreshToken consumes a refresh token and returns a fresh TokenPair in one
// transaction, so a token yields at most one new pair. Expired tokens yield
// ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair *TokenPair
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Take(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return fmt.Errorf("error taking refresh token: %w", err)
		}
		if token.Expires.Before(s.now()) {
			return common.ErrRefreshTokenExpired
		}
		pair, err = s.generateTokenPair(ctx, token.UserID, tx)
		return err
	})
	switch {
	case err == nil:
		return pair, nil
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrRefreshTokenExpired):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
}

// Logout revokes refreshToken. An unknown token is not an error.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	return nil
}

// Authenticate resolves an access token to its user.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	userID, err := auth.GetUserIDFromToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, userID)
}

// GetUser loads a user by id. Malformed ids are reported as not found.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}
	u, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	return u, nil
}

// UserEmail returns the email of the user with the given id.
func (s *UserService) UserEmail(ctx context.Context, id string) (string, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

// --- helpers below ---

func (s *UserService) generateAccessToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, userID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
