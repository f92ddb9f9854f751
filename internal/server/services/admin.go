package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/dmitrijs2005/neurorecall/internal/server/auth"
	"github.com/dmitrijs2005/neurorecall/internal/server/models"
)

// PromoteAdmin grants the admin role to an existing account.
// It returns common.ErrorNotFound when no such user exists.
func (s *UserService) PromoteAdmin(ctx context.Context, userName string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	u, err := repo.GetByUsername(ctx, strings.TrimSpace(userName))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	if u.Role == models.RoleAdmin {
		return u, nil
	}

	if err := repo.SetRole(ctx, u.ID, models.RoleAdmin); err != nil {
		return nil, fmt.Errorf("%w: set role: %w", common.ErrorInternal, err)
	}
	u.Role = models.RoleAdmin
	s.logger.Info(ctx, "user promoted to admin", "user_id", u.ID, "username", u.UserName)
	return u, nil
}

// CreateAdmin creates an admin account. Reserved names such as "admin" are
// allowed here, the password policy still applies.
func (s *UserService) CreateAdmin(ctx context.Context, userName, email, password string) (*models.User, error) {
	userName = strings.TrimSpace(userName)
	email = strings.ToLower(strings.TrimSpace(email))

	if userName == "" {
		return nil, common.NewValidationError("username", "username is required")
	}
	if !emailPattern.MatchString(email) {
		return nil, common.NewValidationError("email", "Invalid email format")
	}
	if err := auth.ValidatePassword("password", password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %w", common.ErrorInternal, err)
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		UserName:     userName,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.Public(common.ErrorAlreadyExists, "User already exists")
		}
		return nil, fmt.Errorf("%w: error creating user: %w", common.ErrorInternal, err)
	}
	s.logger.Info(ctx, "admin created", "user_id", u.ID, "username", u.UserName)
	return u, nil
}
