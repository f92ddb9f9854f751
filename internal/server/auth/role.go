package auth

import "github.com/dmitrijs2005/neurorecall/internal/server/models"

// HasRole reports whether user holds role. A nil user holds none.
func HasRole(user *models.User, role string) bool {
	return user != nil && user.Role == role
}

// IsAdmin is HasRole(user, models.RoleAdmin).
func IsAdmin(user *models.User) bool {
	return HasRole(user, models.RoleAdmin)
}
