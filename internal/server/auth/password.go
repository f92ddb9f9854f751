package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/neurorecall/internal/common"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128

	specialChars = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?~`"
)

var weakPasswords = map[string]struct{}{
	"password": {}, "12345678": {}, "qwerty": {}, "abc123": {}, "password123": {},
	"admin": {}, "letmein": {}, "welcome": {}, "monkey": {}, "1234567890": {},
}

// bcrypt only reads 72 bytes, so longer passwords are digested first.
func bcryptInput(password string) []byte {
	if len(password) <= 72 {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword(bcryptInput(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether password matches hash. A mismatch is
// common.ErrorUnauthorized.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return common.ErrorUnauthorized
	}
	return err
}

// ValidatePassword enforces the password policy. Violations are
// *common.ValidationError values for field.
func ValidatePassword(field, password string) error {
	n := len([]rune(password))
	if password == "" {
		return common.NewValidationError(field, "password is required")
	}
	if n < MinPasswordLength {
		return common.NewValidationError(field, "password must be at least 8 characters long")
	}
	if n > MaxPasswordLength {
		return common.NewValidationError(field, "password is too long (maximum 128 characters)")
	}

	var missing []string
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		missing = append(missing, "uppercase")
	}
	if !strings.ContainsFunc(password, unicode.IsLower) {
		missing = append(missing, "lowercase")
	}
	if !strings.ContainsFunc(password, unicode.IsDigit) {
		missing = append(missing, "digit")
	}
	if !strings.ContainsAny(password, specialChars) {
		missing = append(missing, "special")
	}
	switch len(missing) {
	case 0:
	case 1:
		return common.NewValidationError(field, "password must contain at least one "+missing[0]+" character")
	default:
		return common.NewValidationError(field, "password must contain at least one "+
			strings.Join(missing[:len(missing)-1], ", ")+" and "+missing[len(missing)-1]+" character")
	}

	if _, weak := weakPasswords[strings.ToLower(password)]; weak {
		return common.NewValidationError(field, "please choose a stronger password")
	}
	return nil
}
