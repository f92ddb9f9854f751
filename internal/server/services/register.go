package services

import (
	"errors"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/dmitrijs2005/neurorecall/internal/server/auth"
	"github.com/go-playground/validator/v10"
)

var (
	userNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	reservedUserNames = map[string]struct{}{
		"admin": {}, "administrator": {}, "root": {}, "system": {}, "api": {}, "www": {},
		"mail": {}, "email": {}, "support": {}, "help": {}, "info": {}, "contact": {},
		"test": {}, "demo": {}, "guest": {}, "null": {}, "undefined": {},
	}

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return userNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("mailaddr", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

// RegisterInput is a registration request.
type RegisterInput struct {
	UserName string  `validate:"required,min=3,max=50,username"`
	Email    string  `validate:"required,max=100,mailaddr"`
	Password string  `validate:"required"`
	Age      *int    `validate:"omitempty,gte=13,lte=120"`
	Sex      *string `validate:"omitempty,oneof=male female other prefer_not_to_say"`
}

func (in *RegisterInput) normalize() {
	in.UserName = strings.TrimSpace(in.UserName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Sex != nil && *in.Sex == "" {
		in.Sex = nil
	}
}

var registerMessages = map[string]string{
	"UserName.required": "Username, email, and password are required",
	"UserName.min":      "Username must be between 3 and 50 characters",
	"UserName.max":      "Username or email too long",
	"UserName.username": "Username can only contain letters, numbers, and underscores",
	"Email.required":    "Username, email, and password are required",
	"Email.max":         "Username or email too long",
	"Email.mailaddr":    "Invalid email format",
	"Password.required": "Username, email, and password are required",
	"Age.gte":           "Age must be between 13 and 120",
	"Age.lte":           "Age must be between 13 and 120",
	"Sex.oneof":         "Invalid sex value",
}

var registerFields = map[string]string{
	"UserName": "username",
	"Email":    "email",
	"Password": "password",
	"Age":      "age",
	"Sex":      "sex",
}

func (in *RegisterInput) validate() error {
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			msg, ok := registerMessages[fe.Field()+"."+fe.Tag()]
			if !ok {
				msg = "invalid value"
			}
			return common.NewValidationError(registerFields[fe.Field()], msg)
		}
		return common.NewValidationError("request", err.Error())
	}
	if err := auth.ValidatePassword("password", in.Password); err != nil {
		return err
	}
	if _, reserved := reservedUserNames[strings.ToLower(in.UserName)]; reserved {
		return common.NewValidationError("username", "Username is not available")
	}
	return nil
}

// validEmail applies the registration email rules to a bare address.
func validEmail(email string) bool {
	return email != "" && len(email) <= 254 && emailPattern.MatchString(email)
}
