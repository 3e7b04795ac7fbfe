package auth

import (
	"unicode"

	"github.com/go-playground/validator/v10"
)

// PasswordTag is the struct tag enforcing the password complexity rules.
const PasswordTag = "complexpassword"

// RegisterPasswordRule makes PasswordTag available on v.
func RegisterPasswordRule(v *validator.Validate) error {
	return v.RegisterValidation(PasswordTag, func(fl validator.FieldLevel) bool {
		return isPasswordComplex(fl.Field().String())
	})
}

func isPasswordComplex(s string) bool {
	var (
		hasUpper   = false
		hasLower   = false
		hasNumber  = false
		hasSpecial = false
	)
	for _, char := range s {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasNumber && hasSpecial
}
