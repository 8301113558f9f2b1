package usecase

import (
	"fmt"
	"regexp"

	"github.com/mlinyun/user-center/internal/core/domain"
	"github.com/mlinyun/user-center/internal/infra/security"
)

var accountPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func fieldError(field, rule, format string, args ...any) error {
	return &FieldError{
		Field:   field,
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
	}
}

func validateAccount(account string) error {
	if account == "" {
		return fieldError("userAccount", "required", "account is required")
	}
	if len(account) < domain.AccountMinLength || len(account) > domain.AccountMaxLength {
		return fieldError("userAccount", "length",
			"account must be %d to %d characters", domain.AccountMinLength, domain.AccountMaxLength)
	}
	if !accountPattern.MatchString(account) {
		return fieldError("userAccount", "charset",
			"account may only contain letters, digits and underscores")
	}
	return nil
}

// validatePasswordBand checks only the length band; strength is gated
// separately so the rules read in the same order they are applied.
func validatePasswordBand(field, password string) error {
	if password == "" {
		return fieldError(field, "required", "password is required")
	}
	if len(password) < domain.PasswordMinLength || len(password) > domain.PasswordMaxLength {
		return fieldError(field, "length",
			"password must be %d to %d characters", domain.PasswordMinLength, domain.PasswordMaxLength)
	}
	return nil
}

func validatePasswordStrength(field, password string) error {
	if !security.IsStrong(password) {
		return fieldError(field, "strength",
			"password must contain uppercase, lowercase, digit and special characters")
	}
	return nil
}

func validatePlanetCode(code string) error {
	if code == "" {
		return fieldError("planetCode", "required", "planet code is required")
	}
	if len(code) > domain.PlanetCodeMaxLength {
		return fieldError("planetCode", "length",
			"planet code must be at most %d characters", domain.PlanetCodeMaxLength)
	}
	return nil
}
