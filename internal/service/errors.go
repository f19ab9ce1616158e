package service

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/spec-kit/mail-service/internal/repository"
	apperrors "github.com/spec-kit/mail-service/pkg/util/errorutil"
)

const msgMissingFields = "Missing required fields"

// Column widths of the schema, in characters. Passwords are capped in bytes
// because bcrypt rejects anything longer than 72.
const (
	maxUsernameLen   = 80
	maxEmailLen      = 120
	maxSubjectLen    = 200
	maxPasswordBytes = 72
)

// tooLong reports value as a bad input when it exceeds limit characters.
func tooLong(field, value string, limit int) error {
	if utf8.RuneCountInString(value) <= limit {
		return nil
	}
	return apperrors.NewValidationError(
		fmt.Sprintf("%s must be at most %d characters", field, limit),
		map[string]any{"field": field, "max": limit},
	)
}

func passwordTooLong(field, password string) error {
	if len(password) <= maxPasswordBytes {
		return nil
	}
	return apperrors.NewValidationError(
		fmt.Sprintf("Password must be at most %d bytes", maxPasswordBytes),
		map[string]any{"field": field, "max": maxPasswordBytes},
	)
}

// storeError passes domain errors through and hides everything else behind
// an internal error.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return apperrors.NewInternalError(err)
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
