package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{NewValidationError("bad", nil), CodeBadInput, http.StatusBadRequest},
		{NewUnauthenticated("login"), CodeUnauthenticated, http.StatusUnauthorized},
		{NewUnauthorized("creds"), CodeUnauthorized, http.StatusUnauthorized},
		{NewForbidden("nope"), CodeForbidden, http.StatusForbidden},
		{NewConflict("dup", nil), CodeConflict, http.StatusBadRequest},
		{NewNotFound("email", nil), CodeNotFound, http.StatusNotFound},
		{NewInternalError(errors.New("boom")), CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			de := ToDomainError(tc.err)
			require.NotNil(t, de)
			assert.Equal(t, tc.code, de.Code)
			assert.Equal(t, tc.status, de.HTTPStatus)
			assert.True(t, HasCode(tc.err, tc.code))
		})
	}
}

func TestToDomainErrorWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("connection reset")
	de := ToDomainError(fmt.Errorf("insert: %w", cause))

	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, "internal server error", de.Message)
	assert.ErrorIs(t, de, cause)
}

func TestToDomainErrorUnwrapsWrappedDomainError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NewNotFound("email", nil))
	de := ToDomainError(wrapped)

	assert.Equal(t, CodeNotFound, de.Code)
	assert.Equal(t, "email not found", de.Message)
	assert.Nil(t, ToDomainError(nil))
}
