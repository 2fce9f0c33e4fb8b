package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"domain error passes through", NewDuplicateLogin(), CodeDuplicateLogin, http.StatusUnauthorized},
		{"wrapped domain error", fmt.Errorf("ctx: %w", NewSessionExpired()), CodeSessionExpired, http.StatusUnauthorized},
		{"fiber error", fiber.NewError(http.StatusNotFound, "Cannot GET /x"), CodeNotFound, http.StatusNotFound},
		{"unknown error", cause, CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.status, got.HTTPStatus)
		})
	}

	assert.Nil(t, ToDomainError(nil))
}

func TestInvalidRefreshTokenKeepsCause(t *testing.T) {
	cause := errors.New("revoked")
	err := NewInvalidRefreshToken(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Invalid refresh token", ToDomainError(err).Message)
}
