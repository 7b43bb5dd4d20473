package httpdto

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", sentinal_errors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"wrapped forbidden", fmt.Errorf("%w: admin role required", sentinal_errors.ErrForbidden), http.StatusForbidden, "FORBIDDEN"},
		{"invalid operation", sentinal_errors.ErrInvalidOperation, http.StatusConflict, "INVALID_OPERATION"},
		{"invalid argument", sentinal_errors.ErrInvalidInput, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"conflict", sentinal_errors.ErrConflict, http.StatusConflict, "CONFLICT"},
		{"expired", sentinal_errors.ErrExpired, http.StatusGone, "EXPIRED"},
		{"limit reached", sentinal_errors.ErrLimitReached, http.StatusGone, "LIMIT_REACHED"},
		{"rate limited", sentinal_errors.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := StatusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestErrorResponseFor_HidesInternalErrors(t *testing.T) {
	status, body := ErrorResponseFor(errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body.Error)
	assert.False(t, body.Success)

	_, body = ErrorResponseFor(fmt.Errorf("%w: group name is required", sentinal_errors.ErrInvalidInput))
	assert.Equal(t, "invalid argument: group name is required", body.Error)
}
