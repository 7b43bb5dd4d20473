package httpdto

import (
	"errors"
	"net/http"

	sentinal_errors "sentinal-social/pkg/errors"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{sentinal_errors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{sentinal_errors.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{sentinal_errors.ErrInvalidOperation, http.StatusConflict, "INVALID_OPERATION"},
	{sentinal_errors.ErrInvalidInput, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{sentinal_errors.ErrConflict, http.StatusConflict, "CONFLICT"},
	{sentinal_errors.ErrAlreadyExists, http.StatusConflict, "CONFLICT"},
	{sentinal_errors.ErrExpired, http.StatusGone, "EXPIRED"},
	{sentinal_errors.ErrLimitReached, http.StatusGone, "LIMIT_REACHED"},
	{sentinal_errors.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
	{sentinal_errors.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
}

// StatusFor maps a service error to its HTTP status and machine readable
// code. Unknown errors are internal.
func StatusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// ErrorResponseFor builds the response body for err. Internal errors do not
// leak their message.
func ErrorResponseFor(err error) (int, Response[any]) {
	status, code := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	return status, NewErrorResponse(msg, code)
}
