package handler

import (
	"errors"
	"net/http"

	"github.com/go-api-verification/internal/domain"
)

// httpStatus maps a service error to its response status.
func httpStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidOrExpiredCode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
