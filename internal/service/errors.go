package service

import (
	"errors"
	"net/http"

	"github.com/ashureev/wooagent/internal/domain"
)

// StatusCode maps a backend error onto the HTTP status the API answers with.
func StatusCode(err error) int {
	var verr *domain.ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
