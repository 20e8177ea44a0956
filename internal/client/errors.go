package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/service"
)

// Error is the single error shape every client call returns.
type Error struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Unwrap exposes the domain sentinel behind the status, when known.
func (e *Error) Unwrap() error {
	return e.err
}

// IsUnauthorized reports whether err is a 401 from either adapter.
func IsUnauthorized(err error) bool {
	var cerr *Error
	return errors.As(err, &cerr) && cerr.Status == http.StatusUnauthorized
}

// fromBackend normalizes an error returned by the in-process backend.
func fromBackend(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr
	}
	status := service.StatusCode(err)
	out := &Error{Status: status, Message: err.Error(), err: err}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		out.Fields = verr.Fields
	}
	if status == http.StatusInternalServerError {
		out.Message = fallback
	}
	return out
}

// sentinelFor maps a remote status back onto a domain error.
func sentinelFor(status int, notFound error) error {
	switch status {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusNotFound:
		return notFound
	}
	return nil
}
