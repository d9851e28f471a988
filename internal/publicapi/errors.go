package publicapi

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the backend answers 404, usually because
	// the tenant id is unknown.
	ErrNotFound = errors.New("publicapi: not found")

	// ErrInvalidResponse is returned when a 2xx body cannot be decoded into
	// the expected shape.
	ErrInvalidResponse = errors.New("publicapi: invalid response")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Path    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("publicapi: %s returned %d", e.Path, e.Status)
	}
	return fmt.Sprintf("publicapi: %s returned %d: %s", e.Path, e.Status, e.Message)
}

// Unwrap lets errors.Is match ErrNotFound on 404 responses.
func (e *APIError) Unwrap() error {
	if e.Status == 404 {
		return ErrNotFound
	}
	return nil
}
