package registry

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthRequired is returned for mutations attempted without an access token.
	// No request is sent in that case.
	ErrAuthRequired = errors.New("registry: authentication required")

	// ErrNotFound matches any StatusError carrying a 404.
	ErrNotFound = errors.New("registry: not found")
)

// StatusError is a non-2xx response from the registry API.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("registry API error: %s: status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}
