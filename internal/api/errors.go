package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a typed API failure carrying the HTTP status and the server's
// message when it sent one.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP error! status: %d", e.Status)
}

// IsAuthError reports whether err is an authentication/authorization
// failure. The gateway uses this to skip retries that cannot succeed.
func IsAuthError(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
	}
	return false
}
