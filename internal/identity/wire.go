package identity

import (
	"fmt"
	"net/http"

	"github.com/jask/attredit/internal/attribute"
)

// REST payloads shared by Client and the sandbox twin.

type AttributesResponse struct {
	Attributes []attribute.Attribute `json:"attributes"`
}

type UpdateRequest struct {
	Value string `json:"value"`
}

type UpdateResponse struct {
	Key  string `json:"key"`
	Done bool   `json:"done"`
	Next string `json:"next,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// APIError is a non-2xx response from the store.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("store returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// Is maps well-known statuses onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrSignedOut:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	default:
		return false
	}
}
