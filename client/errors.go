package console

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"emperror.dev/errors"
)

// Sentinels matched with errors.Is against an *APIError.
const (
	ErrNotFound     = errors.Sentinel("not found")
	ErrUnauthorized = errors.Sentinel("unauthorized")
	ErrConflict     = errors.Sentinel("conflict")
	ErrValidation   = errors.Sentinel("validation failed")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int      `json:"-"`
	Code    string   `json:"code,omitempty"`
	Message string   `json:"error"`
	Fields  []string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if len(e.Fields) == 0 {
		return fmt.Sprintf("api: %d: %s", e.Status, msg)
	}
	return fmt.Sprintf("api: %d: %s:\n  %s", e.Status, msg, strings.Join(e.Fields, "\n  "))
}

// Is maps the response status onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrValidation:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	}
	return false
}

// newAPIError decodes an error body. Bodies that are not JSON become the
// message verbatim.
func newAPIError(status int, body string) *APIError {
	e := &APIError{Status: status}
	if err := json.Unmarshal([]byte(body), e); err != nil {
		e.Message = strings.TrimSpace(body)
	}
	return e
}
