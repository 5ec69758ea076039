package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrPersist wraps storage failures during registration. Nothing was
	// written and the request may be retried.
	ErrPersist = errors.New("não foi possível salvar")

	// ErrLoad wraps storage failures while reading a user's transactions.
	ErrLoad = errors.New("não foi possível carregar as transações")

	ErrMissingUser  = errors.New("missing user id")
	ErrInvalidMonth = errors.New("invalid month")
)

// ValidationError maps form fields to user-facing messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
