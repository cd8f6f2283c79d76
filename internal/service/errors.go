package service

import (
	"errors"
	"sort"
	"strings"

	"go-blog-app/internal/data"
)

var (
	// ErrNotFound covers both missing resources and resources hidden from
	// the viewer, so callers cannot tell the two apart.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when an authenticated principal tries to
	// modify a resource they do not own.
	ErrForbidden = errors.New("not the owner")
	// ErrInvalidCredentials is returned by Authenticate for any login failure.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationError maps form field names to human readable messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldErrors collects messages while a form is validated.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// AsValidation extracts a *ValidationError from err.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// notFound converts repository misses to ErrNotFound and passes other
// errors through.
func notFound(err error) error {
	if errors.Is(err, data.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
