package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound classifies lookups that found no record. Use errors.Is.
var ErrNotFound = errors.New("not found")

// ErrStorageNotConfigured is returned when an operation needs blob storage that is not set up.
var ErrStorageNotConfigured = errors.New("blob storage not configured")

// NotFoundError names the missing resource. It matches ErrNotFound.
type NotFoundError struct {
	Resource  string
	ID        string
	ProjectID string
}

func (e *NotFoundError) Error() string {
	if e.ProjectID != "" {
		return fmt.Sprintf("%s %s not found in project %s", e.Resource, e.ID, e.ProjectID)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError is a rejected input field. It never reaches persistence.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
