package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for classifying failures across layers. Repositories
// translate driver-level "no rows" conditions into ErrNotFound so that
// handlers can map them to HTTP status codes with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrStoreClosed   = errors.New("store is closed")
	ErrScoringFailed = errors.New("scoring failed")
)

// ValidationError represents input validation errors with the offending
// field path, as required for 422 responses.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Unwrap ties every ValidationError to ErrInvalidInput so callers can
// classify with either errors.As or errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NotFoundError carries the entity kind and identifier for 404 responses.
type NotFoundError struct {
	Entity string
	ID     interface{}
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %v not found", e.Entity, e.ID)
}

// Unwrap makes errors.Is(err, ErrNotFound) hold for every NotFoundError.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a NotFoundError for the given entity and identifier.
func NewNotFoundError(entity string, id interface{}) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}
