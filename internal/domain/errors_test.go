package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		message string
		value   interface{}
	}{
		{
			name:    "String validation error",
			field:   "doctor_id",
			message: "is required",
			value:   "",
		},
		{
			name:    "Float validation error",
			field:   "confidence_in_feedback",
			message: "must be between 0.0 and 1.0",
			value:   1.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message, tt.value)

			if err.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, err.Field)
			}

			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}

			if err.Value != tt.value {
				t.Errorf("Expected value %v, got %v", tt.value, err.Value)
			}

			// Test Error() method
			expectedError := "validation error for field '" + tt.field + "': " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestValidationErrorClassification(t *testing.T) {
	err := NewValidationError("age", "must be between 0 and 150", 200)

	if !errors.Is(err, ErrInvalidInput) {
		t.Error("Expected validation error to match ErrInvalidInput")
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatal("Expected errors.As to extract *ValidationError")
	}
	if vErr.Field != "age" {
		t.Errorf("Expected field age, got %s", vErr.Field)
	}

	// Classification must survive wrapping at layer boundaries.
	wrapped := fmt.Errorf("submit feedback: %w", err)
	if !errors.Is(wrapped, ErrInvalidInput) {
		t.Error("Expected wrapped validation error to match ErrInvalidInput")
	}
	if !errors.As(wrapped, &vErr) {
		t.Error("Expected errors.As to extract *ValidationError from wrapped error")
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("Prediction", 123)

	expected := "Prediction with ID 123 not found"
	if err.Error() != expected {
		t.Errorf("Expected error string %q, got %q", expected, err.Error())
	}

	if !errors.Is(err, ErrNotFound) {
		t.Error("Expected not-found error to match ErrNotFound")
	}

	wrapped := fmt.Errorf("get prediction: %w", err)
	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("Expected wrapped not-found error to match ErrNotFound")
	}

	var nfErr *NotFoundError
	if !errors.As(wrapped, &nfErr) {
		t.Fatal("Expected errors.As to extract *NotFoundError")
	}
	if nfErr.Entity != "Prediction" {
		t.Errorf("Expected entity Prediction, got %s", nfErr.Entity)
	}
}
