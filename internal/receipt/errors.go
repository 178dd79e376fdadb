package receipt

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a receipt does not exist for the requesting owner
	ErrNotFound = errors.New("receipt not found")
	// ErrValidation marks save-time validation failures
	ErrValidation = errors.New("validation failed")
	// ErrNoOwner is returned when a write is attempted without an owner
	ErrNoOwner = errors.New("owner is required")
	// ErrItemIndex is returned when an item row index is out of range
	ErrItemIndex = errors.New("item index out of range")
)

// FieldError describes one invalid field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that blocked a save
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s", f.Field, f.Message))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

// Is lets errors.Is match ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
