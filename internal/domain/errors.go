package domain

import (
	"errors"
	"fmt"
)

var (
	ErrModelUnavailable  = errors.New("model unavailable")
	ErrArtifactNotFound  = errors.New("model artifact not found")
	ErrBatchSizeExceeded = errors.New("batch size exceeded")
)

// InvalidInputError rejects a nutrient vector before it reaches the model.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

// ModelUnavailableError is returned when the classifier could not be loaded.
// No prediction is attempted in that case.
type ModelUnavailableError struct {
	Cause error
}

func (e *ModelUnavailableError) Error() string {
	if e.Cause == nil {
		return ErrModelUnavailable.Error()
	}
	return fmt.Sprintf("%s: %v", ErrModelUnavailable, e.Cause)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Cause
}

func (e *ModelUnavailableError) Is(target error) bool {
	return target == ErrModelUnavailable
}
