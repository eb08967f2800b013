package model

import (
	"errors"
	"fmt"

	"github.com/actuallystonmai/nutrigrade/internal/domain"
)

// Classifier maps one nutrient feature row to a class id. Implementations
// must be safe for concurrent Predict calls.
type Classifier interface {
	Predict(features []float64) (int, error)
	NumFeatures() int
}

// LoadError reports a missing, corrupt or incompatible model artifact.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func IsLoadError(err error) bool {
	var target *LoadError
	return errors.As(err, &target)
}

// PredictionError reports a failure inside the classifier. The offending
// vector is kept for diagnostics.
type PredictionError struct {
	Vector domain.NutrientVector
	Err    error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("model prediction failed: %v", e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

func IsPredictionError(err error) bool {
	var target *PredictionError
	return errors.As(err, &target)
}
