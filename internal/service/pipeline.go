package service

import (
	"context"

	"github.com/actuallystonmai/nutrigrade/internal/domain"
	"github.com/actuallystonmai/nutrigrade/internal/grade"
	"github.com/actuallystonmai/nutrigrade/internal/model"
)

// ModelLoader gives the pipeline access to the shared classifier.
// *model.Handle is the production implementation.
type ModelLoader interface {
	Load(ctx context.Context) (model.Classifier, error)
	Version() string
}

// Pipeline turns a nutrient vector into a graded, presentable result.
type Pipeline struct {
	loader ModelLoader
}

func NewPipeline(loader ModelLoader) *Pipeline {
	return &Pipeline{loader: loader}
}

// Run validates the vector, predicts its class, and decorates the grade.
// The context only bounds the first model load.
func (p *Pipeline) Run(ctx context.Context, v domain.NutrientVector) (*domain.PredictionResult, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}

	clf, err := p.loader.Load(ctx)
	if err != nil && !model.IsLoadError(err) && ctx.Err() != nil {
		return nil, err
	}
	if err != nil {
		return nil, &domain.ModelUnavailableError{Cause: err}
	}

	classID, err := model.PredictVector(clf, v)
	if err != nil {
		return nil, err
	}

	label := grade.Decode(classID)
	pres := grade.Lookup(label)

	return &domain.PredictionResult{
		Grade:        label,
		Color:        pres.Color,
		Explanation:  pres.Explanation,
		Quality:      pres.Quality,
		ClassID:      classID,
		ModelVersion: p.loader.Version(),
		Input:        v,
	}, nil
}

// RunValues builds the vector from values in model column order, then runs it.
func (p *Pipeline) RunValues(ctx context.Context, values []float64) (*domain.PredictionResult, error) {
	v, err := domain.NewNutrientVector(values)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, v)
}
