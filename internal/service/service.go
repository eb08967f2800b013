package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/actuallystonmai/nutrigrade/internal/domain"
	"github.com/actuallystonmai/nutrigrade/internal/model"
	"github.com/rs/zerolog/log"
)

const defaultBatchConcurrency = 8

// ResultCache memoises results per model version. *cache.Cache implements it.
type ResultCache interface {
	Get(ctx context.Context, modelVersion string, v domain.NutrientVector) (*domain.PredictionResult, bool, error)
	Set(ctx context.Context, modelVersion string, v domain.NutrientVector, result *domain.PredictionResult) error
}

// ModelController exposes status and reload of the shared model.
type ModelController interface {
	ModelLoader
	Retry(ctx context.Context) (model.Classifier, error)
	Status() domain.ModelStatus
}

type Options struct {
	BatchConcurrency int
	MaxBatchSize     int
}

type Service struct {
	pipeline *Pipeline
	model    ModelController
	cache    ResultCache
	opts     Options
}

// NewService wires the pipeline to the model. cache may be nil.
func NewService(m ModelController, cache ResultCache, opts Options) *Service {
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = defaultBatchConcurrency
	}
	return &Service{
		pipeline: NewPipeline(m),
		model:    m,
		cache:    cache,
		opts:     opts,
	}
}

func (s *Service) Predict(ctx context.Context, v domain.NutrientVector) (*domain.PredictionResult, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}

	version := s.model.Version()
	if s.cache != nil && version != "" {
		cached, found, err := s.cache.Get(ctx, version, v)
		if err != nil {
			log.Warn().Str("component", "service").Err(err).Msg("cache get failed")
		}
		if found {
			return cached, nil
		}
	}

	result, err := s.pipeline.Run(ctx, v)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && result.ModelVersion != "" {
		if cacheErr := s.cache.Set(ctx, result.ModelVersion, v, result); cacheErr != nil {
			log.Warn().Str("component", "service").Err(cacheErr).Msg("cache set failed")
		}
	}
	return result, nil
}

func (s *Service) PredictBatch(ctx context.Context, vectors []domain.NutrientVector) (*domain.BatchResult, error) {
	if s.opts.MaxBatchSize > 0 && len(vectors) > s.opts.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d items, max %d", domain.ErrBatchSizeExceeded, len(vectors), s.opts.MaxBatchSize)
	}
	start := time.Now()

	// Process items concurrently with bounded worker pool
	results := make([]domain.BatchItemResult, len(vectors))
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.opts.BatchConcurrency)

	for i, v := range vectors {
		wg.Add(1)
		go func(idx int, v domain.NutrientVector) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = s.processBatchItem(ctx, idx, v)
		}(i, v)
	}
	wg.Wait()

	successCount := 0
	failedCount := 0
	for _, r := range results {
		if r.Status == domain.StatusSuccess {
			successCount++
		} else {
			failedCount++
		}
	}

	return &domain.BatchResult{
		Results: results,
		Summary: domain.BatchSummary{
			SuccessCount:     successCount,
			FailedCount:      failedCount,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		},
	}, nil
}

func (s *Service) processBatchItem(ctx context.Context, idx int, v domain.NutrientVector) domain.BatchItemResult {
	result, err := s.Predict(ctx, v)
	if err != nil {
		log.Debug().Str("component", "service").Int("index", idx).Err(err).Msg("batch item failed")
		code, msg := CategorizeError(err)
		return domain.BatchItemResult{
			Index:   idx,
			Status:  domain.StatusFailed,
			Error:   code,
			Message: msg,
		}
	}
	return domain.BatchItemResult{
		Index:  idx,
		Result: result,
		Status: domain.StatusSuccess,
	}
}

func (s *Service) ModelStatus() domain.ModelStatus {
	return s.model.Status()
}

// ReloadModel retries a failed model load.
func (s *Service) ReloadModel(ctx context.Context) (domain.ModelStatus, error) {
	if _, err := s.model.Retry(ctx); err != nil {
		return s.model.Status(), &domain.ModelUnavailableError{Cause: err}
	}
	return s.model.Status(), nil
}

// CategorizeError maps a pipeline error to an error code and a user facing message.
func CategorizeError(err error) (string, string) {
	var invalid *domain.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		return "invalid_input", invalid.Error()
	case errors.Is(err, domain.ErrModelUnavailable):
		return "model_unavailable", "nutrition grade model is unavailable"
	case model.IsPredictionError(err):
		return "prediction_failed", "error making prediction, please check your input values and try again"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "request_timeout", "request timed out, please try again"
	default:
		return "internal_error", "an unexpected error occurred"
	}
}
