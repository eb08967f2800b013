package model

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/actuallystonmai/nutrigrade/internal/domain"
	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
)

// Decoder turns raw artifact bytes into a classifier.
type Decoder func(data []byte) (Classifier, error)

// DecodeForestBytes is the default Decoder.
func DecodeForestBytes(data []byte) (Classifier, error) {
	return DecodeForest(bytes.NewReader(data))
}

// Handle owns the process-wide classifier. The artifact is read at most once
// per successful load; a failed load stays cached until Retry, unless it failed
// only because the caller's context ended.
type Handle struct {
	source Source
	decode Decoder

	mu       sync.RWMutex
	clf      Classifier
	version  string
	loadedAt time.Time
	err      error
}

func NewHandle(source Source) *Handle {
	return NewHandleWithDecoder(source, DecodeForestBytes)
}

func NewHandleWithDecoder(source Source, decode Decoder) *Handle {
	return &Handle{source: source, decode: decode}
}

// Load returns the cached classifier, reading the artifact on first use.
func (h *Handle) Load(ctx context.Context) (Classifier, error) {
	h.mu.RLock()
	clf, err := h.clf, h.err
	h.mu.RUnlock()
	if clf != nil || err != nil {
		return clf, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loadLocked(ctx)
}

// Retry clears a cached load failure and loads again. A handle that is
// already loaded is returned as is.
func (h *Handle) Retry(ctx context.Context) (Classifier, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clf == nil {
		h.err = nil
	}
	return h.loadLocked(ctx)
}

func (h *Handle) loadLocked(ctx context.Context) (Classifier, error) {
	if h.clf != nil || h.err != nil {
		return h.clf, h.err
	}

	start := time.Now()
	clf, sum, err := h.read(ctx)
	if err != nil && abandoned(ctx, err) {
		log.Warn().Str("component", "model").Str("source", h.source.String()).Err(err).Msg("model load abandoned")
		return nil, fmt.Errorf("load model from %s: %w", h.source.String(), err)
	}
	if err != nil {
		h.err = &LoadError{Source: h.source.String(), Err: err}
		log.Error().Str("component", "model").Str("source", h.source.String()).Err(err).Msg("model load failed")
		return nil, h.err
	}

	h.clf = clf
	h.version = strconv.FormatUint(sum, 16)
	h.loadedAt = time.Now()
	log.Info().
		Str("component", "model").
		Str("source", h.source.String()).
		Str("version", h.version).
		Dur("took", time.Since(start)).
		Msg("model loaded")
	return clf, nil
}

// abandoned reports whether a load failed because the caller gave up. Such a
// failure says nothing about the artifact and is not cached.
func abandoned(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (h *Handle) read(ctx context.Context) (Classifier, uint64, error) {
	rc, err := h.source.Open(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer rc.Close()

	data, err := readArtifact(rc)
	if err != nil {
		return nil, 0, fmt.Errorf("read artifact: %w", err)
	}
	clf, err := h.decode(data)
	if err != nil {
		return nil, 0, err
	}
	if n := clf.NumFeatures(); n != domain.FeatureCount {
		return nil, 0, fmt.Errorf("classifier expects %d features, want %d", n, domain.FeatureCount)
	}
	return clf, xxhash.Sum64(data), nil
}

// Predict runs the classifier on a single vector.
func (h *Handle) Predict(ctx context.Context, v domain.NutrientVector) (int, error) {
	clf, err := h.Load(ctx)
	if err != nil {
		return 0, err
	}
	return PredictVector(clf, v)
}

// PredictVector runs clf on one vector and wraps any failure with the vector.
func PredictVector(clf Classifier, v domain.NutrientVector) (int, error) {
	classID, err := clf.Predict(v.Features())
	if err != nil {
		return 0, &PredictionError{Vector: v, Err: err}
	}
	return classID, nil
}

// Version identifies the loaded artifact; empty until a load succeeds.
func (h *Handle) Version() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.version
}

func (h *Handle) Status() domain.ModelStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := domain.ModelStatus{
		Source:  h.source.String(),
		Loaded:  h.clf != nil,
		Version: h.version,
	}
	if !h.loadedAt.IsZero() {
		status.LoadedAt = h.loadedAt.UTC().Format(time.RFC3339)
	}
	if h.err != nil {
		status.Error = h.err.Error()
	}
	return status
}
