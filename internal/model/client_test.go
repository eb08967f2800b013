package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/actuallystonmai/nutrigrade/internal/domain"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sugarStump splits on sugars <= 10: low sugar is class 0, high sugar class 4.
func sugarStump() ForestArtifact {
	return ForestArtifact{
		Format:       ForestFormat,
		Version:      ForestVersion,
		FeatureNames: domain.FeatureNames(),
		Classes:      []int{0, 1, 2, 3, 4},
		Trees: []Tree{{Nodes: []Node{
			{Feature: 3, Threshold: 10, Left: 1, Right: 2},
			{Value: []float64{8, 2, 0, 0, 0}},
			{Value: []float64{0, 0, 1, 2, 7}},
		}}},
	}
}

func encodeArtifact(t *testing.T, a ForestArtifact) []byte {
	t.Helper()
	data, err := json.Marshal(a)
	require.NoError(t, err)
	return data
}

func vector(t *testing.T, values ...float64) domain.NutrientVector {
	t.Helper()
	v, err := domain.NewNutrientVector(values)
	require.NoError(t, err)
	return v
}

type countingSource struct {
	data  []byte
	err   error
	opens atomic.Int32
}

func (s *countingSource) Open(ctx context.Context) (io.ReadCloser, error) {
	s.opens.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s *countingSource) String() string {
	return "memory"
}

func TestForestPredict(t *testing.T) {
	f, err := NewForest(sugarStump())
	require.NoError(t, err)

	low, err := f.Predict(vector(t, 250, 5, 2, 10, 0.5, 8, 3, 15).Features())
	require.NoError(t, err)
	assert.Equal(t, 0, low)

	high, err := f.Predict(vector(t, 250, 5, 2, 40, 0.5, 8, 3, 15).Features())
	require.NoError(t, err)
	assert.Equal(t, 4, high)
}

func TestForestAveragesTrees(t *testing.T) {
	a := sugarStump()
	// second tree always votes strongly for class 2
	a.Trees = append(a.Trees, Tree{Nodes: []Node{{Value: []float64{0, 0, 10, 0, 0}}}})
	f, err := NewForest(a)
	require.NoError(t, err)

	got, err := f.Predict(vector(t, 250, 5, 2, 10, 0.5, 8, 3, 15).Features())
	require.NoError(t, err)
	// class 0: 0.8/2, class 2: 1.0/2
	assert.Equal(t, 2, got)
}

func TestForestReturnsDeclaredClassLabels(t *testing.T) {
	a := sugarStump()
	a.Classes = []int{0, 1, 2, 3, 7}
	f, err := NewForest(a)
	require.NoError(t, err)

	got, err := f.Predict(vector(t, 250, 5, 2, 50, 0.5, 8, 3, 15).Features())
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestForestPredictBadShape(t *testing.T) {
	f, err := NewForest(sugarStump())
	require.NoError(t, err)

	_, err = f.Predict([]float64{1, 2, 3})
	assert.Error(t, err)

	_, err = f.Predict([]float64{1, 2, 3, math.NaN(), 5, 6, 7, 8})
	assert.Error(t, err)
}

func TestNewForestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *ForestArtifact)
	}{
		{"format", func(a *ForestArtifact) { a.Format = "pickle" }},
		{"version", func(a *ForestArtifact) { a.Version = 2 }},
		{"feature order", func(a *ForestArtifact) {
			a.FeatureNames = []string{"fat", "energy", "saturated_fat", "sugars", "salt", "protein", "fiber", "carbohydrates"}
		}},
		{"no classes", func(a *ForestArtifact) { a.Classes = nil }},
		{"no trees", func(a *ForestArtifact) { a.Trees = nil }},
		{"empty tree", func(a *ForestArtifact) { a.Trees[0].Nodes = nil }},
		{"feature index", func(a *ForestArtifact) { a.Trees[0].Nodes[0].Feature = 8 }},
		{"backward child", func(a *ForestArtifact) { a.Trees[0].Nodes[0].Left = 0 }},
		{"child out of range", func(a *ForestArtifact) { a.Trees[0].Nodes[0].Right = 3 }},
		{"leaf width", func(a *ForestArtifact) { a.Trees[0].Nodes[1].Value = []float64{1, 2} }},
		{"negative weight", func(a *ForestArtifact) { a.Trees[0].Nodes[1].Value = []float64{-1, 2, 0, 0, 0} }},
		{"zero leaf", func(a *ForestArtifact) { a.Trees[0].Nodes[2].Value = []float64{0, 0, 0, 0, 0} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := sugarStump()
			tt.mutate(&a)
			_, err := NewForest(a)
			assert.Error(t, err)
		})
	}
}

func TestDecodeForestRejectsGarbage(t *testing.T) {
	_, err := DecodeForest(bytes.NewReader([]byte("\x80\x04\x95 not json")))
	assert.Error(t, err)
}

func TestReadArtifactCompressed(t *testing.T) {
	raw := encodeArtifact(t, sugarStump())

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	zw, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zs := zw.EncodeAll(raw, nil)
	require.NoError(t, zw.Close())

	for name, payload := range map[string][]byte{"plain": raw, "gzip": gz.Bytes(), "zstd": zs} {
		t.Run(name, func(t *testing.T) {
			got, err := readArtifact(bytes.NewReader(payload))
			require.NoError(t, err)
			assert.Equal(t, raw, got)
		})
	}
}

func TestHandleLoadIsCached(t *testing.T) {
	src := &countingSource{data: encodeArtifact(t, sugarStump())}
	h := NewHandle(src)
	ctx := context.Background()

	first, err := h.Load(ctx)
	require.NoError(t, err)
	second, err := h.Load(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), src.opens.Load())
	assert.NotEmpty(t, h.Version())

	v := vector(t, 250, 5, 2, 10, 0.5, 8, 3, 15)
	a, err := first.Predict(v.Features())
	require.NoError(t, err)
	b, err := h.Predict(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHandleFailureIsCachedUntilRetry(t *testing.T) {
	src := &countingSource{err: os.ErrNotExist}
	h := NewHandle(src)
	ctx := context.Background()

	_, err := h.Load(ctx)
	require.Error(t, err)
	assert.True(t, IsLoadError(err))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = h.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, int32(1), src.opens.Load())
	assert.False(t, h.Status().Loaded)
	assert.NotEmpty(t, h.Status().Error)

	src.err = nil
	src.data = encodeArtifact(t, sugarStump())
	clf, err := h.Retry(ctx)
	require.NoError(t, err)
	assert.NotNil(t, clf)
	assert.Equal(t, int32(2), src.opens.Load())

	status := h.Status()
	assert.True(t, status.Loaded)
	assert.Empty(t, status.Error)
	assert.NotEmpty(t, status.LoadedAt)
}

func TestHandleCancelledLoadIsNotCached(t *testing.T) {
	src := &countingSource{data: encodeArtifact(t, sugarStump())}
	h := NewHandle(src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Load(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsLoadError(err))
	assert.Empty(t, h.Status().Error)

	clf, err := h.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, clf)
	assert.Equal(t, int32(2), src.opens.Load())
	assert.True(t, h.Status().Loaded)
}

func TestHandleTimedOutLoadIsNotCached(t *testing.T) {
	src := &countingSource{data: encodeArtifact(t, sugarStump())}
	h := NewHandle(src)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err := h.Load(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = h.Load(context.Background())
	assert.NoError(t, err)
}

func TestHandleRetryKeepsLoadedModel(t *testing.T) {
	src := &countingSource{data: encodeArtifact(t, sugarStump())}
	h := NewHandle(src)

	first, err := h.Load(context.Background())
	require.NoError(t, err)
	again, err := h.Retry(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, again)
	assert.Equal(t, int32(1), src.opens.Load())
}

func TestHandleCorruptArtifact(t *testing.T) {
	src := &countingSource{data: []byte(`{"format":"nutrigrade-forest"`)}
	_, err := NewHandle(src).Load(context.Background())
	assert.True(t, IsLoadError(err))
}

func TestHandleFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, encodeArtifact(t, sugarStump()), 0o644))

	h := NewHandle(FileSource{Path: path})
	got, err := h.Predict(context.Background(), vector(t, 250, 5, 2, 30, 0.5, 8, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, 4, got)
	assert.Equal(t, "file:"+path, h.Status().Source)

	_, err = NewHandle(FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}).Load(context.Background())
	assert.True(t, IsLoadError(err))
}

type failingClassifier struct{}

func (failingClassifier) Predict([]float64) (int, error) { return 0, errors.New("numeric overflow") }
func (failingClassifier) NumFeatures() int              { return domain.FeatureCount }

func TestPredictVectorWrapsError(t *testing.T) {
	v := domain.DefaultNutrientVector()
	_, err := PredictVector(failingClassifier{}, v)

	var predErr *PredictionError
	require.True(t, errors.As(err, &predErr))
	assert.Equal(t, v, predErr.Vector)
	assert.True(t, IsPredictionError(err))
}

func TestHandleConcurrentPredict(t *testing.T) {
	src := &countingSource{data: encodeArtifact(t, sugarStump())}
	h := NewHandle(src)
	v := domain.DefaultNutrientVector()

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := h.Predict(context.Background(), v)
			assert.NoError(t, err)
			assert.Equal(t, 0, got)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.opens.Load())
}
