package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/actuallystonmai/nutrigrade/internal/domain"
	"github.com/actuallystonmai/nutrigrade/internal/handler"
	"github.com/actuallystonmai/nutrigrade/internal/model"
	"github.com/actuallystonmai/nutrigrade/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClassifier struct {
	classID int
	err     error
}

func (c fixedClassifier) Predict([]float64) (int, error) { return c.classID, c.err }
func (c fixedClassifier) NumFeatures() int              { return domain.FeatureCount }

type fixedModel struct {
	clf model.Classifier
	err error
}

func (m *fixedModel) Load(context.Context) (model.Classifier, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.clf, nil
}

func (m *fixedModel) Retry(ctx context.Context) (model.Classifier, error) { return m.Load(ctx) }
func (m *fixedModel) Version() string                                    { return "test" }

func (m *fixedModel) Status() domain.ModelStatus {
	s := domain.ModelStatus{Source: "fixed", Loaded: m.err == nil}
	if m.err != nil {
		s.Error = m.err.Error()
	}
	return s
}

func newTestServer(m *fixedModel) http.Handler {
	svc := service.NewService(m, nil, service.Options{BatchConcurrency: 2, MaxBatchSize: 3})
	return Setup(handler.NewHandler(svc), 0)
}

const validBody = `{"energy":250,"fat":5,"saturated_fat":2,"sugars":10,"salt":0.5,"protein":8,"fiber":3,"carbohydrates":15}`

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPredictOK(t *testing.T) {
	srv := newTestServer(&fixedModel{clf: fixedClassifier{classID: 0}})

	rec := do(t, srv, http.MethodPost, "/predictions", validBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handler.PredictionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "a", resp.Prediction.Grade)
	assert.Equal(t, "#038141", resp.Prediction.Color)
	assert.Equal(t, 250.0, resp.Prediction.Input.Energy)
	assert.NotEmpty(t, resp.Metadata.GeneratedAt)
}

func TestPredictMissingField(t *testing.T) {
	srv := newTestServer(&fixedModel{clf: fixedClassifier{}})

	rec := do(t, srv, http.MethodPost, "/predictions", `{"energy":250,"fat":5,"saturated_fat":2,"sugars":10,"salt":0.5,"protein":8,"fiber":3}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "invalid_input", resp.Error)
	assert.Contains(t, resp.Message, "carbohydrates")
}

func TestPredictOutOfRange(t *testing.T) {
	srv := newTestServer(&fixedModel{clf: fixedClassifier{}})

	body := strings.Replace(validBody, `"salt":0.5`, `"salt":120`, 1)
	rec := do(t, srv, http.MethodPost, "/predictions", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictBadJSON(t *testing.T) {
	srv := newTestServer(&fixedModel{clf: fixedClassifier{}})

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/predictions", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/predictions", `{"calories":3}`).Code)
}

func TestPredictModelUnavailable(t *testing.T) {
	srv := newTestServer(&fixedModel{err: errors.New("open model.json: no such file")})

	rec := do(t, srv, http.MethodPost, "/predictions", validBody)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "model_unavailable", resp.Error)
}

func TestPredictFailureEchoesInput(t *testing.T) {
	srv := newTestServer(&fixedModel{clf: fixedClassifier{err: errors.New("numeric error")}})

	rec := do(t, srv, http.MethodPost, "/predictions", validBody)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "prediction_failed", resp.Error)
	require.NotNil(t, resp.Input)
	assert.Equal(t, 10.0, resp.Input.Sugars)
}

func TestPredictBatch(t *testing.T) {
	srv := newTestServer(&fixedModel{clf: fixedClassifier{classID: 2}})

	rec := do(t, srv, http.MethodPost, "/predictions/batch", `{"items":[`+validBody+`,`+validBody+`]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handler.BatchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Summary.SuccessCount)
	assert.Equal(t, 0, resp.Summary.FailedCount)
	assert.Equal(t, "c", resp.Results[1].Result.Grade)
}

func TestPredictBatchRejects(t *testing.T) {
	srv := newTestServer(&fixedModel{clf: fixedClassifier{}})

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/predictions/batch", `{"items":[]}`).Code)

	rec := do(t, srv, http.MethodPost, "/predictions/batch", `{"items":[`+validBody+`,{"energy":1}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "items[1]")

	four := strings.Repeat(validBody+",", 3) + validBody
	rec = do(t, srv, http.MethodPost, "/predictions/batch", `{"items":[`+four+`]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "batch_too_large")
}

func TestMetadataEndpoints(t *testing.T) {
	srv := newTestServer(&fixedModel{clf: fixedClassifier{}})

	rec := do(t, srv, http.MethodGet, "/nutrients", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var nutrients handler.NutrientsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&nutrients))
	require.Len(t, nutrients.Fields, domain.FeatureCount)
	assert.Equal(t, "energy", nutrients.Fields[0].Name)
	assert.Equal(t, 250.0, nutrients.Fields[0].Default)

	rec = do(t, srv, http.MethodGet, "/grades", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var grades handler.GradesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&grades))
	assert.Len(t, grades.Grades, 5)

	rec = do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestModelEndpoints(t *testing.T) {
	srv := newTestServer(&fixedModel{err: errors.New("missing")})

	rec := do(t, srv, http.MethodGet, "/model", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status domain.ModelStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.False(t, status.Loaded)
	assert.Equal(t, "missing", status.Error)

	rec = do(t, srv, http.MethodPost, "/model/reload", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	ok := newTestServer(&fixedModel{clf: fixedClassifier{}})
	rec = do(t, ok, http.MethodPost, "/model/reload", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
