package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/actuallystonmai/nutrigrade/internal/domain"
	"github.com/actuallystonmai/nutrigrade/internal/grade"
	"github.com/actuallystonmai/nutrigrade/internal/model"
	"github.com/actuallystonmai/nutrigrade/internal/service"
	"github.com/rs/zerolog/log"
)

// POST /predictions
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req NutrientRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be a JSON object of nutrient values")
		return
	}

	v, err := req.Vector()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	result, err := h.service.Predict(r.Context(), v)
	if err != nil {
		h.writePredictionError(w, err, v)
		return
	}

	writeJSON(w, http.StatusOK, PredictionResponse{
		Prediction: result,
		Metadata:   ResponseMeta{GeneratedAt: time.Now().UTC().Format(time.RFC3339)},
	})
}

func (h *Handler) writePredictionError(w http.ResponseWriter, err error, v domain.NutrientVector) {
	code, msg := service.CategorizeError(err)
	switch code {
	case "invalid_input":
		writeError(w, http.StatusBadRequest, code, msg)
	case "model_unavailable", "request_timeout":
		writeError(w, http.StatusServiceUnavailable, code, msg)
	case "prediction_failed":
		var predErr *model.PredictionError
		if errors.As(err, &predErr) {
			v = predErr.Vector
		}
		log.Error().Str("component", "handler").Interface("input", v).Err(err).Msg("prediction failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: code, Message: msg, Input: &v})
	default:
		log.Error().Str("component", "handler").Err(err).Msg("unexpected prediction error")
		writeError(w, http.StatusInternalServerError, code, msg)
	}
}

// POST /predictions/batch
func (h *Handler) PredictBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be a JSON object with an items array")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_input", "items must not be empty")
		return
	}

	vectors := make([]domain.NutrientVector, len(req.Items))
	for i, item := range req.Items {
		v, err := item.Vector()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf("items[%d]: %v", i, err))
			return
		}
		vectors[i] = v
	}

	result, err := h.service.PredictBatch(r.Context(), vectors)
	if err != nil {
		if errors.Is(err, domain.ErrBatchSizeExceeded) {
			writeError(w, http.StatusBadRequest, "batch_too_large", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	writeJSON(w, http.StatusOK, BatchResponse{
		Results:  result.Results,
		Summary:  result.Summary,
		Metadata: ResponseMeta{GeneratedAt: time.Now().UTC().Format(time.RFC3339)},
	})
}

// GET /nutrients
func (h *Handler) Nutrients(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NutrientsResponse{Fields: domain.Fields[:]})
}

// GET /grades
func (h *Handler) Grades(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, GradesResponse{Grades: grade.All()})
}
