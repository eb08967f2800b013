package handler

import (
	"net/http"
)

// GET /model
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ModelStatus())
}

// POST /model/reload
func (h *Handler) ReloadModel(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.ReloadModel(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
