package router

import (
	"net/http"
	"time"

	"github.com/actuallystonmai/nutrigrade/internal/handler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func Setup(h *handler.Handler, timeout time.Duration) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	// Routes
	r.Post("/predictions", h.Predict)
	r.Post("/predictions/batch", h.PredictBatch)
	r.Get("/nutrients", h.Nutrients)
	r.Get("/grades", h.Grades)
	r.Get("/model", h.ModelStatus)
	r.Post("/model/reload", h.ReloadModel)
	r.Get("/health", healthCheck)

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
