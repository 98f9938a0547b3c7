package metricshandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"concedii/internal/domain/auth"
	"concedii/internal/platform/metrics"
	"concedii/internal/transport/http/api"
	"concedii/internal/transport/http/middleware"
)

type Handler struct {
	Collector *metrics.Collector
}

func NewHandler(collector *metrics.Collector) *Handler {
	return &Handler{Collector: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireRole(auth.RoleAdministrator)).Get("/metrics", h.handleSnapshot)
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Collector.Snapshot(), middleware.GetRequestID(r.Context()))
}
