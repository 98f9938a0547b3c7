package reportshandler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"concedii/internal/domain/leave"
	"concedii/internal/domain/reports"
	"concedii/internal/transport/http/api"
	"concedii/internal/transport/http/middleware"
	"concedii/internal/transport/http/shared"
)

type Handler struct {
	Service *reports.Service
}

func NewHandler(service *reports.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/weekly", h.handleWeekly)
		r.Get("/monthly", h.handleMonthly)
		r.Get("/yearly", h.handleYearly)
	})
}

func (h *Handler) handleWeekly(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetActor(r.Context())

	var base time.Time
	if raw := r.URL.Query().Get("weekStart"); raw != "" {
		parsed, err := shared.ParseDate(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "weekStart must be a date in YYYY-MM-DD format", reqID)
			return
		}
		base = parsed
	}

	report, err := h.Service.Weekly(r.Context(), actor, base)
	if err != nil {
		writeReportError(w, err, reqID)
		return
	}

	title := "Weekly " + report.Interval.Start.Format("2006-01-02")
	filename := "report_weekly_" + report.Interval.Start.Format("2006-01-02")
	h.respond(w, r, report, title, filename, reqID)
}

func (h *Handler) handleMonthly(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetActor(r.Context())

	year, ok := queryInt(w, r, "year", reqID)
	if !ok {
		return
	}
	month, ok := queryInt(w, r, "month", reqID)
	if !ok {
		return
	}

	report, err := h.Service.Monthly(r.Context(), actor, year, month)
	if err != nil {
		writeReportError(w, err, reqID)
		return
	}

	title := fmt.Sprintf("Monthly %d-%02d", year, month)
	filename := fmt.Sprintf("report_monthly_%d_%02d", year, month)
	h.respond(w, r, report, title, filename, reqID)
}

func (h *Handler) handleYearly(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetActor(r.Context())

	year, ok := queryInt(w, r, "year", reqID)
	if !ok {
		return
	}

	report, err := h.Service.Yearly(r.Context(), actor, year)
	if err != nil {
		writeReportError(w, err, reqID)
		return
	}

	title := fmt.Sprintf("Yearly %d", year)
	filename := fmt.Sprintf("report_yearly_%d", year)
	h.respond(w, r, report, title, filename, reqID)
}

// respond writes the report as JSON, xlsx or pdf depending on the
// format query parameter.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, report reports.Report, title, filename, reqID string) {
	switch r.URL.Query().Get("format") {
	case "", "json":
		api.Success(w, report, reqID)
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`.xlsx"`)
		if err := reports.WriteExcel(w, report, title); err != nil {
			slog.Error("excel export failed", "err", err, "requestId", reqID)
		}
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`.pdf"`)
		if err := reports.WritePDF(w, report, title); err != nil {
			slog.Error("pdf export failed", "err", err, "requestId", reqID)
		}
	default:
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "format must be json, xlsx or pdf", reqID)
	}
}

func queryInt(w http.ResponseWriter, r *http.Request, name, reqID string) (int, bool) {
	raw := r.URL.Query().Get(name)
	value, err := strconv.Atoi(raw)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", name+" must be numeric", reqID)
		return 0, false
	}
	return value, true
}

func writeReportError(w http.ResponseWriter, err error, reqID string) {
	var invalid *leave.InvalidInputError
	if errors.As(err, &invalid) {
		api.FailWithDetails(w, http.StatusBadRequest, "validation_error", invalid.Error(),
			map[string]any{"field": invalid.Field, "reason": invalid.Reason}, reqID)
		return
	}
	slog.Error("report build failed", "err", err)
	api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build report", reqID)
}
