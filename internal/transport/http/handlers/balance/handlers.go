package balancehandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"concedii/internal/domain/audit"
	"concedii/internal/domain/auth"
	"concedii/internal/domain/entitlement"
	"concedii/internal/transport/http/api"
	"concedii/internal/transport/http/middleware"
	"concedii/internal/transport/http/shared"
)

type Handler struct {
	Service *entitlement.Service
	Users   *auth.Store
	Audit   *audit.Service
}

func NewHandler(service *entitlement.Service, users *auth.Store, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Users: users, Audit: auditSvc}
}

var staffRoles = []string{
	auth.RoleSecretariat,
	auth.RoleUnitHead,
	auth.RoleDeputyDirector,
	auth.RoleDirector,
	auth.RoleAdministrator,
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/balances", func(r chi.Router) {
		r.With(middleware.RequireAuth).Get("/me", h.handleMe)
		r.With(middleware.RequireRole(staffRoles...)).Get("/{userID}", h.handleByUser)
		r.With(middleware.RequireRole(auth.RoleSecretariat, auth.RoleAdministrator)).Put("/{userID}", h.handleUpsert)
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetActor(r.Context())

	year, ok := parseYear(w, r, reqID)
	if !ok {
		return
	}

	balances, err := h.Service.GetBalance(r.Context(), actor.ID, year)
	if err != nil {
		slog.Error("balance lookup failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "balance_failed", "failed to load balance", reqID)
		return
	}
	api.Success(w, balances, reqID)
}

func (h *Handler) handleByUser(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	userID, ok := parseUserID(w, r, reqID)
	if !ok {
		return
	}
	year, ok := parseYear(w, r, reqID)
	if !ok {
		return
	}

	balances, err := h.Service.GetBalance(r.Context(), userID, year)
	if err != nil {
		slog.Error("balance lookup failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "balance_failed", "failed to load balance", reqID)
		return
	}
	api.Success(w, balances, reqID)
}

type upsertRequest struct {
	Type          string `json:"type"`
	Year          int    `json:"year"`
	AnnualDays    int    `json:"annualDays"`
	CarryoverDays int    `json:"carryoverDays"`
}

func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetActor(r.Context())

	userID, ok := parseUserID(w, r, reqID)
	if !ok {
		return
	}

	var payload upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	if !entitlement.ValidType(payload.Type) {
		v.Add("type", "must be CO or COR")
	}
	if payload.Year < 2000 || payload.Year > 2100 {
		v.Add("year", "must be between 2000 and 2100")
	}
	if v.Reject(w, reqID) {
		return
	}

	exists, err := h.Users.UserExists(r.Context(), userID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "grant_failed", "failed to save entitlement", reqID)
		return
	}
	if !exists {
		api.Fail(w, http.StatusNotFound, "not_found", "user not found", reqID)
		return
	}

	granted, err := h.Service.UpsertGrant(r.Context(), userID, payload.Year, payload.Type, payload.AnnualDays, payload.CarryoverDays)
	if err != nil {
		if errors.Is(err, entitlement.ErrNegativeDays) {
			api.Fail(w, http.StatusBadRequest, "validation_error", "annualDays and carryoverDays must not be negative", reqID)
			return
		}
		slog.Error("entitlement grant failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "grant_failed", "failed to save entitlement", reqID)
		return
	}

	if err := h.Audit.Record(r.Context(), &actor.ID, audit.ActionGrantUpsert, "entitlement",
		strconv.FormatInt(granted.ID, 10), reqID, shared.ClientIP(r), nil, granted); err != nil {
		slog.Warn("audit grant failed", "err", err)
	}
	api.Success(w, granted, reqID)
}

func parseUserID(w http.ResponseWriter, r *http.Request, reqID string) (int64, bool) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "user id must be numeric", reqID)
		return 0, false
	}
	return id, true
}

func parseYear(w http.ResponseWriter, r *http.Request, reqID string) (int, bool) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return time.Now().Year(), true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 2000 || year > 2100 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "year must be between 2000 and 2100", reqID)
		return 0, false
	}
	return year, true
}
