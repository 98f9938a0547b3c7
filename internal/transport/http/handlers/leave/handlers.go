package leavehandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"concedii/internal/domain/audit"
	"concedii/internal/domain/entitlement"
	"concedii/internal/domain/leave"
	"concedii/internal/transport/http/api"
	"concedii/internal/transport/http/middleware"
	"concedii/internal/transport/http/shared"
)

type Handler struct {
	Service *leave.Service
	Audit   *audit.Service
}

func NewHandler(service *leave.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave/requests", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{requestID}", h.handleGet)
		r.Post("/{requestID}/submit", h.handleSubmit)
		r.Post("/{requestID}/approve", h.handleApprove)
		r.Post("/{requestID}/reject", h.handleReject)
		r.Post("/{requestID}/interrupt", h.handleInterrupt)
	})
}

type createRequest struct {
	Type      string  `json:"type"`
	StartDate string  `json:"startDate"`
	EndDate   string  `json:"endDate"`
	DaysCount int     `json:"daysCount"`
	Reason    *string `json:"reason"`
}

type reasonRequest struct {
	Reason *string `json:"reason"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetActor(r.Context())

	var payload createRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	startDate, _ := v.Date("startDate", payload.StartDate)
	endDate, _ := v.Date("endDate", payload.EndDate)
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Service.CreateDraft(r.Context(), actor.ID, leave.CreateDraftInput{
		Type:      payload.Type,
		StartDate: startDate,
		EndDate:   endDate,
		DaysCount: payload.DaysCount,
		Reason:    payload.Reason,
	})
	if err != nil {
		writeDomainError(w, err, reqID)
		return
	}

	h.record(r, actor.ID, audit.ActionRequestCreate, created.ID, nil, created)
	api.Created(w, created, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetActor(r.Context())

	id, ok := parseID(w, r, reqID)
	if !ok {
		return
	}

	req, err := h.Service.Store.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, reqID)
		return
	}
	// The same access rule as listing: plain employees only see their
	// own requests.
	if !leave.CanListAll(actor) && req.RequesterID != actor.ID {
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", reqID)
		return
	}
	api.Success(w, req, reqID)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetActor(r.Context())

	id, ok := parseID(w, r, reqID)
	if !ok {
		return
	}

	submitted, err := h.Service.Submit(r.Context(), actor.ID, id)
	if err != nil {
		writeDomainError(w, err, reqID)
		return
	}

	h.record(r, actor.ID, audit.ActionRequestSubmit, submitted.ID, nil, submitted)
	api.Success(w, submitted, reqID)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetActor(r.Context())

	id, ok := parseID(w, r, reqID)
	if !ok {
		return
	}

	approved, err := h.Service.Approve(r.Context(), actor, id)
	if err != nil {
		writeDomainError(w, err, reqID)
		return
	}

	h.record(r, actor.ID, audit.ActionRequestApprove, approved.ID, nil, approved)
	api.Success(w, approved, reqID)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetActor(r.Context())

	id, ok := parseID(w, r, reqID)
	if !ok {
		return
	}

	var payload reasonRequest
	if r.Body != nil {
		// The body is optional; a bare POST keeps the draft's reason.
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}

	rejected, err := h.Service.Reject(r.Context(), actor, id, payload.Reason)
	if err != nil {
		writeDomainError(w, err, reqID)
		return
	}

	h.record(r, actor.ID, audit.ActionRequestReject, rejected.ID, nil, rejected)
	api.Success(w, rejected, reqID)
}

func (h *Handler) handleInterrupt(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetActor(r.Context())

	id, ok := parseID(w, r, reqID)
	if !ok {
		return
	}

	var payload reasonRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}

	result, err := h.Service.Interrupt(r.Context(), actor, id, payload.Reason)
	if err != nil {
		writeDomainError(w, err, reqID)
		return
	}

	h.record(r, actor.ID, audit.ActionRequestInterrupt, result.Request.ID, nil, result)
	api.Success(w, result, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetActor(r.Context())

	query := r.URL.Query()
	filter := leave.Filter{
		Status: query.Get("status"),
		Type:   query.Get("type"),
	}
	if raw := query.Get("requesterId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "requesterId must be numeric", reqID)
			return
		}
		filter.RequesterID = &id
	}
	v := shared.NewValidator()
	if raw := query.Get("startFrom"); raw != "" {
		filter.StartFrom, _ = v.Date("startFrom", raw)
	}
	if raw := query.Get("startTo"); raw != "" {
		filter.StartTo, _ = v.Date("startTo", raw)
	}
	if v.Reject(w, reqID) {
		return
	}

	result, err := h.Service.List(r.Context(), actor, filter, shared.ParsePage(r))
	if err != nil {
		writeDomainError(w, err, reqID)
		return
	}
	api.Success(w, result, reqID)
}

func (h *Handler) record(r *http.Request, actorID int64, action string, requestID int64, before, after any) {
	err := h.Audit.Record(r.Context(), &actorID, action, "leave_request",
		strconv.FormatInt(requestID, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after)
	if err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}

func parseID(w http.ResponseWriter, r *http.Request, reqID string) (int64, bool) {
	raw := chi.URLParam(r, "requestID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "request id must be numeric", reqID)
		return 0, false
	}
	return id, true
}

// writeDomainError maps domain failures onto HTTP statuses. Conflicting
// state and ledger refusals are 409s so clients can distinguish retryable
// races from bad input.
func writeDomainError(w http.ResponseWriter, err error, reqID string) {
	var invalid *leave.InvalidInputError
	var insufficient *entitlement.InsufficientBalanceError

	switch {
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", reqID)
	case errors.Is(err, leave.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "operation not allowed for this user", reqID)
	case errors.Is(err, leave.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", "request is not in a state that allows this transition", reqID)
	case errors.As(err, &invalid):
		api.FailWithDetails(w, http.StatusBadRequest, "validation_error", invalid.Error(),
			map[string]any{"field": invalid.Field, "reason": invalid.Reason}, reqID)
	case errors.As(err, &insufficient):
		api.FailWithDetails(w, http.StatusConflict, "insufficient_balance", insufficient.Error(),
			map[string]any{"available": insufficient.Available, "requested": insufficient.Requested}, reqID)
	case errors.Is(err, entitlement.ErrNotFound):
		api.Fail(w, http.StatusConflict, "no_entitlement", "no entitlement exists for the requested year and type", reqID)
	default:
		slog.Error("leave operation failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", reqID)
	}
}
