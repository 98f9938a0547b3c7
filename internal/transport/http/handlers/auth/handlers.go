package authhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"concedii/internal/domain/audit"
	"concedii/internal/domain/auth"
	"concedii/internal/transport/http/api"
	"concedii/internal/transport/http/middleware"
	"concedii/internal/transport/http/shared"
)

type Handler struct {
	Store            *auth.Store
	Audit            *audit.Service
	JWTSecret        string
	JWTTTL           time.Duration
	DirectorUsername string
}

func NewHandler(store *auth.Store, auditSvc *audit.Service, secret string, ttl time.Duration, directorUsername string) *Handler {
	return &Handler{Store: store, Audit: auditSvc, JWTSecret: secret, JWTTTL: ttl, DirectorUsername: directorUsername}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.With(middleware.RequireRole(auth.RoleAdministrator, auth.RoleDirector)).Put("/substitute", h.handleSetSubstitute)
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"accessToken"`
	User        userBrief `json:"user"`
}

type userBrief struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	FullName string   `json:"fullName"`
	Roles    []string `json:"roles"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("username", payload.Username, "username is required")
	v.Required("password", payload.Password, "password is required")
	if v.Reject(w, reqID) {
		return
	}

	user, err := h.Store.FindUserByUsername(r.Context(), payload.Username)
	if err != nil && !errors.Is(err, auth.ErrUserNotFound) {
		api.Fail(w, http.StatusInternalServerError, "login_failed", "login failed", reqID)
		return
	}
	// One rejection path for unknown user, inactive account and bad
	// password, so responses do not reveal which usernames exist.
	if err != nil || !user.IsActive || auth.CheckPassword(user.PasswordHash, payload.Password) != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, auth.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Roles:    user.Roles,
	}, h.JWTTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "login_failed", "login failed", reqID)
		return
	}

	if err := h.Store.UpdateLastLogin(r.Context(), user.ID); err != nil {
		slog.Warn("update last login failed", "err", err, "userId", user.ID)
	}
	if err := h.Audit.Record(r.Context(), &user.ID, audit.ActionLogin, "user", payload.Username, reqID, shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit login failed", "err", err)
	}

	api.Success(w, loginResponse{
		AccessToken: token,
		User: userBrief{
			ID:       user.ID,
			Username: user.Username,
			FullName: user.FullName,
			Roles:    user.Roles,
		},
	}, reqID)
}

type substituteRequest struct {
	SubstituteID *int64 `json:"substituteId"`
}

// handleSetSubstitute points the director account's substitute at a
// user, or clears it with a null substituteId. The change is effective
// on the next approval check; nothing caches the edge.
func (h *Handler) handleSetSubstitute(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetActor(r.Context())

	var payload substituteRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	if payload.SubstituteID != nil {
		exists, err := h.Store.UserExists(r.Context(), *payload.SubstituteID)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "substitute_failed", "failed to set substitute", reqID)
			return
		}
		if !exists {
			api.Fail(w, http.StatusNotFound, "not_found", "substitute user not found", reqID)
			return
		}
	}

	before, err := h.Store.DirectorSubstituteID(r.Context(), h.DirectorUsername)
	if err != nil && !errors.Is(err, auth.ErrUserNotFound) {
		api.Fail(w, http.StatusInternalServerError, "substitute_failed", "failed to set substitute", reqID)
		return
	}

	if err := h.Store.SetDirectorSubstitute(r.Context(), h.DirectorUsername, payload.SubstituteID); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "director account not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "substitute_failed", "failed to set substitute", reqID)
		return
	}

	if err := h.Audit.Record(r.Context(), &actor.ID, audit.ActionSetSubstitute, "user", h.DirectorUsername, reqID, shared.ClientIP(r),
		map[string]any{"substituteId": before},
		map[string]any{"substituteId": payload.SubstituteID},
	); err != nil {
		slog.Warn("audit set substitute failed", "err", err)
	}

	api.Success(w, map[string]any{"substituteId": payload.SubstituteID}, reqID)
}
