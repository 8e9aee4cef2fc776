/**
 * @description
 * This file contains the base HTTP handler plumbing for the ComfortCan API:
 * the Handlers struct, the JSON response helpers, error-to-status mapping for
 * the store sentinels, and the session endpoints (login/logout) plus health.
 * Entity-specific handlers live in their own handlers_*.go files.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 * - pkg/authclient: For identity service errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/dvegaa1/comfortcan-erp/internal/app"
	"github.com/dvegaa1/comfortcan-erp/internal/store"
	"github.com/dvegaa1/comfortcan-erp/pkg/authclient"
)

// Handlers holds the application service and repository that handlers use.
// Plain CRUD goes straight to the repository; anything with workflow logic
// (login, settlement, photo upload, reports) goes through the service.
type Handlers struct {
	service *app.Service
	repo    store.Repository
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(service *app.Service, repo store.Repository) *Handlers {
	return &Handlers{service: service, repo: repo}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler exchanges credentials for a session token.
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var rateLimited *app.RateLimitedError
		switch {
		case errors.As(err, &rateLimited):
			w.Header().Set("Retry-After", strconv.Itoa(rateLimited.RetryAfterSeconds))
			h.writeError(w, http.StatusTooManyRequests, "Too many login attempts. Please wait and try again.")
		case errors.Is(err, authclient.ErrInvalidCredentials):
			h.writeError(w, http.StatusUnauthorized, "Invalid email or password")
		default:
			log.Printf("level=error component=api endpoint=login msg=\"login failed\" err=%v", err)
			h.writeError(w, http.StatusBadGateway, "Authentication service unavailable")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// LogoutHandler revokes the caller's session with the identity service.
func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	token, ok := GetAccessToken(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if err := h.service.Logout(r.Context(), token); err != nil {
		log.Printf("level=warn component=api endpoint=logout msg=\"logout failed\" err=%v", err)
		h.writeError(w, http.StatusBadGateway, "Authentication service unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Sesión cerrada"})
}

// writeJSON is a helper for writing JSON responses.
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps the store sentinel errors to HTTP statuses. Unknown
// errors are logged and reported as 502 when the store is unreachable, 500
// otherwise.
func (h *Handlers) writeStoreError(w http.ResponseWriter, endpoint string, err error) {
	switch {
	case errors.Is(err, store.ErrOwnerNotFound):
		h.writeError(w, http.StatusNotFound, "Owner not found")
	case errors.Is(err, store.ErrDogNotFound):
		h.writeError(w, http.StatusNotFound, "Dog not found")
	case errors.Is(err, store.ErrWalkNotFound):
		h.writeError(w, http.StatusNotFound, "Walk not found")
	case errors.Is(err, store.ErrWalkTypeNotFound):
		h.writeError(w, http.StatusNotFound, "Walk type not found")
	case errors.Is(err, store.ErrReservationNotFound):
		h.writeError(w, http.StatusNotFound, "Reservation not found")
	case errors.Is(err, store.ErrChargeNotFound):
		h.writeError(w, http.StatusNotFound, "Charge not found")
	case errors.Is(err, store.ErrStoreUnavailable):
		log.Printf("level=error component=api endpoint=%s msg=\"store unreachable\" err=%v", endpoint, err)
		h.writeError(w, http.StatusBadGateway, "Data store unavailable")
	default:
		log.Printf("level=error component=api endpoint=%s msg=\"unexpected error\" err=%v", endpoint, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
