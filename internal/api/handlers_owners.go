/**
 * @description
 * HTTP handlers for the owner (propietarios) endpoints: list, detail with
 * dogs and outstanding balance, create, update, and deactivate.
 */

package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvegaa1/comfortcan-erp/internal/domain"
)

// ownerDetailResponse enriches an owner with their dogs and unpaid balance.
type ownerDetailResponse struct {
	domain.Owner
	Dogs          []domain.Dog    `json:"perros"`
	UnpaidWalks   []domain.Walk   `json:"paseos_pendientes"`
	UnpaidBalance decimal.Decimal `json:"saldo_pendiente"`
}

// ListOwnersHandler handles GET /propietarios. By default only active owners
// are returned; ?incluir_inactivos=true lists everyone.
func (h *Handlers) ListOwnersHandler(w http.ResponseWriter, r *http.Request) {
	var active *bool
	if r.URL.Query().Get("incluir_inactivos") != "true" {
		t := true
		active = &t
	}

	owners, err := h.repo.ListOwners(r.Context(), active)
	if err != nil {
		h.writeStoreError(w, "list_owners", err)
		return
	}
	h.writeJSON(w, http.StatusOK, owners)
}

// GetOwnerHandler handles GET /propietarios/{id}. The response bundles the
// owner's dogs and outstanding unpaid walks so the detail view needs one call.
func (h *Handlers) GetOwnerHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}

	owner, err := h.repo.FindOwnerByID(r.Context(), ownerID)
	if err != nil {
		h.writeStoreError(w, "get_owner", err)
		return
	}

	dogs, err := h.repo.ListDogs(r.Context(), &ownerID, nil)
	if err != nil {
		h.writeStoreError(w, "get_owner", err)
		return
	}
	unpaid, err := h.repo.ListUnpaidWalksByOwner(r.Context(), ownerID)
	if err != nil {
		h.writeStoreError(w, "get_owner", err)
		return
	}
	balance := decimal.Zero
	for _, walk := range unpaid {
		balance = balance.Add(walk.Price)
	}

	h.writeJSON(w, http.StatusOK, ownerDetailResponse{
		Owner:         *owner,
		Dogs:          dogs,
		UnpaidWalks:   unpaid,
		UnpaidBalance: balance,
	})
}

// CreateOwnerHandler handles POST /propietarios.
func (h *Handlers) CreateOwnerHandler(w http.ResponseWriter, r *http.Request) {
	var payload domain.CreateOwnerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(payload.FirstName) == "" || strings.TrimSpace(payload.LastName) == "" {
		h.writeError(w, http.StatusBadRequest, "nombre and apellido are required")
		return
	}

	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	owner, err := h.repo.CreateOwner(r.Context(), payload, user.ID)
	if err != nil {
		h.writeStoreError(w, "create_owner", err)
		return
	}
	log.Printf("level=info component=api endpoint=create_owner owner_id=%s", owner.ID)
	h.writeJSON(w, http.StatusCreated, owner)
}

// UpdateOwnerHandler handles PUT /propietarios/{id}. Absent fields are left untouched.
func (h *Handlers) UpdateOwnerHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var patch domain.UpdateOwnerPayload
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	owner, err := h.repo.UpdateOwner(r.Context(), ownerID, patch)
	if err != nil {
		h.writeStoreError(w, "update_owner", err)
		return
	}
	h.writeJSON(w, http.StatusOK, owner)
}

// DeleteOwnerHandler handles DELETE /propietarios/{id}. Owners are never
// removed, only deactivated, so their walk and charge history stays intact.
func (h *Handlers) DeleteOwnerHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.repo.DeactivateOwner(r.Context(), ownerID); err != nil {
		h.writeStoreError(w, "delete_owner", err)
		return
	}
	log.Printf("level=info component=api endpoint=delete_owner owner_id=%s", ownerID)
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Propietario desactivado"})
}

// parseIDParam parses a UUID path parameter, writing a 400 on failure.
func (h *Handlers) parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid id format")
		return uuid.Nil, false
	}
	return id, true
}
