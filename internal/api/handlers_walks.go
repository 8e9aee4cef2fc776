/**
 * @description
 * HTTP handlers for the walk catalog (catalogo_paseos) and rendered walk
 * (paseos) endpoints. The paid flag of a walk cannot be set through these
 * endpoints; it changes only through the settlement workflow.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dvegaa1/comfortcan-erp/internal/domain"
	"github.com/dvegaa1/comfortcan-erp/internal/store"
)

// ListWalkTypesHandler handles GET /catalogo-paseos.
func (h *Handlers) ListWalkTypesHandler(w http.ResponseWriter, r *http.Request) {
	var active *bool
	if r.URL.Query().Get("incluir_inactivos") != "true" {
		t := true
		active = &t
	}

	walkTypes, err := h.repo.ListWalkTypes(r.Context(), active)
	if err != nil {
		h.writeStoreError(w, "list_walk_types", err)
		return
	}
	h.writeJSON(w, http.StatusOK, walkTypes)
}

// CreateWalkTypeHandler handles POST /catalogo-paseos.
func (h *Handlers) CreateWalkTypeHandler(w http.ResponseWriter, r *http.Request) {
	var payload domain.WalkTypePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "nombre is required")
		return
	}
	if payload.Price.IsNegative() {
		h.writeError(w, http.StatusBadRequest, "precio must not be negative")
		return
	}

	walkType, err := h.repo.CreateWalkType(r.Context(), payload)
	if err != nil {
		h.writeStoreError(w, "create_walk_type", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, walkType)
}

// UpdateWalkTypeHandler handles PUT /catalogo-paseos/{id}. Price changes only
// affect walks registered afterwards: each walk snapshots the price at
// registration time.
func (h *Handlers) UpdateWalkTypeHandler(w http.ResponseWriter, r *http.Request) {
	walkTypeID, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var payload domain.WalkTypePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.Price.IsNegative() {
		h.writeError(w, http.StatusBadRequest, "precio must not be negative")
		return
	}

	walkType, err := h.repo.UpdateWalkType(r.Context(), walkTypeID, payload)
	if err != nil {
		h.writeStoreError(w, "update_walk_type", err)
		return
	}
	h.writeJSON(w, http.StatusOK, walkType)
}

// ListWalksHandler handles GET /paseos with optional filters: ?perro_id=,
// ?fecha_desde=, ?fecha_hasta=, ?pagado=true|false.
func (h *Handlers) ListWalksHandler(w http.ResponseWriter, r *http.Request) {
	var opts domain.WalkListOptions
	q := r.URL.Query()

	if raw := q.Get("perro_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid perro_id")
			return
		}
		opts.DogID = &id
	}
	if raw := q.Get("fecha_desde"); raw != "" {
		opts.DateFrom = &raw
	}
	if raw := q.Get("fecha_hasta"); raw != "" {
		opts.DateTo = &raw
	}
	if raw := q.Get("pagado"); raw != "" {
		switch raw {
		case "true":
			t := true
			opts.Paid = &t
		case "false":
			f := false
			opts.Paid = &f
		default:
			h.writeError(w, http.StatusBadRequest, "pagado must be true or false")
			return
		}
	}

	walks, err := h.repo.ListWalks(r.Context(), opts)
	if err != nil {
		h.writeStoreError(w, "list_walks", err)
		return
	}
	h.writeJSON(w, http.StatusOK, walks)
}

// ListUnpaidWalksByOwnerHandler handles GET /propietarios/{id}/paseos-pendientes
// and its legacy alias GET /paseos/pendientes/{id},
// the pre-settlement view of what an owner owes.
func (h *Handlers) ListUnpaidWalksByOwnerHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.repo.FindOwnerByID(r.Context(), ownerID); err != nil {
		h.writeStoreError(w, "list_unpaid_walks", err)
		return
	}
	walks, err := h.repo.ListUnpaidWalksByOwner(r.Context(), ownerID)
	if err != nil {
		h.writeStoreError(w, "list_unpaid_walks", err)
		return
	}
	h.writeJSON(w, http.StatusOK, walks)
}

// CreateWalkHandler handles POST /paseos. If precio_cobrado is omitted the
// catalog price of the walk type is snapshotted onto the walk.
func (h *Handlers) CreateWalkHandler(w http.ResponseWriter, r *http.Request) {
	var payload domain.CreateWalkPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.DogID == uuid.Nil || payload.WalkTypeID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "perro_id and catalogo_paseo_id are required")
		return
	}
	if strings.TrimSpace(payload.Date) == "" {
		h.writeError(w, http.StatusBadRequest, "fecha is required")
		return
	}
	if payload.Price.IsNegative() {
		h.writeError(w, http.StatusBadRequest, "precio_cobrado must not be negative")
		return
	}

	if _, err := h.repo.FindDogByID(r.Context(), payload.DogID); err != nil {
		if errors.Is(err, store.ErrDogNotFound) {
			h.writeError(w, http.StatusUnprocessableEntity, "Referenced dog does not exist")
			return
		}
		h.writeStoreError(w, "create_walk", err)
		return
	}

	walk, err := h.repo.CreateWalk(r.Context(), payload)
	if err != nil {
		if errors.Is(err, store.ErrWalkTypeNotFound) {
			h.writeError(w, http.StatusUnprocessableEntity, "Referenced walk type does not exist")
			return
		}
		h.writeStoreError(w, "create_walk", err)
		return
	}
	log.Printf("level=info component=api endpoint=create_walk walk_id=%s dog_id=%s price=%s", walk.ID, walk.DogID, walk.Price)
	h.writeJSON(w, http.StatusCreated, walk)
}

// UpdateWalkHandler handles PUT /paseos/{id}. Paid walks are frozen: their
// price is part of a charge snapshot and editing it would desynchronize the
// receipt.
func (h *Handlers) UpdateWalkHandler(w http.ResponseWriter, r *http.Request) {
	walkID, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var patch domain.UpdateWalkPayload
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		h.writeError(w, http.StatusBadRequest, "precio_cobrado must not be negative")
		return
	}

	existing, err := h.repo.FindWalksByIDs(r.Context(), []uuid.UUID{walkID})
	if err != nil {
		h.writeStoreError(w, "update_walk", err)
		return
	}
	if len(existing) == 0 {
		h.writeError(w, http.StatusNotFound, "Walk not found")
		return
	}
	if existing[0].Paid {
		h.writeError(w, http.StatusConflict, "Paid walks cannot be modified; reverse the charge first")
		return
	}

	walk, err := h.repo.UpdateWalk(r.Context(), walkID, patch)
	if err != nil {
		h.writeStoreError(w, "update_walk", err)
		return
	}
	h.writeJSON(w, http.StatusOK, walk)
}

// DeleteWalkHandler handles DELETE /paseos/{id}. Only unpaid walks can be
// deleted; a settled walk belongs to a charge snapshot.
func (h *Handlers) DeleteWalkHandler(w http.ResponseWriter, r *http.Request) {
	walkID, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}

	existing, err := h.repo.FindWalksByIDs(r.Context(), []uuid.UUID{walkID})
	if err != nil {
		h.writeStoreError(w, "delete_walk", err)
		return
	}
	if len(existing) == 0 {
		h.writeError(w, http.StatusNotFound, "Walk not found")
		return
	}
	if existing[0].Paid {
		h.writeError(w, http.StatusConflict, "Paid walks cannot be deleted; reverse the charge first")
		return
	}

	if err := h.repo.DeleteWalk(r.Context(), walkID); err != nil {
		h.writeStoreError(w, "delete_walk", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Paseo eliminado"})
}
