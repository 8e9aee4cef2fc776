/**
 * @description
 * HTTP handlers for the settlement endpoints: POST /caja/cobrar creates a
 * charge from a set of unpaid walks, GET /cargos lists charge history,
 * GET /cargos/{id} returns a single receipt, and DELETE /cargos/{id}
 * reverses a charge. The partial-failure errors from the workflow carry id
 * lists that are serialized into structured 500/409 bodies so an operator
 * can act on them.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/dvegaa1/comfortcan-erp/internal/app"
	"github.com/dvegaa1/comfortcan-erp/internal/domain"
)

type walksNotFoundResponse struct {
	Error   string      `json:"error"`
	Missing []uuid.UUID `json:"paseos_no_encontrados"`
}

type nothingToSettleResponse struct {
	Error          string      `json:"error"`
	AlreadySettled []uuid.UUID `json:"paseos_ya_cobrados"`
}

type partialSettlementResponse struct {
	Error           string      `json:"error"`
	ChargeID        uuid.UUID   `json:"cargo_id"`
	OrphanedWalkIDs []uuid.UUID `json:"paseos_huerfanos"`
}

type partialReversalResponse struct {
	Error    string      `json:"error"`
	ChargeID uuid.UUID   `json:"cargo_id"`
	Reversed []uuid.UUID `json:"paseos_revertidos"`
	Failed   []uuid.UUID `json:"paseos_fallidos"`
}

// SettleWalksHandler handles POST /caja/cobrar.
func (h *Handlers) SettleWalksHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OwnerID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "propietario_id is required")
		return
	}

	result, err := h.service.SettleWalks(r.Context(), req)
	if err != nil {
		var notFound *app.WalksNotFoundError
		var nothing *app.NothingToSettleError
		var partial *app.PartialSettlementError
		switch {
		case errors.Is(err, app.ErrEmptyWalkSet), errors.Is(err, app.ErrDuplicateWalkIDs):
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.As(err, &notFound):
			h.writeJSON(w, http.StatusNotFound, walksNotFoundResponse{
				Error:   "Some requested walks do not exist",
				Missing: notFound.Missing,
			})
		case errors.As(err, &nothing):
			h.writeJSON(w, http.StatusConflict, nothingToSettleResponse{
				Error:          "All requested walks are already settled",
				AlreadySettled: nothing.AlreadySettled,
			})
		case errors.As(err, &partial):
			log.Printf("level=error component=api endpoint=settle msg=\"partial settlement\" charge_id=%s orphaned=%d err=%v", partial.ChargeID, len(partial.OrphanedWalkIDs), err)
			h.writeJSON(w, http.StatusInternalServerError, partialSettlementResponse{
				Error:           "Settlement failed mid-operation; listed walks are marked paid without a charge",
				ChargeID:        partial.ChargeID,
				OrphanedWalkIDs: partial.OrphanedWalkIDs,
			})
		default:
			h.writeStoreError(w, "settle", err)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, result)
}

// ListChargesHandler handles GET /cargos with optional filters:
// ?propietario_id=, ?fecha_desde=, ?fecha_hasta=.
func (h *Handlers) ListChargesHandler(w http.ResponseWriter, r *http.Request) {
	var opts domain.ChargeListOptions
	q := r.URL.Query()

	if raw := q.Get("propietario_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid propietario_id")
			return
		}
		opts.OwnerID = &id
	}
	if raw := q.Get("fecha_desde"); raw != "" {
		opts.DateFrom = &raw
	}
	if raw := q.Get("fecha_hasta"); raw != "" {
		opts.DateTo = &raw
	}

	charges, err := h.repo.ListCharges(r.Context(), opts)
	if err != nil {
		h.writeStoreError(w, "list_charges", err)
		return
	}
	h.writeJSON(w, http.StatusOK, charges)
}

// GetChargeHandler handles GET /cargos/{id}.
func (h *Handlers) GetChargeHandler(w http.ResponseWriter, r *http.Request) {
	chargeID, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}

	charge, err := h.repo.FindChargeByID(r.Context(), chargeID)
	if err != nil {
		h.writeStoreError(w, "get_charge", err)
		return
	}
	h.writeJSON(w, http.StatusOK, charge)
}

// ReverseChargeHandler handles DELETE /cargos/{id}. On partial failure the
// charge is kept and the response lists which walks were reverted.
func (h *Handlers) ReverseChargeHandler(w http.ResponseWriter, r *http.Request) {
	chargeID, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.ReverseCharge(r.Context(), chargeID); err != nil {
		var partial *app.PartialReversalError
		if errors.As(err, &partial) {
			log.Printf("level=error component=api endpoint=reverse msg=\"partial reversal\" charge_id=%s reverted=%d failed=%d err=%v", chargeID, len(partial.Reversed), len(partial.Failed), err)
			h.writeJSON(w, http.StatusConflict, partialReversalResponse{
				Error:    "Reversal incomplete; the charge was kept. Retry to revert the remaining walks.",
				ChargeID: partial.ChargeID,
				Reversed: partial.Reversed,
				Failed:   partial.Failed,
			})
			return
		}
		h.writeStoreError(w, "reverse", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Cargo revertido"})
}
