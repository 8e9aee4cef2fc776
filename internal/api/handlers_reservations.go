/**
 * @description
 * HTTP handlers for the reservation (reservas) endpoints: list with filters,
 * create, status transition, and delete. Completing a reservation registers
 * the corresponding walk.
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

// ListReservationsHandler handles GET /reservas with optional ?fecha= and
// ?estado= filters.
func (h *Handlers) ListReservationsHandler(w http.ResponseWriter, r *http.Request) {
	var opts domain.ReservationListOptions
	q := r.URL.Query()

	if raw := q.Get("fecha"); raw != "" {
		opts.Date = &raw
	}
	if raw := q.Get("estado"); raw != "" {
		if !domain.ValidReservationStatus(raw) {
			h.writeError(w, http.StatusBadRequest, "Invalid estado")
			return
		}
		opts.Status = &raw
	}

	reservations, err := h.repo.ListReservations(r.Context(), opts)
	if err != nil {
		h.writeStoreError(w, "list_reservations", err)
		return
	}
	h.writeJSON(w, http.StatusOK, reservations)
}

// CreateReservationHandler handles POST /reservas.
func (h *Handlers) CreateReservationHandler(w http.ResponseWriter, r *http.Request) {
	var payload domain.CreateReservationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.DogID == uuid.Nil || payload.WalkTypeID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "perro_id and catalogo_paseo_id are required")
		return
	}
	if strings.TrimSpace(payload.Date) == "" {
		h.writeError(w, http.StatusBadRequest, "fecha_reserva is required")
		return
	}

	if _, err := h.repo.FindDogByID(r.Context(), payload.DogID); err != nil {
		if errors.Is(err, store.ErrDogNotFound) {
			h.writeError(w, http.StatusUnprocessableEntity, "Referenced dog does not exist")
			return
		}
		h.writeStoreError(w, "create_reservation", err)
		return
	}

	reservation, err := h.repo.CreateReservation(r.Context(), payload)
	if err != nil {
		h.writeStoreError(w, "create_reservation", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, reservation)
}

type reservationStatusRequest struct {
	Status string `json:"estado"`
}

// UpdateReservationStatusHandler handles PUT /reservas/{id}/estado. Moving a
// reservation to "completada" additionally registers the walk it scheduled,
// priced from the catalog.
func (h *Handlers) UpdateReservationStatusHandler(w http.ResponseWriter, r *http.Request) {
	reservationID, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req reservationStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !domain.ValidReservationStatus(req.Status) {
		h.writeError(w, http.StatusBadRequest, "Invalid estado")
		return
	}

	reservation, err := h.repo.UpdateReservationStatus(r.Context(), reservationID, req.Status)
	if err != nil {
		h.writeStoreError(w, "update_reservation_status", err)
		return
	}

	if req.Status == domain.ReservationCompleted {
		walkPayload := domain.CreateWalkPayload{
			DogID:      reservation.DogID,
			WalkTypeID: reservation.WalkTypeID,
			Date:       reservation.Date,
			StartTime:  reservation.StartTime,
			Notes:      reservation.Notes,
		}
		if _, err := h.repo.CreateWalk(r.Context(), walkPayload); err != nil {
			// The status change already happened; report the inconsistency
			// instead of pretending the walk exists.
			log.Printf("level=error component=api endpoint=update_reservation_status msg=\"reservation completed but walk registration failed\" reservation_id=%s err=%v", reservationID, err)
			h.writeError(w, http.StatusInternalServerError, "Reservation completed but the walk could not be registered; register it manually")
			return
		}
	}

	h.writeJSON(w, http.StatusOK, reservation)
}

// DeleteReservationHandler handles DELETE /reservas/{id}.
func (h *Handlers) DeleteReservationHandler(w http.ResponseWriter, r *http.Request) {
	reservationID, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.repo.DeleteReservation(r.Context(), reservationID); err != nil {
		h.writeStoreError(w, "delete_reservation", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Reserva eliminada"})
}
