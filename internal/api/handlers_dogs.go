/**
 * @description
 * HTTP handlers for the dog (perros) endpoints: list with owner embedding,
 * detail, create, update, deactivate, and the multipart photo upload.
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

// maxPhotoUploadBytes caps the photo upload request body at 10 MiB.
const maxPhotoUploadBytes = 10 << 20

// ListDogsHandler handles GET /perros. Supports ?propietario_id= to filter by
// owner and ?incluir_inactivos=true to include deactivated dogs.
func (h *Handlers) ListDogsHandler(w http.ResponseWriter, r *http.Request) {
	var ownerID *uuid.UUID
	if raw := r.URL.Query().Get("propietario_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid propietario_id")
			return
		}
		ownerID = &id
	}
	var active *bool
	if r.URL.Query().Get("incluir_inactivos") != "true" {
		t := true
		active = &t
	}

	dogs, err := h.repo.ListDogs(r.Context(), ownerID, active)
	if err != nil {
		h.writeStoreError(w, "list_dogs", err)
		return
	}
	h.writeJSON(w, http.StatusOK, dogs)
}

// GetDogHandler handles GET /perros/{id}.
func (h *Handlers) GetDogHandler(w http.ResponseWriter, r *http.Request) {
	dogID, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}

	dog, err := h.repo.FindDogByID(r.Context(), dogID)
	if err != nil {
		h.writeStoreError(w, "get_dog", err)
		return
	}
	h.writeJSON(w, http.StatusOK, dog)
}

// CreateDogHandler handles POST /perros. The referenced owner must exist.
func (h *Handlers) CreateDogHandler(w http.ResponseWriter, r *http.Request) {
	var payload domain.CreateDogPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "nombre is required")
		return
	}
	if payload.OwnerID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "propietario_id is required")
		return
	}

	if _, err := h.repo.FindOwnerByID(r.Context(), payload.OwnerID); err != nil {
		if errors.Is(err, store.ErrOwnerNotFound) {
			h.writeError(w, http.StatusUnprocessableEntity, "Referenced owner does not exist")
			return
		}
		h.writeStoreError(w, "create_dog", err)
		return
	}

	dog, err := h.repo.CreateDog(r.Context(), payload)
	if err != nil {
		h.writeStoreError(w, "create_dog", err)
		return
	}
	log.Printf("level=info component=api endpoint=create_dog dog_id=%s owner_id=%s", dog.ID, dog.OwnerID)
	h.writeJSON(w, http.StatusCreated, dog)
}

// UpdateDogHandler handles PUT /perros/{id}.
func (h *Handlers) UpdateDogHandler(w http.ResponseWriter, r *http.Request) {
	dogID, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var patch domain.UpdateDogPayload
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	dog, err := h.repo.UpdateDog(r.Context(), dogID, patch)
	if err != nil {
		h.writeStoreError(w, "update_dog", err)
		return
	}
	h.writeJSON(w, http.StatusOK, dog)
}

// DeleteDogHandler handles DELETE /perros/{id}. Dogs are deactivated, not
// removed, so walk history keeps resolving.
func (h *Handlers) DeleteDogHandler(w http.ResponseWriter, r *http.Request) {
	dogID, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.repo.DeactivateDog(r.Context(), dogID); err != nil {
		h.writeStoreError(w, "delete_dog", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Perro desactivado"})
}

// UploadDogPhotoHandler handles POST /perros/{id}/foto. Expects a multipart
// form with the image under the "foto" field.
func (h *Handlers) UploadDogPhotoHandler(w http.ResponseWriter, r *http.Request) {
	dogID, ok := h.parseIDParam(w, r, "id")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoUploadBytes)
	if err := r.ParseMultipartForm(maxPhotoUploadBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid multipart form or file too large")
		return
	}
	file, header, err := r.FormFile("foto")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Missing file field 'foto'")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		h.writeError(w, http.StatusBadRequest, "File must be an image")
		return
	}

	dog, err := h.service.AttachDogPhoto(r.Context(), dogID, header.Filename, contentType, file)
	if err != nil {
		if errors.Is(err, store.ErrDogNotFound) {
			h.writeError(w, http.StatusNotFound, "Dog not found")
			return
		}
		log.Printf("level=error component=api endpoint=upload_dog_photo dog_id=%s err=%v", dogID, err)
		h.writeError(w, http.StatusBadGateway, "Photo upload failed")
		return
	}
	h.writeJSON(w, http.StatusOK, dog)
}
