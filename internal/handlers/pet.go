package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/boostcampwm2025/ios02-damago/internal/middleware"
	"github.com/boostcampwm2025/ios02-damago/internal/services"
)

// PetHandler handles pet HTTP requests
type PetHandler struct {
	petService *services.PetService
}

// NewPetHandler creates a new pet handler
func NewPetHandler(petService *services.PetService) *PetHandler {
	return &PetHandler{petService: petService}
}

// Feed handles POST /api/v1/pets/{pet_id}/feed
func (h *PetHandler) Feed(w http.ResponseWriter, r *http.Request) {
	res, err := h.petService.Feed(r.Context(), middleware.GetAccountID(r.Context()), chi.URLParam(r, "pet_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// SelectRequest represents the request body for choosing the active pet
type SelectRequest struct {
	PetType *string `json:"pet_type"`
	PetName *string `json:"pet_name"`
}

// Select handles POST /api/v1/pets/active
func (h *PetHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pet, err := h.petService.SelectPet(r.Context(), middleware.GetAccountID(r.Context()), req.PetType, req.PetName)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newPetResponse(pet))
}

// Draw handles POST /api/v1/pets/draw
func (h *PetHandler) Draw(w http.ResponseWriter, r *http.Request) {
	res, err := h.petService.DrawPet(r.Context(), middleware.GetAccountID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
