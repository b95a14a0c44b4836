package handlers

import (
	"net/http"

	"github.com/boostcampwm2025/ios02-damago/internal/apperr"
	"github.com/boostcampwm2025/ios02-damago/internal/models"
	"github.com/boostcampwm2025/ios02-damago/internal/services"
)

// TaskHandler receives callbacks from an external task scheduler and
// internal maintenance calls
type TaskHandler struct {
	petService    *services.PetService
	notifyService *services.NotifyService
	pairService   *services.PairService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(petService *services.PetService, notifyService *services.NotifyService, pairService *services.PairService) *TaskHandler {
	return &TaskHandler{
		petService:    petService,
		notifyService: notifyService,
		pairService:   pairService,
	}
}

// Hunger handles POST /tasks/hunger
func (h *TaskHandler) Hunger(w http.ResponseWriter, r *http.Request) {
	var req models.HungerTask
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PetID == "" {
		respondError(w, apperr.KindInvalidArgument, "pet_id is required")
		return
	}

	changed, err := h.petService.ApplyHunger(r.Context(), req.PetID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}

// PushRetry handles POST /tasks/push-retry
func (h *TaskHandler) PushRetry(w http.ResponseWriter, r *http.Request) {
	var req models.RetryPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TargetAccountID == "" {
		respondError(w, apperr.KindInvalidArgument, "target_account_id is required")
		return
	}

	if err := h.notifyService.HandleRetry(r.Context(), req); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LiveStatusRequest represents a live status update or start request
type LiveStatusRequest struct {
	TargetAccountID string         `json:"target_account_id"`
	ContentState    map[string]any `json:"content_state"`
	Attributes      map[string]any `json:"attributes"`
}

// UpdateLiveStatus handles POST /tasks/live-status/update
func (h *TaskHandler) UpdateLiveStatus(w http.ResponseWriter, r *http.Request) {
	var req LiveStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TargetAccountID == "" || len(req.ContentState) == 0 {
		respondError(w, apperr.KindInvalidArgument, "target_account_id and content_state are required")
		return
	}

	outcome := h.notifyService.UpdateLiveStatus(r.Context(), req.TargetAccountID, req.ContentState, req.Attributes, services.Delivery{})
	respondJSON(w, http.StatusOK, map[string]string{"outcome": string(outcome)})
}

// StartLiveStatus handles POST /tasks/live-status/start
func (h *TaskHandler) StartLiveStatus(w http.ResponseWriter, r *http.Request) {
	var req LiveStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.notifyService.StartLiveStatus(r.Context(), req.TargetAccountID, req.ContentState, req.Attributes); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdjustCoinsRequest represents a coin balance change
type AdjustCoinsRequest struct {
	CoupleID string `json:"couple_id"`
	Delta    int64  `json:"delta"`
}

// AdjustCoins handles POST /tasks/coins
func (h *TaskHandler) AdjustCoins(w http.ResponseWriter, r *http.Request) {
	var req AdjustCoinsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CoupleID == "" {
		respondError(w, apperr.KindInvalidArgument, "couple_id is required")
		return
	}

	balance, err := h.pairService.AdjustCoins(r.Context(), req.CoupleID, req.Delta)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"total_coin": balance})
}
