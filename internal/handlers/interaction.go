package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/boostcampwm2025/ios02-damago/internal/apperr"
	"github.com/boostcampwm2025/ios02-damago/internal/middleware"
	"github.com/boostcampwm2025/ios02-damago/internal/models"
	"github.com/boostcampwm2025/ios02-damago/internal/services"
)

// InteractionHandler handles daily question and balance game requests
type InteractionHandler struct {
	interactionService *services.InteractionService
}

// NewInteractionHandler creates a new interaction handler
func NewInteractionHandler(interactionService *services.InteractionService) *InteractionHandler {
	return &InteractionHandler{interactionService: interactionService}
}

func track(r *http.Request) models.Track {
	return models.Track(chi.URLParam(r, "track"))
}

// Current handles GET /api/v1/interactions/{track}/current
func (h *InteractionHandler) Current(w http.ResponseWriter, r *http.Request) {
	cur, err := h.interactionService.FetchCurrent(r.Context(), middleware.GetAccountID(r.Context()), track(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newCurrentResponse(cur))
}

// AnswerRequest represents the request body for an answer. Balance game
// choices may be sent as the number 1 or 2.
type AnswerRequest struct {
	ItemID string `json:"item_id"`
	Answer string `json:"answer"`
	Choice *int   `json:"choice"`
}

// Submit handles POST /api/v1/interactions/{track}/answers
func (h *InteractionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	answer := req.Answer
	if req.Choice != nil {
		answer = strconv.Itoa(*req.Choice)
	}

	res, err := h.interactionService.SubmitAnswer(r.Context(), middleware.GetAccountID(r.Context()), track(r), req.ItemID, answer)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// History handles GET /api/v1/interactions/{track}/history
func (h *InteractionHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, apperr.KindInvalidArgument, "limit must be a positive number")
			return
		}
		limit = n
	}

	items, err := h.interactionService.History(r.Context(), middleware.GetAccountID(r.Context()), track(r), limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": newHistoryResponse(items)})
}
