package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/boostcampwm2025/ios02-damago/internal/middleware"
	"github.com/boostcampwm2025/ios02-damago/internal/services"
)

// UserHandler handles account related HTTP requests
type UserHandler struct {
	userService *services.UserService
	pairService *services.PairService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, pairService *services.PairService) *UserHandler {
	return &UserHandler{
		userService: userService,
		pairService: pairService,
	}
}

// GetInfo handles GET /api/v1/me
func (h *UserHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.userService.GetInfo(r.Context(), middleware.GetAccountID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newInfoResponse(info))
}

// UpdateProfile handles PATCH /api/v1/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req services.ProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	info, err := h.userService.UpdateProfile(r.Context(), middleware.GetAccountID(r.Context()), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newInfoResponse(info))
}

// UpdateTokens handles PUT /api/v1/me/tokens
func (h *UserHandler) UpdateTokens(w http.ResponseWriter, r *http.Request) {
	var req services.TokenUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.userService.UpdateTokens(r.Context(), middleware.GetAccountID(r.Context()), req); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConnectionStatus handles GET /api/v1/me/connection
func (h *UserHandler) ConnectionStatus(w http.ResponseWriter, r *http.Request) {
	connected, err := h.userService.ConnectionStatus(r.Context(), middleware.GetAccountID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"is_connected": connected})
}

// Withdraw handles DELETE /api/v1/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())
	if err := h.pairService.Withdraw(r.Context(), accountID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PokeRequest represents the request body for a poke
type PokeRequest struct {
	Message string `json:"message"`
}

// Poke handles POST /api/v1/poke
func (h *UserHandler) Poke(w http.ResponseWriter, r *http.Request) {
	var req PokeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	accountID := middleware.GetAccountID(r.Context())
	outcome, err := h.userService.Poke(r.Context(), accountID, req.Message)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	log.Info().Str("account_id", accountID).Str("outcome", string(outcome)).Msg("Partner poked")
	respondJSON(w, http.StatusOK, map[string]string{"outcome": string(outcome)})
}
