package handlers

import (
	"net/http"

	"github.com/boostcampwm2025/ios02-damago/internal/middleware"
	"github.com/boostcampwm2025/ios02-damago/internal/services"
)

// PairHandler handles pairing HTTP requests
type PairHandler struct {
	pairService *services.PairService
}

// NewPairHandler creates a new pair handler
func NewPairHandler(pairService *services.PairService) *PairHandler {
	return &PairHandler{pairService: pairService}
}

// IssueCode handles POST /api/v1/pairing-code
func (h *PairHandler) IssueCode(w http.ResponseWriter, r *http.Request) {
	info, err := h.pairService.IssuePairingCode(r.Context(), middleware.GetAccountID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if info.Created {
		status = http.StatusCreated
	}
	respondJSON(w, status, info)
}

// ConnectRequest represents the request body for connecting a couple
type ConnectRequest struct {
	TargetCode string `json:"target_code"`
}

// Connect handles POST /api/v1/couple
func (h *PairHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.pairService.Connect(r.Context(), middleware.GetAccountID(r.Context()), req.TargetCode)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	respondJSON(w, status, res)
}
