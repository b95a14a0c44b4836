package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/boostcampwm2025/ios02-damago/internal/apperr"
	"github.com/boostcampwm2025/ios02-damago/internal/middleware"
)

// ErrorBody describes a failed request
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// respondJSON writes v with the given status
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError sends an error response of the given kind
func respondError(w http.ResponseWriter, kind apperr.Kind, message string) {
	respondJSON(w, kind.HTTPStatus(), ErrorResponse{Error: ErrorBody{Code: string(kind), Message: message}})
}

// respondServiceError maps a service error to a response. Internal details
// are logged and replaced by the request id.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	body := ErrorBody{Code: string(kind)}

	var ae *apperr.Error
	if kind.Public() && errors.As(err, &ae) {
		body.Message = ae.Message
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Request rejected")
	} else {
		body.RequestID = chiMiddleware.GetReqID(r.Context())
		body.Message = "internal error"
		if kind == apperr.KindUnavailable {
			body.Message = "service temporarily unavailable, try again"
		}
		log.Error().
			Err(err).
			Str("path", r.URL.Path).
			Str("request_id", body.RequestID).
			Str("account_id", middleware.GetAccountID(r.Context())).
			Msg("Request failed")
	}

	respondJSON(w, kind.HTTPStatus(), ErrorResponse{Error: body})
}

// decodeJSON reads the request body into v. An empty body leaves v as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	respondError(w, apperr.KindInvalidArgument, "Invalid request body")
	return false
}
