package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/logger"
)

type errorResponse struct {
	Error            string                `json:"error"`
	Field            string                `json:"field,omitempty"`
	From             domain.EquipmentState `json:"from,omitempty"`
	To               domain.EquipmentState `json:"to,omitempty"`
	Action           domain.Action         `json:"action,omitempty"`
	ActiveContractID int64                 `json:"active_contract_id,omitempty"`
	RegistryState    domain.EquipmentState `json:"registry_state,omitempty"`
}

// statusFor maps a service error to its HTTP status and body.
func statusFor(err error) (int, errorResponse) {
	var (
		ite *domain.InvalidTransitionError
		abe *domain.AlreadyBoundError
		ve  *domain.ValidationError
		lde *domain.LedgerDivergenceError
	)
	switch {
	case errors.As(err, &ite):
		return http.StatusConflict, errorResponse{Error: err.Error(), From: ite.From, To: ite.To, Action: ite.Action}
	case errors.As(err, &abe):
		return http.StatusConflict, errorResponse{Error: domain.ErrAlreadyBound.Error(), ActiveContractID: abe.ActiveContractID}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error()}
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, errorResponse{Error: ve.Message, Field: ve.Field}
	case errors.Is(err, domain.ErrIdempotencyMismatch):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error()}
	case errors.As(err, &lde):
		return http.StatusConflict, errorResponse{Error: err.Error(), To: lde.Expected, RegistryState: lde.RegistryState}
	case errors.Is(err, domain.ErrVersionConflict):
		return http.StatusServiceUnavailable, errorResponse{Error: domain.ErrVersionConflict.Error()}
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal error"}
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	code, body := statusFor(err)
	if code == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(1))
	}
	if code >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	respondJSON(w, code, body)
}

func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func respondMessage(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, errorResponse{Error: msg})
}
