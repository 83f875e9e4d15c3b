package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xraph/streamledger"
	"github.com/xraph/streamledger/auth"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps ledger errors to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrMissingProof):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, streamledger.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, streamledger.ErrNotAdmin):
		return http.StatusForbidden, "not_admin"
	case errors.Is(err, streamledger.ErrStreamNotFound):
		return http.StatusNotFound, "stream_not_found"
	case errors.Is(err, streamledger.ErrStreamInactive):
		return http.StatusConflict, "stream_inactive"
	case errors.Is(err, streamledger.ErrAlreadyInitialized):
		return http.StatusConflict, "already_initialized"
	case errors.Is(err, streamledger.ErrSettlementPending):
		return http.StatusConflict, "settlement_pending"
	case errors.Is(err, streamledger.ErrEmergencyStopEnabled):
		return http.StatusLocked, "emergency_stop"
	case errors.Is(err, streamledger.ErrInvalidAmount),
		errors.Is(err, streamledger.ErrAmountOverflow):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, streamledger.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, streamledger.ErrTransferFailed):
		return http.StatusBadGateway, "transfer_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

// fail writes err using statusFor. Internal errors hide their message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("api: request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestIDFrom(r),
			"error", err,
		)
		msg = "internal error"
	}
	writeError(w, status, code, msg)
}
