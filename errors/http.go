package errors

import (
	"encoding/json"
	"net/http"
)

// StatusClientClosedRequest is the non-standard status used when the client
// cancels before a response is written.
const StatusClientClosedRequest = 499

// HTTPStatus maps an error code to the response status the API writes.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrCodeRateLimit:
		return http.StatusTooManyRequests
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes e as {"error": {...}} with the status its code maps to
// and returns that status.
func WriteJSON(w http.ResponseWriter, e *Error) int {
	status := HTTPStatus(e.Code())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(struct {
		Error *Error `json:"error"`
	}{e})
	return status
}
