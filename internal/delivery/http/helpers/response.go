package helpers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"festregistration/internal/domain"
)

// Error codes that do not come from a domain error kind.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeForbidden     = "forbidden"
	ErrCodeNotFound      = "not_found"
	ErrCodeInternalError = "internal_error"
)

const internalErrorMessage = "internal server error"

// APIError is the body of every error response.
// swagger:model APIError
type APIError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// APIResponse is the envelope for successful responses. Pagination is only
// set on list endpoints.
// swagger:model APIResponse
type APIResponse struct {
	Data       any             `json:"data"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

// WriteJSONSuccess sets Content-Type to application/json, writes statusCode and
// encodes data inside the response envelope.
func WriteJSONSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, APIResponse{Data: data})
}

// WriteJSONPage writes a list response with its pagination metadata.
func WriteJSONPage(w http.ResponseWriter, data any, meta PaginationMeta) {
	writeJSON(w, http.StatusOK, APIResponse{Data: data, Pagination: &meta})
}

// WriteJSONError writes an error body with the given code and message.
func WriteJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, APIError{Error: message, Code: code})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// StatusForKind maps a domain error kind to its HTTP status.
func StatusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindInvalidState, domain.KindCapacityExceeded, domain.KindDuplicate,
		domain.KindInvalidTeamSize, domain.KindInvalidPID, domain.KindCollegeMismatch:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err using its domain kind. Errors without a kind are
// logged and reported as a generic internal error.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := domain.KindOf(err)
	status := StatusForKind(kind)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, status, ErrCodeInternalError, internalErrorMessage)
		return
	}
	if status == http.StatusServiceUnavailable {
		logger.WarnContext(r.Context(), "dependency unavailable", "path", r.URL.Path, "method", r.Method, "err", err)
	}
	WriteJSONError(w, status, string(kind), clientMessage(err))
}

// clientMessage returns the message of the outermost domain error, leaving
// out any wrapping added by services.
func clientMessage(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Error()
	}
	return internalErrorMessage
}
