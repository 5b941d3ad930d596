package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code, a human-readable
// message, and per-field messages for request validation failures.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// errorMapping pairs a sentinel with its HTTP status and code. Order matters:
// the first match wins, so narrow sentinels precede the ones they wrap and
// ErrTransaction comes after the causes it may carry.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrValidation, http.StatusBadRequest, "validation_error"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrInvalidCredential, http.StatusForbidden, "invalid_credential"},
	{domain.ErrInvalidPromotion, http.StatusForbidden, "invalid_promotion"},
	{domain.ErrCannotRemoveManager, http.StatusForbidden, "cannot_remove_manager"},
	{domain.ErrTripNotFound, http.StatusNotFound, "trip_not_found"},
	{domain.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrNotAttached, http.StatusNotFound, "not_attached"},
	{domain.ErrDuplicateEmail, http.StatusConflict, "duplicate_email"},
	{domain.ErrDuplicateMembership, http.StatusConflict, "duplicate_membership"},
	{domain.ErrAlreadyAttached, http.StatusConflict, "already_attached"},
	{domain.ErrTransaction, http.StatusInternalServerError, "transaction_failed"},
}

// writeError maps err onto a status code and ErrorResponse. Errors that match
// no sentinel are logged and reported as a bare 500 so internals never leak.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMapping {
		if !errors.Is(err, m.err) {
			continue
		}
		if m.status >= http.StatusInternalServerError {
			s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
			writeJSON(w, m.status, ErrorResponse{Error: ErrorDetail{Code: m.code, Message: m.err.Error()}})
			return
		}
		writeJSON(w, m.status, ErrorResponse{Error: ErrorDetail{
			Code:    m.code,
			Message: detailMessage(err, m.err),
			Fields:  fieldErrors(err),
		}})
		return
	}

	s.logger.ErrorContext(r.Context(), "unhandled error", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{
		Code:    "internal_error",
		Message: "internal server error",
	}})
}

// writeRequestError reports a request that was rejected before reaching the
// service layer, e.g. a malformed body or path parameter.
func writeRequestError(w http.ResponseWriter, status int, message string) {
	code := "validation_error"
	if status == http.StatusRequestEntityTooLarge {
		code = "body_too_large"
	}
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// detailMessage extracts the human-readable part that follows the sentinel.
// e.g. "service.TripService.Update: validation error: title is required"
// → "title is required". Without a detail the sentinel text is used.
func detailMessage(err, sentinel error) string {
	if _, after, ok := strings.Cut(err.Error(), sentinel.Error()+": "); ok {
		return after
	}
	return sentinel.Error()
}
