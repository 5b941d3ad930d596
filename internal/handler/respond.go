package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/trip-planner/backend/internal/middleware"
)

// writeJSON encodes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // the status line is already written; nothing useful to do on failure.
	json.NewEncoder(w).Encode(v)
}

// decodeBody decodes the JSON request body into dst and runs struct
// validation. It writes the error response itself and returns false when the
// request must not proceed.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeRequestError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			writeRequestError(w, http.StatusBadRequest, "request body is required")
		default:
			writeRequestError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		}
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeError(w, r, err)
		return false
	}
	return true
}

// pathUUID binds the named chi path parameter as a UUID, writing a 400 when
// it is malformed.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeRequestError(w, http.StatusBadRequest, fmt.Sprintf("invalid format for parameter %s: %s", name, err))
		return uuid.Nil, false
	}
	return id, true
}

// pathText returns the named chi path parameter decoded. chi matches on
// RawPath when the request has one, so its params are still escaped then.
func pathText(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v, true
	}
	decoded, err := url.PathUnescape(v)
	if err != nil {
		writeRequestError(w, http.StatusBadRequest, fmt.Sprintf("invalid format for parameter %s: %s", name, err))
		return "", false
	}
	return decoded, true
}

// actor returns the acting user placed in the context by middleware.RequireActor.
func actor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrorDetail{Code: "unauthenticated", Message: "acting user is required"}})
		return uuid.Nil, false
	}
	return id, true
}
