// Package httpx holds the JSON request and response helpers shared by the HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"storefront/backend/internal/kvstore"
	"storefront/backend/internal/platform/errs"
)

// DecodeJSON decodes the request body into out. Unknown fields are rejected.
func DecodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

// WriteJSON writes payload as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError writes {"error": code} with the given status.
func WriteError(w http.ResponseWriter, status int, code string) {
	WriteJSON(w, status, map[string]string{"error": code})
}

type validationBody struct {
	Error  string `json:"error"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// WriteErr maps err onto a status and error code. Unknown errors are logged and reported as 500.
func WriteErr(w http.ResponseWriter, err error) {
	var (
		verr    *errs.ValidationError
		storErr *kvstore.StorageError
	)
	switch {
	case errors.As(err, &verr):
		WriteJSON(w, http.StatusBadRequest, validationBody{Error: "invalid_request", Field: verr.Field, Reason: verr.Reason})
	case errors.Is(err, errs.ErrValidation):
		WriteError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, errs.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, errs.ErrDuplicate):
		WriteError(w, http.StatusConflict, "already_exists")
	case errors.Is(err, errs.ErrConflict):
		WriteError(w, http.StatusConflict, "conflict")
	case errors.As(err, &storErr):
		log.Printf("http: storage unavailable: %v", err)
		WriteError(w, http.StatusServiceUnavailable, "storage_unavailable")
	default:
		log.Printf("http: %v", err)
		WriteError(w, http.StatusInternalServerError, "server_error")
	}
}
