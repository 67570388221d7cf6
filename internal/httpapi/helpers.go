package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"tenauth.org/internal/identity"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeServiceError maps service errors to transport status codes.
// Every permission-rule failure collapses into one uniform forbidden
// response so rule internals never leak to callers.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, identity.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, identity.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, identity.ErrValidation), errors.Is(err, identity.ErrWeakCredential):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrConflict), errors.Is(err, identity.ErrImmutableField):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrNoTransactionSupport):
		writeError(w, http.StatusServiceUnavailable, "store does not support provisioning")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func actorFrom(r *http.Request) (identity.Actor, bool) {
	return identity.ActorFromContext(r.Context())
}
