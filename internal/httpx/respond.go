// Package httpx holds the JSON boundary shared by all handlers: response
// writing, the stable error envelope, and request metadata extraction.
package httpx

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"audittrail-backend/internal/models"
	"audittrail-backend/internal/storage"
)

// Error kinds exposed to clients. Stable machine-readable identifiers; free
// text lives in the message only.
const (
	KindValidation      = "validation_error"
	KindConflict        = "conflict"
	KindUnauthenticated = "unauthenticated"
	KindForbidden       = "forbidden"
	KindNotFound        = "not_found"
	KindInternal        = "internal"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Error(w http.ResponseWriter, status int, kind, message string) {
	JSON(w, status, map[string]errorBody{"error": {Kind: kind, Message: message}})
}

func Unauthenticated(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, KindUnauthenticated, "authentication required")
}

func Forbidden(w http.ResponseWriter) {
	Error(w, http.StatusForbidden, KindForbidden, "insufficient permissions")
}

// ErrorFrom maps domain errors to their boundary shape. Unrecognized errors
// become opaque 500s; no storage detail leaks to clients.
func ErrorFrom(w http.ResponseWriter, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		Error(w, http.StatusBadRequest, KindValidation, ve.Error())
	case errors.Is(err, storage.ErrDomainTaken),
		errors.Is(err, storage.ErrEmailTaken):
		Error(w, http.StatusConflict, KindConflict, err.Error())
	case errors.Is(err, storage.ErrAccountNotFound),
		errors.Is(err, storage.ErrUserNotFound):
		Error(w, http.StatusNotFound, KindNotFound, err.Error())
	default:
		Error(w, http.StatusInternalServerError, KindInternal, "internal error")
	}
}

// ClientIP returns the originating address, honoring X-Forwarded-For from a
// fronting proxy.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
