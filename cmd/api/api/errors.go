package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/stevedore-sh/stevedore/lib/backend"
	"github.com/stevedore-sh/stevedore/lib/logger"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps the error taxonomy to HTTP. The 404 and 428 codes are part
// of the wire contract: the remote proxy client turns them back into the same
// typed errors on the other side.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, backend.ErrContainerNotFound),
		errors.Is(err, backend.ErrImageNotFound),
		errors.Is(err, backend.ErrSnapshotNotFound),
		errors.Is(err, backend.ErrUserNotFound),
		errors.Is(err, backend.ErrGroupNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, backend.ErrIllegalState):
		return http.StatusPreconditionRequired, "illegal_state"
	case errors.Is(err, backend.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, backend.ErrAuthFailed):
		return http.StatusUnauthorized, "auth_failed"
	case errors.Is(err, backend.ErrReadOnly):
		return http.StatusForbidden, "read_only"
	case errors.Is(err, backend.ErrConnection):
		return http.StatusBadGateway, "connection_error"
	default:
		return http.StatusInternalServerError, "backend_error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", "error", err, "path", r.URL.Path)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "bad_request", Message: "malformed request body"})
		return false
	}
	return true
}

// pathParam returns the named route parameter, unescaped. Image identifiers
// carry '/' and ':' and arrive percent-encoded.
func pathParam(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}
