package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/acgh213/promptvault/internal/access"
	"github.com/acgh213/promptvault/internal/prompts"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeFailure maps domain errors to responses. Anything unrecognised is
// logged and reported as a 500.
func writeFailure(w http.ResponseWriter, r *http.Request, err error, what string) {
	var validation *prompts.ValidationError
	var invalidTier *access.InvalidTierError

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "validation_failed",
			Message: "invalid input",
			Fields:  validation.Fields,
		})
	case errors.Is(err, prompts.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "prompt not found")
	case errors.Is(err, prompts.ErrSlugConflict):
		writeError(w, http.StatusConflict, "slug_conflict", "a prompt with this slug already exists")
	case errors.Is(err, prompts.ErrConflict):
		writeError(w, http.StatusConflict, "edit_conflict", "the prompt changed since it was loaded")
	case errors.As(err, &invalidTier):
		// A tier outside the loaded table is a configuration fault.
		slog.Error("tier not in table", "tier", invalidTier.Tier, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "invalid_tier", invalidTier.Error())
	default:
		slog.Error("failed to "+what, "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Sprintf("failed to %s", what))
	}
}

// decodeJSON reads a size-limited JSON body into dst and rejects unknown
// fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "malformed JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		writeError(w, http.StatusBadRequest, "bad_request", msg)
		return false
	}
	return true
}

// clientIP strips the port from RemoteAddr. middleware.RealIP has already
// replaced it with the forwarded address when one was sent.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
