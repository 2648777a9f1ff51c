// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Shivanand-hulikatti/event-reservations/internal/auth"
	"github.com/Shivanand-hulikatti/event-reservations/internal/model"
)

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func badRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
}

// ─── Error codes ──────────────────────────────────────────────────────────────

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings gives every domain error a stable code so clients can
// branch on the cause. Order matters only for wrapped errors.
var errorMappings = []errorMapping{
	{model.ErrEventNotFound, http.StatusNotFound, "event_not_found"},
	{model.ErrEventNotPublished, http.StatusConflict, "event_not_published"},
	{model.ErrAlreadyReserved, http.StatusConflict, "already_reserved"},
	{model.ErrCapacityExhausted, http.StatusConflict, "capacity_exhausted"},
	{model.ErrReservationNotFound, http.StatusNotFound, "reservation_not_found"},
	{model.ErrForbidden, http.StatusForbidden, "forbidden"},
	{model.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{model.ErrMissingPrerequisite, http.StatusUnprocessableEntity, "missing_prerequisite"},
	{model.ErrNotConfirmed, http.StatusConflict, "reservation_not_confirmed"},
	{model.ErrInvalidSignature, http.StatusForbidden, "invalid_signature"},
	{model.ErrMalformedSignature, http.StatusBadRequest, "malformed_signature"},
	{model.ErrTicketUnavailable, http.StatusServiceUnavailable, "ticket_unavailable"},
	{model.ErrInvalidInput, http.StatusBadRequest, "invalid_request"},
	{auth.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
}

// writeServiceError maps err to its status and code. Unknown errors are
// logged and reported as internal errors without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, errorMessage(err, m.err))
			return
		}
	}
	logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

// errorMessage keeps the detail of validation errors, which is meant for
// the client, and uses the sentinel text for everything else.
func errorMessage(err, sentinel error) string {
	if errors.Is(sentinel, model.ErrInvalidInput) {
		return strings.TrimPrefix(err.Error(), model.ErrInvalidInput.Error()+": ")
	}
	return sentinel.Error()
}

// principal returns the authenticated caller. Routes using it sit behind
// the auth middleware, so a missing principal is a wiring bug.
func principal(r *http.Request) model.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
