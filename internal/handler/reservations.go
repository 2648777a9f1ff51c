package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/event-reservations/internal/model"
)

// ReservationAPI is the capacity controller.
type ReservationAPI interface {
	Create(ctx context.Context, actor model.Principal, eventID string) (*model.Reservation, error)
	Transition(ctx context.Context, actor model.Principal, id string, next model.ReservationStatus) (*model.Reservation, error)
	Cancel(ctx context.Context, actor model.Principal, id string) (*model.Reservation, error)
	Get(ctx context.Context, actor model.Principal, id string) (*model.Reservation, error)
	ListByEvent(ctx context.Context, actor model.Principal, eventID string) ([]model.Reservation, error)
}

// ReservationHandler serves reservations.
type ReservationHandler struct {
	svc    ReservationAPI
	logger *slog.Logger
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(svc ReservationAPI, logger *slog.Logger) *ReservationHandler {
	return &ReservationHandler{svc: svc, logger: logger}
}

// Create handles POST /events/{id}/reservations
// Reserves one place for the caller.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Create(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// ListByEvent handles GET /events/{id}/reservations
func (h *ReservationHandler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListByEvent(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if list == nil {
		list = []model.Reservation{}
	}

	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /reservations/{id}
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Get(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Transition handles PATCH /reservations/{id}
// Body: {"status": "CONFIRMED" | "REFUSED" | "CANCELED"}.
func (h *ReservationHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req model.TransitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	res, err := h.svc.Transition(r.Context(), principal(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Cancel handles DELETE /reservations/{id}
// Lets a participant give back their own place.
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Cancel(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
