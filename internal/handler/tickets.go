package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/event-reservations/internal/model"
)

// TicketIssuer produces ticket artifacts.
type TicketIssuer interface {
	Issue(ctx context.Context, actor model.Principal, reservationID string) (*model.TicketRef, error)
	Download(ctx context.Context, actor model.Principal, reservationID string) ([]byte, error)
}

// TicketVerifier checks presented tickets.
type TicketVerifier interface {
	Verify(ctx context.Context, reservationID, sig string) (*model.VerificationResult, error)
}

// TicketHandler serves ticket download and verification.
type TicketHandler struct {
	issuer   TicketIssuer
	verifier TicketVerifier
	logger   *slog.Logger
}

// NewTicketHandler constructs a TicketHandler.
func NewTicketHandler(issuer TicketIssuer, verifier TicketVerifier, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{issuer: issuer, verifier: verifier, logger: logger}
}

// Issue handles GET /reservations/{id}/ticket
// Returns the ticket reference, rendering it on first request.
func (h *TicketHandler) Issue(w http.ResponseWriter, r *http.Request) {
	ref, err := h.issuer.Issue(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, ref)
}

// Download handles GET /reservations/{id}/ticket.pdf
// Streams the ticket PDF to its owner or an admin.
func (h *TicketHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.issuer.Download(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="ticket-`+id+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// Verify handles GET /tickets/verify/{id}?sig=
// Public: scanners call it with the URL from the ticket's QR code. A known
// reservation that is no longer confirmed is a 200 with valid=false.
func (h *TicketHandler) Verify(w http.ResponseWriter, r *http.Request) {
	sig := r.URL.Query().Get("sig")
	if sig == "" {
		writeError(w, http.StatusBadRequest, "malformed_signature", "sig query parameter is required")
		return
	}

	result, err := h.verifier.Verify(r.Context(), chi.URLParam(r, "id"), sig)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
