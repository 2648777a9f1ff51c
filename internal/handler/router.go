package handler

import (
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Deps are the collaborators the router serves.
type Deps struct {
	Events       EventAPI
	Reservations ReservationAPI
	Issuer       TicketIssuer
	Verifier     TicketVerifier
	Profiles     ProfileAPI
	// Authenticate guards every route except health, event reads, ticket
	// verification and profile photos.
	Authenticate func(http.Handler) http.Handler
	// FilesDir is the object store root. Only its avatars/ subtree is
	// served, under /files/avatars/. Empty disables the route.
	FilesDir string
	Logger   *slog.Logger
}

// NewRouter builds the HTTP API.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	events := NewEventHandler(d.Events, logger)
	reservations := NewReservationHandler(d.Reservations, logger)
	tickets := NewTicketHandler(d.Issuer, d.Verifier, logger)
	profiles := NewProfileHandler(d.Profiles, logger)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(logger))          // structured access log
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(CORS)

	// Public
	r.Get("/health", HealthCheck)
	r.Get("/events", events.ListEvents)
	r.Get("/events/{id}", events.GetEvent)
	r.Get("/tickets/verify/{id}", tickets.Verify)
	if d.FilesDir != "" {
		avatars := http.FileServer(http.Dir(filepath.Join(d.FilesDir, "avatars")))
		r.Handle("/files/avatars/*", http.StripPrefix("/files/avatars/", avatars))
	}

	// Authenticated
	r.Group(func(r chi.Router) {
		r.Use(d.Authenticate)

		r.Post("/events", events.CreateEvent)
		r.Post("/events/{id}/publish", events.PublishEvent)
		r.Post("/events/{id}/cancel", events.CancelEvent)
		r.Post("/events/{id}/reservations", reservations.Create)
		r.Get("/events/{id}/reservations", reservations.ListByEvent)

		r.Get("/reservations/{id}", reservations.Get)
		r.Patch("/reservations/{id}", reservations.Transition)
		r.Delete("/reservations/{id}", reservations.Cancel)
		r.Get("/reservations/{id}/ticket", tickets.Issue)
		r.Get("/reservations/{id}/ticket.pdf", tickets.Download)

		r.Put("/me/profile", profiles.UpdateProfile)
		r.Put("/me/avatar", profiles.SetAvatar)
		r.Get("/me/notifications", profiles.Notifications)
	})

	return r
}
