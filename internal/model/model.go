// Package model defines the core domain types for the event reservation system.
package model

import (
	"strings"
	"time"
)

// EventStatus is the publication state of an event.
type EventStatus string

const (
	EventDraft     EventStatus = "DRAFT"
	EventPublished EventStatus = "PUBLISHED"
	EventCanceled  EventStatus = "CANCELED"
)

// Event represents a capacity-bearing event created by an organizer.
//
// RemainingPlaces is owned by the reservation controller: it is set to
// MaxCapacity on creation and only moves through the conditional
// decrement/increment of a reservation unit of work.
type Event struct {
	ID              string      `json:"id"`
	OrganizerID     string      `json:"organizer_id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Location        string      `json:"location"`
	StartsAt        time.Time   `json:"starts_at"`
	MaxCapacity     int         `json:"max_capacity"`
	RemainingPlaces int         `json:"remaining_places"`
	Status          EventStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Held returns the number of places currently held by reservations.
func (e *Event) Held() int {
	return e.MaxCapacity - e.RemainingPlaces
}

// IsFull returns true when no places remain.
func (e *Event) IsFull() bool {
	return e.RemainingPlaces <= 0
}

// ReservationStatus is the state of a reservation.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"
	StatusConfirmed ReservationStatus = "CONFIRMED"
	StatusRefused   ReservationStatus = "REFUSED"
	StatusCanceled  ReservationStatus = "CANCELED"
)

// Valid reports whether s is one of the known statuses.
func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRefused, StatusCanceled:
		return true
	}
	return false
}

// HoldsCapacity reports whether a reservation in status s occupies a place.
func (s ReservationStatus) HoldsCapacity() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Released reports whether s is a terminal status that gave its place back.
func (s ReservationStatus) Released() bool {
	return s == StatusRefused || s == StatusCanceled
}

// CanTransitionTo reports whether next is reachable from s.
//
//	PENDING   -> CONFIRMED | REFUSED | CANCELED
//	CONFIRMED -> CANCELED
//	REFUSED, CANCELED are terminal.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusRefused || next == StatusCanceled
	case StatusConfirmed:
		return next == StatusCanceled
	}
	return false
}

// Reservation is one participant's claim on one event.
type Reservation struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	EventID      string            `json:"event_id"`
	Status       ReservationStatus `json:"status"`
	TicketKey    string            `json:"ticket_key,omitempty"`
	TicketIssued bool              `json:"ticket_issued"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// BadgeID is the short, human-readable form of a reservation id printed on tickets.
func BadgeID(reservationID string) string {
	id := strings.ReplaceAll(reservationID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

// Role is the role of an authenticated principal.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleOrganizer   Role = "organizer"
	RoleAdmin       Role = "admin"
)

// Principal is the acting user as supplied by the identity provider.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin returns true for administrators.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Profile holds the participant data needed to render a ticket.
type Profile struct {
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	AvatarKey string    `json:"avatar_key,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notification is an in-app notice delivered to a user.
type Notification struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ReservationID string    `json:"reservation_id"`
	Kind          string    `json:"kind"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	Capacity    int       `json:"capacity"`
}

// TransitionRequest is the payload for changing a reservation's status.
type TransitionRequest struct {
	Status ReservationStatus `json:"status"`
}

// ProfileRequest is the payload for updating the caller's profile.
type ProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// TicketRef points at a persisted ticket artifact.
type TicketRef struct {
	Key       string `json:"ticket_key"`
	URL       string `json:"url"`
	Signature string `json:"signature"`
}

// VerificationResult is returned by the ticket verification endpoint.
// Valid reflects the reservation's current status, not the signature alone.
type VerificationResult struct {
	Valid       bool          `json:"valid"`
	Reservation TicketSummary `json:"reservation"`
}

// TicketSummary describes the reservation behind a presented ticket.
type TicketSummary struct {
	ID          string             `json:"id"`
	Status      ReservationStatus  `json:"status"`
	BadgeID     string             `json:"badgeId"`
	Participant ParticipantSummary `json:"participant"`
	Event       EventSummary       `json:"event"`
}

// ParticipantSummary is the public part of a participant's profile.
type ParticipantSummary struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	AvatarURL string `json:"avatarUrl"`
}

// EventSummary is the public part of an event shown on a ticket.
type EventSummary struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	DateTime time.Time `json:"dateTime"`
	Location string    `json:"location"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// BookingResult summarises the outcome of a single reservation attempt.
// Used in the concurrent test harness.
type BookingResult struct {
	UserID string
	Error  error
}
