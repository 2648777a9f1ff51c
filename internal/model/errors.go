package model

import "errors"

// Precondition errors.
var (
	ErrEventNotFound       = errors.New("event not found")
	ErrEventNotPublished   = errors.New("event is not open for reservations")
	ErrReservationNotFound = errors.New("reservation not found")
)

// Conflict errors. None of these are retried by the core.
var (
	ErrAlreadyReserved   = errors.New("user already holds a reservation for this event")
	ErrCapacityExhausted = errors.New("event has no remaining places")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrNotConfirmed      = errors.New("reservation is not confirmed")
)

// Authorization errors.
var ErrForbidden = errors.New("forbidden")

// Ticket errors.
var (
	ErrMissingPrerequisite = errors.New("participant profile photo is required")
	ErrInvalidSignature    = errors.New("invalid ticket signature")
	ErrMalformedSignature  = errors.New("malformed ticket signature")
	ErrTicketUnavailable   = errors.New("ticket could not be produced")
)

// ErrInvalidInput is returned for requests that fail validation.
var ErrInvalidInput = errors.New("invalid input")

// ErrProfileNotFound is returned when a user has no stored profile.
var ErrProfileNotFound = errors.New("profile not found")
