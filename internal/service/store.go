package service

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/event-reservations/internal/model"
)

// TxRunner runs fn as one atomic unit of work. Stores called with the
// context passed to fn join that unit.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventStore persists event metadata. It never writes remaining places
// after creation.
type EventStore interface {
	CreateEvent(ctx context.Context, event *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	SetEventStatus(ctx context.Context, id string, from []model.EventStatus, to model.EventStatus) (bool, error)
}

// CapacityStore owns an event's remaining places.
type CapacityStore interface {
	// TakePlace decrements remaining places of a published event only if
	// it is currently positive. It reports false when no row was changed.
	TakePlace(ctx context.Context, eventID string) (bool, error)

	// ReleasePlace gives one place back, never exceeding max capacity.
	ReleasePlace(ctx context.Context, eventID string) error
}

// ReservationStore is the reservation ledger.
type ReservationStore interface {
	FindActiveReservation(ctx context.Context, userID, eventID string) (*model.Reservation, error)
	InsertReservation(ctx context.Context, r *model.Reservation) error
	GetReservation(ctx context.Context, id string) (*model.Reservation, error)
	GetReservationForUpdate(ctx context.Context, id string) (*model.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id string, from, to model.ReservationStatus, at time.Time) (bool, error)
	ListReservationsByEvent(ctx context.Context, eventID string) ([]model.Reservation, error)
}

// ProfileStore persists participant profiles.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, p *model.Profile) error
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	SetAvatarKey(ctx context.Context, userID, key string, at time.Time) error
}

// InboxStore lists in-app notifications.
type InboxStore interface {
	ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error)
}

// Notifier schedules best-effort side notifications. Implementations must
// return immediately.
type Notifier interface {
	ReservationCreated(r model.Reservation, e model.Event)
	ReservationConfirmed(r model.Reservation, e model.Event)
}

// ObjectWriter stores binary objects under a key.
type ObjectWriter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}
