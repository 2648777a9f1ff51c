package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-reservations/internal/clock"
	"github.com/Shivanand-hulikatti/event-reservations/internal/model"
)

// ReservationService is the capacity controller. Every change to an
// event's remaining places goes through one of its units of work:
//
//   - Create takes a place with a conditional decrement and inserts the
//     PENDING reservation in the same transaction. If the decrement
//     changes nothing the unit aborts before any other write.
//   - Transition changes the status with a compare-and-set on the prior
//     status and, only when a capacity-holding reservation moves to a
//     released status, gives the place back in the same transaction.
//
// Remaining places are never read to decide whether a place is free; the
// store evaluates the condition itself, so concurrent Create calls on an
// event with K places succeed exactly min(N, K) times.
type ReservationService struct {
	tx           TxRunner
	events       EventStore
	capacity     CapacityStore
	reservations ReservationStore
	notifier     Notifier
	clock        clock.Clock
	logger       *slog.Logger
}

// ReservationServiceOption customises a ReservationService.
type ReservationServiceOption func(*ReservationService)

// WithClock overrides the clock used for reservation timestamps.
func WithClock(clk clock.Clock) ReservationServiceOption {
	return func(s *ReservationService) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ReservationServiceOption {
	return func(s *ReservationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewReservationService wires the controller to its stores and notifier.
func NewReservationService(
	tx TxRunner,
	events EventStore,
	capacity CapacityStore,
	reservations ReservationStore,
	notifier Notifier,
	opts ...ReservationServiceOption,
) *ReservationService {
	s := &ReservationService{
		tx:           tx,
		events:       events,
		capacity:     capacity,
		reservations: reservations,
		notifier:     notifier,
		clock:        clock.NewSystem(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create reserves one place on eventID for actor.
func (s *ReservationService) Create(ctx context.Context, actor model.Principal, eventID string) (*model.Reservation, error) {
	if actor.UserID == "" {
		return nil, model.ErrForbidden
	}
	if !validID(eventID) {
		return nil, model.ErrEventNotFound
	}

	now := s.clock.Now()
	reservation := &model.Reservation{
		ID:        uuid.NewString(),
		UserID:    actor.UserID,
		EventID:   eventID,
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var event *model.Event

	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		existing, err := s.reservations.FindActiveReservation(txCtx, actor.UserID, eventID)
		if err != nil {
			return err
		}
		if existing != nil {
			return model.ErrAlreadyReserved
		}

		taken, err := s.capacity.TakePlace(txCtx, eventID)
		if err != nil {
			return err
		}
		if !taken {
			return s.refusalReason(txCtx, eventID)
		}

		if err := s.reservations.InsertReservation(txCtx, reservation); err != nil {
			return err
		}

		event, err = s.events.GetEvent(txCtx, eventID)
		return err
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	s.logger.Info("reservation created",
		"reservation_id", reservation.ID,
		"event_id", eventID,
		"user_id", actor.UserID,
		"remaining_places", event.RemainingPlaces,
		"held", event.Held(),
	)
	s.notifier.ReservationCreated(*reservation, *event)
	return reservation, nil
}

// refusalReason explains why the conditional decrement changed nothing.
// The event is read only to pick the error; the decision was already
// made by the store.
func (s *ReservationService) refusalReason(ctx context.Context, eventID string) error {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if event.Status != model.EventPublished {
		return model.ErrEventNotPublished
	}
	return model.ErrCapacityExhausted
}

// Transition moves a reservation to next on behalf of actor.
//
// Requesting the status a reservation already has is a no-op that
// succeeds, so a retried request never releases a place twice.
func (s *ReservationService) Transition(ctx context.Context, actor model.Principal, id string, next model.ReservationStatus) (*model.Reservation, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrInvalidInput, next)
	}
	if next == model.StatusPending {
		return nil, model.ErrInvalidTransition
	}
	if !validID(id) {
		return nil, model.ErrReservationNotFound
	}

	var (
		reservation *model.Reservation
		event       *model.Event
		previous    model.ReservationStatus
		changed     bool
	)
	now := s.clock.Now()

	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		r, err := s.reservations.GetReservationForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		e, err := s.events.GetEvent(txCtx, r.EventID)
		if err != nil {
			return err
		}
		if !canTransition(actor, r, e, next) {
			return model.ErrForbidden
		}

		reservation, event, previous = r, e, r.Status
		if r.Status == next {
			return nil
		}
		if !r.Status.CanTransitionTo(next) {
			return model.ErrInvalidTransition
		}

		ok, err := s.reservations.UpdateReservationStatus(txCtx, id, r.Status, next, now)
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrInvalidTransition
		}
		if previous.HoldsCapacity() && next.Released() {
			if err := s.capacity.ReleasePlace(txCtx, r.EventID); err != nil {
				return err
			}
		}

		r.Status = next
		r.UpdatedAt = now
		changed = true
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("transition reservation: %w", err)
	}

	if !changed {
		s.logger.Debug("reservation transition already applied", "reservation_id", id, "status", next)
		return reservation, nil
	}

	s.logger.Info("reservation status changed",
		"reservation_id", id,
		"event_id", reservation.EventID,
		"from", previous,
		"to", next,
		"actor_id", actor.UserID,
		"released", previous.HoldsCapacity() && next.Released(),
	)
	if next == model.StatusConfirmed {
		s.notifier.ReservationConfirmed(*reservation, *event)
	}
	return reservation, nil
}

// Cancel is Transition to CANCELED restricted to the reservation's owner.
func (s *ReservationService) Cancel(ctx context.Context, actor model.Principal, id string) (*model.Reservation, error) {
	r, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != actor.UserID {
		return nil, model.ErrForbidden
	}
	return s.Transition(ctx, actor, id, model.StatusCanceled)
}

// Get returns a reservation visible to actor: its owner, the event's
// organizer, or an admin.
func (s *ReservationService) Get(ctx context.Context, actor model.Principal, id string) (*model.Reservation, error) {
	r, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID == actor.UserID || actor.IsAdmin() {
		return r, nil
	}
	event, err := s.events.GetEvent(ctx, r.EventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OrganizerID != actor.UserID {
		return nil, model.ErrForbidden
	}
	return r, nil
}

// ListByEvent returns an event's reservations to its organizer or an admin.
func (s *ReservationService) ListByEvent(ctx context.Context, actor model.Principal, eventID string) ([]model.Reservation, error) {
	if !validID(eventID) {
		return nil, model.ErrEventNotFound
	}
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, model.ErrEventNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OrganizerID != actor.UserID && !actor.IsAdmin() {
		return nil, model.ErrForbidden
	}
	return s.reservations.ListReservationsByEvent(ctx, eventID)
}

func (s *ReservationService) lookup(ctx context.Context, id string) (*model.Reservation, error) {
	if !validID(id) {
		return nil, model.ErrReservationNotFound
	}
	r, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrReservationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

// canTransition applies the actor rules: the event's organizer (or an
// admin) confirms and refuses; the owner, the organizer or an admin
// cancels.
func canTransition(actor model.Principal, r *model.Reservation, e *model.Event, next model.ReservationStatus) bool {
	if actor.IsAdmin() {
		return true
	}
	organizer := e.OrganizerID == actor.UserID
	switch next {
	case model.StatusConfirmed, model.StatusRefused:
		return organizer
	case model.StatusCanceled:
		return organizer || r.UserID == actor.UserID
	}
	return false
}

var domainErrors = []error{
	model.ErrEventNotFound,
	model.ErrEventNotPublished,
	model.ErrReservationNotFound,
	model.ErrAlreadyReserved,
	model.ErrCapacityExhausted,
	model.ErrInvalidTransition,
	model.ErrForbidden,
}

// isDomainError reports whether err should reach the caller unwrapped so
// handlers can map it to a stable code.
func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// validID reports whether id is a well-formed identifier. Malformed ids
// are reported as not found before they reach the store.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}
