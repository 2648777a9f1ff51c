// Package memstore is an in-process implementation of the reservation
// stores. A single mutex guards every unit of work, which makes each
// WithTx call serializable; writes journal an undo step so a unit that
// returns an error leaves no trace.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-reservations/internal/model"
)

type txKey struct{}

type txState struct {
	undo []func()
}

func (t *txState) onRollback(fn func()) {
	if t != nil {
		t.undo = append(t.undo, fn)
	}
}

// Store keeps events, reservations, profiles and notices in memory.
type Store struct {
	mu            sync.Mutex
	events        map[string]*model.Event
	reservations  map[string]*model.Reservation
	profiles      map[string]*model.Profile
	notifications []model.Notification
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		events:       make(map[string]*model.Event),
		reservations: make(map[string]*model.Reservation),
		profiles:     make(map[string]*model.Profile),
	}
}

// WithTx runs fn while holding the store lock. Nested calls join the
// outer unit.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txState{}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		return err
	}
	return nil
}

// atomically runs op under the store lock, joining the open unit of work
// if ctx carries one. Outside a unit, op's undo steps are discarded.
func (s *Store) atomically(ctx context.Context, op func(tx *txState) error) error {
	if tx, ok := ctx.Value(txKey{}).(*txState); ok {
		return op(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return op(nil)
}

// ─── Events and capacity ─────────────────────────────────────────────────────

// CreateEvent stores a copy of e.
func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	return s.atomically(ctx, func(tx *txState) error {
		if _, exists := s.events[e.ID]; exists {
			return fmt.Errorf("event %s already exists", e.ID)
		}
		ev := *e
		s.events[e.ID] = &ev
		tx.onRollback(func() { delete(s.events, e.ID) })
		return nil
	})
}

// GetEvent returns a copy of the event or model.ErrEventNotFound.
func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var out *model.Event
	err := s.atomically(ctx, func(*txState) error {
		e, ok := s.events[id]
		if !ok {
			return model.ErrEventNotFound
		}
		ev := *e
		out = &ev
		return nil
	})
	return out, err
}

// ListEvents returns all events ordered by start time.
func (s *Store) ListEvents(ctx context.Context) ([]model.Event, error) {
	var out []model.Event
	err := s.atomically(ctx, func(*txState) error {
		for _, e := range s.events {
			out = append(out, *e)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out, err
}

// SetEventStatus moves an event to `to` if its status is one of `from`.
func (s *Store) SetEventStatus(ctx context.Context, id string, from []model.EventStatus, to model.EventStatus) (bool, error) {
	var changed bool
	err := s.atomically(ctx, func(tx *txState) error {
		e, ok := s.events[id]
		if !ok || !slices.Contains(from, e.Status) {
			return nil
		}
		prev := e.Status
		e.Status = to
		tx.onRollback(func() { e.Status = prev })
		changed = true
		return nil
	})
	return changed, err
}

// TakePlace decrements remaining places of a published event if positive.
func (s *Store) TakePlace(ctx context.Context, eventID string) (bool, error) {
	var taken bool
	err := s.atomically(ctx, func(tx *txState) error {
		e, ok := s.events[eventID]
		if !ok || e.Status != model.EventPublished || e.IsFull() {
			return nil
		}
		e.RemainingPlaces--
		tx.onRollback(func() { e.RemainingPlaces++ })
		taken = true
		return nil
	})
	return taken, err
}

// ReleasePlace gives one place back, never exceeding max capacity.
func (s *Store) ReleasePlace(ctx context.Context, eventID string) error {
	return s.atomically(ctx, func(tx *txState) error {
		e, ok := s.events[eventID]
		if !ok {
			return model.ErrEventNotFound
		}
		if e.Held() <= 0 {
			return fmt.Errorf("release place: event %s already at full capacity", eventID)
		}
		e.RemainingPlaces++
		tx.onRollback(func() { e.RemainingPlaces-- })
		return nil
	})
}

// ─── Reservations ────────────────────────────────────────────────────────────

// FindActiveReservation returns the user's capacity-holding reservation on
// the event, or nil.
func (s *Store) FindActiveReservation(ctx context.Context, userID, eventID string) (*model.Reservation, error) {
	var out *model.Reservation
	err := s.atomically(ctx, func(*txState) error {
		if r := s.activeLocked(userID, eventID); r != nil {
			res := *r
			out = &res
		}
		return nil
	})
	return out, err
}

func (s *Store) activeLocked(userID, eventID string) *model.Reservation {
	for _, r := range s.reservations {
		if r.UserID == userID && r.EventID == eventID && r.Status.HoldsCapacity() {
			return r
		}
	}
	return nil
}

// InsertReservation records a reservation, enforcing one capacity-holding
// reservation per user and event.
func (s *Store) InsertReservation(ctx context.Context, r *model.Reservation) error {
	return s.atomically(ctx, func(tx *txState) error {
		if r.Status.HoldsCapacity() && s.activeLocked(r.UserID, r.EventID) != nil {
			return model.ErrAlreadyReserved
		}
		res := *r
		s.reservations[r.ID] = &res
		tx.onRollback(func() { delete(s.reservations, r.ID) })
		return nil
	})
}

// GetReservation returns a copy of the reservation.
func (s *Store) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	var out *model.Reservation
	err := s.atomically(ctx, func(*txState) error {
		r, ok := s.reservations[id]
		if !ok {
			return model.ErrReservationNotFound
		}
		res := *r
		out = &res
		return nil
	})
	return out, err
}

// GetReservationForUpdate is GetReservation; the store lock already
// serialises units of work.
func (s *Store) GetReservationForUpdate(ctx context.Context, id string) (*model.Reservation, error) {
	return s.GetReservation(ctx, id)
}

// UpdateReservationStatus sets the status only if it is still `from`.
func (s *Store) UpdateReservationStatus(ctx context.Context, id string, from, to model.ReservationStatus, at time.Time) (bool, error) {
	var changed bool
	err := s.atomically(ctx, func(tx *txState) error {
		r, ok := s.reservations[id]
		if !ok || r.Status != from {
			return nil
		}
		prevStatus, prevAt := r.Status, r.UpdatedAt
		r.Status, r.UpdatedAt = to, at
		tx.onRollback(func() { r.Status, r.UpdatedAt = prevStatus, prevAt })
		changed = true
		return nil
	})
	return changed, err
}

// ListReservationsByEvent returns an event's reservations oldest first.
func (s *Store) ListReservationsByEvent(ctx context.Context, eventID string) ([]model.Reservation, error) {
	var out []model.Reservation
	err := s.atomically(ctx, func(*txState) error {
		for _, r := range s.reservations {
			if r.EventID == eventID {
				out = append(out, *r)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

// MarkTicketIssued stores the artifact key and raises the issued flag.
func (s *Store) MarkTicketIssued(ctx context.Context, id, key string) error {
	return s.atomically(ctx, func(tx *txState) error {
		r, ok := s.reservations[id]
		if !ok {
			return model.ErrReservationNotFound
		}
		prevKey, prevIssued := r.TicketKey, r.TicketIssued
		r.TicketKey, r.TicketIssued = key, true
		tx.onRollback(func() { r.TicketKey, r.TicketIssued = prevKey, prevIssued })
		return nil
	})
}

// ─── Profiles and inbox ──────────────────────────────────────────────────────

// UpsertProfile writes name and email, keeping any avatar key.
func (s *Store) UpsertProfile(ctx context.Context, p *model.Profile) error {
	return s.atomically(ctx, func(*txState) error {
		cur, ok := s.profiles[p.UserID]
		if !ok {
			cur = &model.Profile{UserID: p.UserID}
			s.profiles[p.UserID] = cur
		}
		cur.FirstName, cur.LastName, cur.Email, cur.UpdatedAt = p.FirstName, p.LastName, p.Email, p.UpdatedAt
		return nil
	})
}

// GetProfile returns a copy of the profile or model.ErrProfileNotFound.
func (s *Store) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var out *model.Profile
	err := s.atomically(ctx, func(*txState) error {
		p, ok := s.profiles[userID]
		if !ok {
			return model.ErrProfileNotFound
		}
		cp := *p
		out = &cp
		return nil
	})
	return out, err
}

// SetAvatarKey records the object key of the user's photo.
func (s *Store) SetAvatarKey(ctx context.Context, userID, key string, at time.Time) error {
	return s.atomically(ctx, func(*txState) error {
		cur, ok := s.profiles[userID]
		if !ok {
			cur = &model.Profile{UserID: userID}
			s.profiles[userID] = cur
		}
		cur.AvatarKey, cur.UpdatedAt = key, at
		return nil
	})
}

// AddNotification stores a notice.
func (s *Store) AddNotification(ctx context.Context, n *model.Notification) error {
	return s.atomically(ctx, func(*txState) error {
		s.notifications = append(s.notifications, *n)
		return nil
	})
}

// ListNotifications returns a user's newest notices first.
func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	var out []model.Notification
	err := s.atomically(ctx, func(*txState) error {
		for i := len(s.notifications) - 1; i >= 0 && len(out) < limit; i-- {
			if s.notifications[i].UserID == userID {
				out = append(out, s.notifications[i])
			}
		}
		return nil
	})
	return out, err
}
