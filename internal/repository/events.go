package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-reservations/internal/model"
)

const eventColumns = `id, organizer_id, title, description, location, starts_at,
	max_capacity, remaining_places, status, created_at`

// EventRepository handles persistence for events and their capacity.
type EventRepository struct {
	base
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{base{db: db}}
}

// CreateEvent inserts a new event.
func (r *EventRepository) CreateEvent(ctx context.Context, e *model.Event) error {
	_, err := r.exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.OrganizerID, e.Title, e.Description, e.Location, e.StartsAt,
		e.MaxCapacity, e.RemainingPlaces, e.Status, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListEvents returns all events ordered by start time.
func (r *EventRepository) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := r.query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY starts_at ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetEvent returns a single event or model.ErrEventNotFound.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := scanEvent(r.queryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id), &e)
	if err != nil {
		if isNoRows(err) {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// SetEventStatus moves an event to `to` if its current status is one of `from`.
func (r *EventRepository) SetEventStatus(ctx context.Context, id string, from []model.EventStatus, to model.EventStatus) (bool, error) {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	tag, err := r.exec(ctx,
		`UPDATE events SET status = $2 WHERE id = $1 AND status = ANY($3)`,
		id, to, allowed,
	)
	if err != nil {
		if isInvalidText(err) {
			return false, model.ErrEventNotFound
		}
		return false, fmt.Errorf("update event status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// TakePlace claims one place on a published event.
//
// ─────────────────────────────────────────────────────────────────────────────
// WHY A CONDITIONAL UPDATE
// ─────────────────────────────────────────────────────────────────────────────
//
// Reading remaining_places and then writing it back lets two transactions
// both see "1 left" and both book. Here the guard lives in the WHERE clause:
// PostgreSQL takes the row lock, re-evaluates remaining_places > 0 against
// the latest committed version, and either decrements or matches nothing.
// Concurrent callers queue on the row lock only for the duration of this
// statement's transaction, and the CHECK constraint on the table is a
// second line against going negative.
// ─────────────────────────────────────────────────────────────────────────────
func (r *EventRepository) TakePlace(ctx context.Context, eventID string) (bool, error) {
	tag, err := r.exec(ctx,
		`UPDATE events
		 SET remaining_places = remaining_places - 1
		 WHERE id = $1 AND status = 'PUBLISHED' AND remaining_places > 0`,
		eventID,
	)
	if err != nil {
		if isInvalidText(err) {
			return false, nil
		}
		return false, fmt.Errorf("take place: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleasePlace gives one place back to an event.
func (r *EventRepository) ReleasePlace(ctx context.Context, eventID string) error {
	tag, err := r.exec(ctx,
		`UPDATE events
		 SET remaining_places = remaining_places + 1
		 WHERE id = $1 AND remaining_places < max_capacity`,
		eventID,
	)
	if err != nil {
		return fmt.Errorf("release place: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("release place: event %s already at full capacity", eventID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner, e *model.Event) error {
	return row.Scan(&e.ID, &e.OrganizerID, &e.Title, &e.Description, &e.Location, &e.StartsAt,
		&e.MaxCapacity, &e.RemainingPlaces, &e.Status, &e.CreatedAt)
}
