package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-reservations/internal/model"
)

const reservationColumns = `id, user_id, event_id, status, ticket_key, ticket_issued, created_at, updated_at`

// ReservationRepository is the reservation ledger.
type ReservationRepository struct {
	base
}

// NewReservationRepository constructs a ReservationRepository.
func NewReservationRepository(db *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{base{db: db}}
}

// FindActiveReservation returns the user's capacity-holding reservation on
// the event, or nil when there is none.
func (r *ReservationRepository) FindActiveReservation(ctx context.Context, userID, eventID string) (*model.Reservation, error) {
	var res model.Reservation
	err := scanReservation(r.queryRow(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations
		 WHERE user_id = $1 AND event_id = $2 AND status IN ('PENDING', 'CONFIRMED')`,
		userID, eventID,
	), &res)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active reservation: %w", err)
	}
	return &res, nil
}

// InsertReservation records a new reservation. A concurrent insert for the
// same user and event trips the partial unique index and is reported as
// model.ErrAlreadyReserved.
func (r *ReservationRepository) InsertReservation(ctx context.Context, res *model.Reservation) error {
	_, err := r.exec(ctx,
		`INSERT INTO reservations (`+reservationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		res.ID, res.UserID, res.EventID, res.Status, res.TicketKey, res.TicketIssued, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrAlreadyReserved
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// GetReservation returns a reservation or model.ErrReservationNotFound.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
}

// GetReservationForUpdate locks the reservation row until the surrounding
// transaction ends, so transitions on one reservation are serialised.
func (r *ReservationRepository) GetReservationForUpdate(ctx context.Context, id string) (*model.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id)
}

func (r *ReservationRepository) get(ctx context.Context, sql, id string) (*model.Reservation, error) {
	var res model.Reservation
	if err := scanReservation(r.queryRow(ctx, sql, id), &res); err != nil {
		if isNoRows(err) {
			return nil, model.ErrReservationNotFound
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return &res, nil
}

// UpdateReservationStatus sets the status only if it is still `from`.
func (r *ReservationRepository) UpdateReservationStatus(ctx context.Context, id string, from, to model.ReservationStatus, at time.Time) (bool, error) {
	tag, err := r.exec(ctx,
		`UPDATE reservations SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, from, to, at,
	)
	if err != nil {
		return false, fmt.Errorf("update reservation status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListReservationsByEvent returns all reservations for an event.
func (r *ReservationRepository) ListReservationsByEvent(ctx context.Context, eventID string) ([]model.Reservation, error) {
	rows, err := r.query(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations
		 WHERE event_id = $1
		 ORDER BY created_at ASC`,
		eventID,
	)
	if err != nil {
		if isInvalidText(err) {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		var res model.Reservation
		if err := scanReservation(rows, &res); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// MarkTicketIssued stores the artifact key and raises the issued flag.
func (r *ReservationRepository) MarkTicketIssued(ctx context.Context, id, key string) error {
	tag, err := r.exec(ctx,
		`UPDATE reservations SET ticket_key = $2, ticket_issued = TRUE WHERE id = $1`,
		id, key,
	)
	if err != nil {
		return fmt.Errorf("mark ticket issued: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrReservationNotFound
	}
	return nil
}

func scanReservation(row rowScanner, res *model.Reservation) error {
	return row.Scan(&res.ID, &res.UserID, &res.EventID, &res.Status, &res.TicketKey, &res.TicketIssued,
		&res.CreatedAt, &res.UpdatedAt)
}
