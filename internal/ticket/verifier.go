package ticket

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/event-reservations/internal/model"
)

// Verifier checks tickets presented at the venue.
type Verifier struct {
	reservations ReservationStore
	events       EventStore
	profiles     ProfileStore
	objects      ObjectStore
	signer       *Signer
}

// NewVerifier returns a Verifier.
func NewVerifier(reservations ReservationStore, events EventStore, profiles ProfileStore, objects ObjectStore, signer *Signer) *Verifier {
	return &Verifier{
		reservations: reservations,
		events:       events,
		profiles:     profiles,
		objects:      objects,
		signer:       signer,
	}
}

// Verify checks sig against reservationID and reports whether the
// reservation is currently CONFIRMED. The signature is checked before any
// lookup, so a wrong signature never reveals whether a reservation exists.
func (v *Verifier) Verify(ctx context.Context, reservationID, sig string) (*model.VerificationResult, error) {
	if err := v.signer.Verify(reservationID, sig); err != nil {
		return nil, err
	}

	r, err := v.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, model.ErrReservationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}

	summary := model.TicketSummary{
		ID:      r.ID,
		Status:  r.Status,
		BadgeID: model.BadgeID(r.ID),
	}

	event, err := v.events.GetEvent(ctx, r.EventID)
	if err != nil && !errors.Is(err, model.ErrEventNotFound) {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event != nil {
		summary.Event = model.EventSummary{
			ID:       event.ID,
			Title:    event.Title,
			DateTime: event.StartsAt,
			Location: event.Location,
		}
	}

	profile, err := v.profiles.GetProfile(ctx, r.UserID)
	if err != nil && !errors.Is(err, model.ErrProfileNotFound) {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile != nil {
		summary.Participant = model.ParticipantSummary{
			FirstName: profile.FirstName,
			LastName:  profile.LastName,
			AvatarURL: v.objects.URL(profile.AvatarKey),
		}
	}

	return &model.VerificationResult{
		Valid:       r.Status == model.StatusConfirmed,
		Reservation: summary,
	}, nil
}
