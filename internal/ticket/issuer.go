package ticket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-reservations/internal/model"
	"github.com/Shivanand-hulikatti/event-reservations/internal/storage"
)

// ReservationStore is the part of the reservation ledger the issuer needs.
type ReservationStore interface {
	GetReservation(ctx context.Context, id string) (*model.Reservation, error)
	MarkTicketIssued(ctx context.Context, id, key string) error
}

// EventStore reads event metadata.
type EventStore interface {
	GetEvent(ctx context.Context, id string) (*model.Event, error)
}

// ProfileStore reads participant profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
}

// ObjectStore persists rendered tickets and serves profile photos.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	Read(ctx context.Context, key string) ([]byte, error)
	URL(key string) string
}

// Issuer produces ticket artifacts for confirmed reservations.
//
// A ticket is rendered at most once per successful issue: the reservation's
// ticket_issued flag short-circuits later calls. Two concurrent first calls
// may both render; the output depends only on immutable data, so the second
// write replaces the first with identical bytes.
type Issuer struct {
	reservations ReservationStore
	events       EventStore
	profiles     ProfileStore
	objects      ObjectStore
	signer       *Signer
	renderer     Renderer
	verifyBase   string
	downloadBase string
	logger       *slog.Logger
}

// NewIssuer returns an Issuer. publicBaseURL is the externally reachable
// address of the API and is embedded in each ticket's QR code.
func NewIssuer(
	reservations ReservationStore,
	events EventStore,
	profiles ProfileStore,
	objects ObjectStore,
	signer *Signer,
	renderer Renderer,
	publicBaseURL string,
	logger *slog.Logger,
) *Issuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Issuer{
		reservations: reservations,
		events:       events,
		profiles:     profiles,
		objects:      objects,
		signer:       signer,
		renderer:     renderer,
		verifyBase:   strings.TrimRight(publicBaseURL, "/") + "/tickets/verify/",
		downloadBase: strings.TrimRight(publicBaseURL, "/") + "/reservations/",
		logger:       logger,
	}
}

// Key returns the storage key of a reservation's ticket.
func Key(reservationID string) string {
	return "tickets/" + reservationID + ".pdf"
}

// DownloadURL returns the authenticated address serving a ticket's PDF.
// Stored tickets carry a valid signature, so they are never served from
// the public file route.
func (i *Issuer) DownloadURL(reservationID string) string {
	return i.downloadBase + reservationID + "/ticket.pdf"
}

// VerifyURL returns the address a scanner opens for a ticket.
func (i *Issuer) VerifyURL(reservationID, sig string) string {
	return i.verifyBase + reservationID + "?sig=" + sig
}

// Issue returns the ticket of reservationID for actor, rendering and
// storing it on first use. Only the reservation's owner or an admin may
// fetch it.
func (i *Issuer) Issue(ctx context.Context, actor model.Principal, reservationID string) (*model.TicketRef, error) {
	if _, err := uuid.Parse(reservationID); err != nil || len(reservationID) != 36 {
		return nil, model.ErrReservationNotFound
	}
	r, err := i.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, model.ErrReservationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if r.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, model.ErrForbidden
	}
	if r.Status != model.StatusConfirmed {
		return nil, model.ErrNotConfirmed
	}

	sig := i.signer.Sign(r.ID)
	if r.TicketIssued && r.TicketKey != "" {
		ok, err := i.objects.Exists(ctx, r.TicketKey)
		if err != nil {
			return nil, i.unavailable(r.ID, "stat ticket", err)
		}
		if ok {
			return i.ref(r.ID, r.TicketKey, sig), nil
		}
		i.logger.Warn("issued ticket missing from storage, rendering again", "reservation_id", r.ID, "key", r.TicketKey)
	}

	profile, err := i.profiles.GetProfile(ctx, r.UserID)
	if errors.Is(err, model.ErrProfileNotFound) || (err == nil && profile.AvatarKey == "") {
		return nil, model.ErrMissingPrerequisite
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	photo, err := i.objects.Read(ctx, profile.AvatarKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, model.ErrMissingPrerequisite
	}
	if err != nil {
		return nil, i.unavailable(r.ID, "read photo", err)
	}
	imgType, ok := photoType(photo)
	if !ok {
		i.logger.Warn("profile photo cannot be decoded", "reservation_id", r.ID, "key", profile.AvatarKey)
		return nil, model.ErrMissingPrerequisite
	}

	event, err := i.events.GetEvent(ctx, r.EventID)
	if err != nil {
		return nil, i.unavailable(r.ID, "get event", err)
	}

	doc, err := i.renderer.Render(Data{
		ReservationID: r.ID,
		BadgeID:       model.BadgeID(r.ID),
		Signature:     sig,
		VerifyURL:     i.VerifyURL(r.ID, sig),
		EventTitle:    event.Title,
		EventStartsAt: event.StartsAt,
		EventLocation: event.Location,
		FirstName:     profile.FirstName,
		LastName:      profile.LastName,
		Photo:         photo,
		PhotoType:     imgType,
		IssuedAt:      r.CreatedAt,
	})
	if err != nil {
		return nil, i.unavailable(r.ID, "render", err)
	}

	key := Key(r.ID)
	if err := i.objects.Put(ctx, key, doc, "application/pdf"); err != nil {
		return nil, i.unavailable(r.ID, "store", err)
	}
	// The flag is set last: a failure above leaves the reservation
	// unissued and the next call renders again.
	if err := i.reservations.MarkTicketIssued(ctx, r.ID, key); err != nil {
		return nil, i.unavailable(r.ID, "mark issued", err)
	}

	i.logger.Info("ticket issued", "reservation_id", r.ID, "key", key, "bytes", len(doc))
	return i.ref(r.ID, key, sig), nil
}

// Download issues the ticket if needed and returns the PDF bytes, under
// the same access rules as Issue.
func (i *Issuer) Download(ctx context.Context, actor model.Principal, reservationID string) ([]byte, error) {
	ref, err := i.Issue(ctx, actor, reservationID)
	if err != nil {
		return nil, err
	}
	doc, err := i.objects.Read(ctx, ref.Key)
	if err != nil {
		return nil, i.unavailable(reservationID, "read ticket", err)
	}
	return doc, nil
}

func (i *Issuer) ref(reservationID, key, sig string) *model.TicketRef {
	return &model.TicketRef{Key: key, URL: i.DownloadURL(reservationID), Signature: sig}
}

func (i *Issuer) unavailable(reservationID, step string, err error) error {
	i.logger.Error("ticket issue failed", "reservation_id", reservationID, "step", step, "error", err)
	return model.ErrTicketUnavailable
}

// photoType reports the gofpdf image type of a stored photo, or false
// when the bytes are not a PNG or JPEG.
func photoType(photo []byte) (string, bool) {
	_, format, err := image.DecodeConfig(bytes.NewReader(photo))
	if err != nil {
		return "", false
	}
	switch format {
	case "png":
		return "png", true
	case "jpeg":
		return "jpg", true
	}
	return "", false
}
