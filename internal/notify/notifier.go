package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-reservations/internal/clock"
	"github.com/Shivanand-hulikatti/event-reservations/internal/mail"
	"github.com/Shivanand-hulikatti/event-reservations/internal/model"
)

// Notification kinds stored in the inbox.
const (
	KindReservationCreated   = "reservation_created"
	KindReservationConfirmed = "reservation_confirmed"
)

// TaskDispatcher accepts tasks without blocking.
type TaskDispatcher interface {
	Dispatch(task Task)
}

// Inbox stores in-app notices.
type Inbox interface {
	AddNotification(ctx context.Context, n *model.Notification) error
}

// Directory resolves a user's profile for addressing and greetings.
type Directory interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
}

// Notifier turns reservation outcomes into email and in-app notices.
type Notifier struct {
	dispatcher TaskDispatcher
	mailer     mail.Sender
	inbox      Inbox
	directory  Directory
	clock      clock.Clock
	logger     *slog.Logger
}

// NewNotifier constructs a Notifier.
func NewNotifier(dispatcher TaskDispatcher, mailer mail.Sender, inbox Inbox, directory Directory, clk clock.Clock, logger *slog.Logger) *Notifier {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		dispatcher: dispatcher,
		mailer:     mailer,
		inbox:      inbox,
		directory:  directory,
		clock:      clk,
		logger:     logger,
	}
}

// ReservationCreated tells the event's organizer about a new booking.
func (n *Notifier) ReservationCreated(r model.Reservation, e model.Event) {
	n.dispatcher.Dispatch(Task{
		Name: KindReservationCreated + ":" + r.ID,
		Run: func(ctx context.Context) error {
			participant := displayName(n.directory.GetProfile(ctx, r.UserID))
			organizer, err := n.directory.GetProfile(ctx, e.OrganizerID)
			return n.deliver(ctx, e.OrganizerID, organizer, err, r.ID, KindReservationCreated,
				fmt.Sprintf("%s reserved a place for %s.", participant, e.Title),
				mail.TemplateReservationCreated,
				map[string]string{
					"ParticipantName": participant,
					"EventTitle":      e.Title,
					"ReservationID":   r.ID,
				})
		},
	})
}

// ReservationConfirmed tells the participant their place is confirmed.
func (n *Notifier) ReservationConfirmed(r model.Reservation, e model.Event) {
	n.dispatcher.Dispatch(Task{
		Name: KindReservationConfirmed + ":" + r.ID,
		Run: func(ctx context.Context) error {
			participant, err := n.directory.GetProfile(ctx, r.UserID)
			return n.deliver(ctx, r.UserID, participant, err, r.ID, KindReservationConfirmed,
				fmt.Sprintf("Your reservation for %s is confirmed.", e.Title),
				mail.TemplateReservationConfirmed,
				map[string]string{
					"ParticipantName": displayName(participant, err),
					"EventTitle":      e.Title,
					"EventDate":       e.StartsAt.UTC().Format("2006-01-02 15:04 MST"),
				})
		},
	})
}

// deliver writes the in-app notice for userID and mails the recipient
// profile, as already looked up by the caller. Both are attempted; their
// errors are joined.
func (n *Notifier) deliver(ctx context.Context, userID string, recipient *model.Profile, lookupErr error, reservationID, kind, message, template string, data map[string]string) error {
	var errs []error

	notice := &model.Notification{
		ID:            uuid.NewString(),
		UserID:        userID,
		ReservationID: reservationID,
		Kind:          kind,
		Message:       message,
		CreatedAt:     n.clock.Now(),
	}
	if err := n.inbox.AddNotification(ctx, notice); err != nil {
		errs = append(errs, fmt.Errorf("store notice: %w", err))
	}

	switch {
	case errors.Is(lookupErr, model.ErrProfileNotFound) || (lookupErr == nil && recipient.Email == ""):
		n.logger.Debug("no email address for notification", "user_id", userID, "kind", kind)
	case lookupErr != nil:
		errs = append(errs, fmt.Errorf("lookup recipient: %w", lookupErr))
	default:
		if err := n.mailer.Send(ctx, mail.Message{To: recipient.Email, Template: template, Data: data}); err != nil {
			errs = append(errs, fmt.Errorf("send mail: %w", err))
		}
	}
	return errors.Join(errs...)
}

func displayName(p *model.Profile, err error) string {
	if err != nil {
		return "A participant"
	}
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return "A participant"
	}
	return name
}
