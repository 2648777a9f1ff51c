// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the storage layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-reservations/internal/clock"
	"github.com/Shivanand-hulikatti/event-reservations/internal/model"
)

// maxCapacity bounds the size of a single event.
const maxCapacity = 100_000

// EventService orchestrates event metadata operations.
type EventService struct {
	events EventStore
	clock  clock.Clock
	logger *slog.Logger
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, clk clock.Clock, logger *slog.Logger) *EventService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{events: events, clock: clk, logger: logger}
}

// CreateEvent validates the request and stores a DRAFT event owned by actor.
func (s *EventService) CreateEvent(ctx context.Context, actor model.Principal, req model.CreateEventRequest) (*model.Event, error) {
	if actor.Role != model.RoleOrganizer && !actor.IsAdmin() {
		return nil, model.ErrForbidden
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, fmt.Errorf("%w: event title is required", model.ErrInvalidInput)
	}
	if req.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be a positive integer", model.ErrInvalidInput)
	}
	if req.Capacity > maxCapacity {
		return nil, fmt.Errorf("%w: capacity cannot exceed 100,000", model.ErrInvalidInput)
	}
	if req.StartsAt.IsZero() {
		return nil, fmt.Errorf("%w: starts_at is required", model.ErrInvalidInput)
	}

	event := &model.Event{
		ID:              uuid.NewString(),
		OrganizerID:     actor.UserID,
		Title:           req.Title,
		Description:     strings.TrimSpace(req.Description),
		Location:        strings.TrimSpace(req.Location),
		StartsAt:        req.StartsAt.UTC(),
		MaxCapacity:     req.Capacity,
		RemainingPlaces: req.Capacity,
		Status:          model.EventDraft,
		CreatedAt:       s.clock.Now(),
	}
	if err := s.events.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.logger.Info("event created", "event_id", event.ID, "organizer_id", actor.UserID, "capacity", event.MaxCapacity)
	return event, nil
}

// PublishEvent opens a DRAFT event for reservations.
func (s *EventService) PublishEvent(ctx context.Context, actor model.Principal, id string) (*model.Event, error) {
	return s.setStatus(ctx, actor, id, []model.EventStatus{model.EventDraft}, model.EventPublished)
}

// CancelEvent closes an event to future reservations. Existing
// reservations are left to their own transitions.
func (s *EventService) CancelEvent(ctx context.Context, actor model.Principal, id string) (*model.Event, error) {
	return s.setStatus(ctx, actor, id, []model.EventStatus{model.EventDraft, model.EventPublished}, model.EventCanceled)
}

func (s *EventService) setStatus(ctx context.Context, actor model.Principal, id string, from []model.EventStatus, to model.EventStatus) (*model.Event, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != actor.UserID && !actor.IsAdmin() {
		return nil, model.ErrForbidden
	}
	if event.Status == to {
		return event, nil
	}

	ok, err := s.events.SetEventStatus(ctx, id, from, to)
	if err != nil {
		return nil, fmt.Errorf("set event status: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: event is %s", model.ErrInvalidTransition, event.Status)
	}
	event.Status = to
	s.logger.Info("event status changed", "event_id", id, "status", to, "actor_id", actor.UserID)
	return event, nil
}

// ListEvents returns all events.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.events.ListEvents(ctx)
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if !validID(id) {
		return nil, model.ErrEventNotFound
	}
	event, err := s.events.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrEventNotFound) {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}
