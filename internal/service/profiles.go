package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/Shivanand-hulikatti/event-reservations/internal/clock"
	"github.com/Shivanand-hulikatti/event-reservations/internal/model"
)

const (
	maxAvatarBytes    = 2 << 20
	notificationLimit = 50
)

// avatarFormats maps accepted upload types to the decoder name
// image.DecodeConfig reports and the stored key's extension.
var avatarFormats = map[string]struct{ format, ext string }{
	"image/png":  {"png", ".png"},
	"image/jpeg": {"jpeg", ".jpg"},
}

// ProfileService manages the participant data a ticket depends on and the
// caller's in-app inbox.
type ProfileService struct {
	profiles ProfileStore
	inbox    InboxStore
	objects  ObjectWriter
	clock    clock.Clock
	logger   *slog.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(profiles ProfileStore, inbox InboxStore, objects ObjectWriter, clk clock.Clock, logger *slog.Logger) *ProfileService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{profiles: profiles, inbox: inbox, objects: objects, clock: clk, logger: logger}
}

// UpdateProfile stores the caller's name and email, keeping any avatar.
func (s *ProfileService) UpdateProfile(ctx context.Context, actor model.Principal, req model.ProfileRequest) (*model.Profile, error) {
	p := &model.Profile{
		UserID:    actor.UserID,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(strings.ToLower(req.Email)),
		UpdatedAt: s.clock.Now(),
	}
	if p.FirstName == "" || p.LastName == "" {
		return nil, fmt.Errorf("%w: first_name and last_name are required", model.ErrInvalidInput)
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			return nil, fmt.Errorf("%w: email is not a valid address", model.ErrInvalidInput)
		}
	}
	if err := s.profiles.UpsertProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return s.profiles.GetProfile(ctx, actor.UserID)
}

// SetAvatar stores the caller's profile photo and records its key.
func (s *ProfileService) SetAvatar(ctx context.Context, actor model.Principal, contentType string, data []byte) (*model.Profile, error) {
	want, ok := avatarFormats[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: avatar must be image/png or image/jpeg", model.ErrInvalidInput)
	}
	if len(data) == 0 || len(data) > maxAvatarBytes {
		return nil, fmt.Errorf("%w: avatar must be between 1 byte and 2 MiB", model.ErrInvalidInput)
	}
	// The photo is printed on every ticket; bytes that do not decode would
	// make each later issue fail.
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || format != want.format {
		return nil, fmt.Errorf("%w: avatar is not a valid %s image", model.ErrInvalidInput, contentType)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("%w: avatar has no pixels", model.ErrInvalidInput)
	}

	key := "avatars/" + actor.UserID + want.ext
	if err := s.objects.Put(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("store avatar: %w", err)
	}
	if err := s.profiles.SetAvatarKey(ctx, actor.UserID, key, s.clock.Now()); err != nil {
		return nil, fmt.Errorf("record avatar: %w", err)
	}
	s.logger.Info("avatar updated", "user_id", actor.UserID, "key", key)
	return s.profiles.GetProfile(ctx, actor.UserID)
}

// Notifications returns the caller's most recent in-app notices.
func (s *ProfileService) Notifications(ctx context.Context, actor model.Principal) ([]model.Notification, error) {
	return s.inbox.ListNotifications(ctx, actor.UserID, notificationLimit)
}
