package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/Shivanand-hulikatti/event-reservations/internal/model"
)

// maxAvatarUpload caps the request body of PUT /me/avatar.
const maxAvatarUpload = 2<<20 + 1

// ProfileAPI manages the caller's profile and inbox.
type ProfileAPI interface {
	UpdateProfile(ctx context.Context, actor model.Principal, req model.ProfileRequest) (*model.Profile, error)
	SetAvatar(ctx context.Context, actor model.Principal, contentType string, data []byte) (*model.Profile, error)
	Notifications(ctx context.Context, actor model.Principal) ([]model.Notification, error)
}

// ProfileHandler serves /me routes.
type ProfileHandler struct {
	svc    ProfileAPI
	logger *slog.Logger
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(svc ProfileAPI, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{svc: svc, logger: logger}
}

// UpdateProfile handles PUT /me/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req model.ProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	p, err := h.svc.UpdateProfile(r.Context(), principal(r), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// SetAvatar handles PUT /me/avatar
// The body is the raw image; Content-Type must be image/png or image/jpeg.
func (h *ProfileHandler) SetAvatar(w http.ResponseWriter, r *http.Request) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAvatarUpload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "avatar must be at most 2 MiB")
			return
		}
		badRequest(w, err)
		return
	}

	p, err := h.svc.SetAvatar(r.Context(), principal(r), contentType, data)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// Notifications handles GET /me/notifications
func (h *ProfileHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Notifications(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if list == nil {
		list = []model.Notification{}
	}

	writeJSON(w, http.StatusOK, list)
}
