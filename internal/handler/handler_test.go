package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-reservations/internal/auth"
	"github.com/Shivanand-hulikatti/event-reservations/internal/memstore"
	"github.com/Shivanand-hulikatti/event-reservations/internal/model"
	"github.com/Shivanand-hulikatti/event-reservations/internal/service"
	"github.com/Shivanand-hulikatti/event-reservations/internal/storage"
	"github.com/Shivanand-hulikatti/event-reservations/internal/ticket"
)

type nopNotifier struct{}

func (nopNotifier) ReservationCreated(model.Reservation, model.Event)   {}
func (nopNotifier) ReservationConfirmed(model.Reservation, model.Event) {}

type fakeRenderer struct{}

func (fakeRenderer) Render(d ticket.Data) ([]byte, error) {
	return []byte("%PDF-fake " + d.ReservationID), nil
}

type testServer struct {
	t      *testing.T
	srv    *httptest.Server
	authn  *auth.Authenticator
	tokens map[string]string
	ids    map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()
	disk, err := storage.NewDisk(filepath.Join(t.TempDir(), "files"), "http://files.test")
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	signer := ticket.NewSigner([]byte("ticket-secret-for-tests"))
	authn := auth.NewAuthenticator([]byte("jwt-secret-for-tests-only"), logger)

	router := NewRouter(Deps{
		Events:       service.NewEventService(store, nil, logger),
		Reservations: service.NewReservationService(store, store, store, store, nopNotifier{}, service.WithLogger(logger)),
		Issuer:       ticket.NewIssuer(store, store, store, disk, signer, fakeRenderer{}, "http://api.test", logger),
		Verifier:     ticket.NewVerifier(store, store, store, disk, signer),
		Profiles:     service.NewProfileService(store, store, disk, nil, logger),
		Authenticate: authn.Middleware,
		FilesDir:     disk.Root(),
		Logger:       logger,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	ts := &testServer{t: t, srv: srv, authn: authn, tokens: map[string]string{}, ids: map[string]string{}}
	ts.user("organizer", model.RoleOrganizer)
	ts.user("alice", model.RoleParticipant)
	ts.user("bob", model.RoleParticipant)
	return ts
}

func (ts *testServer) user(name string, role model.Role) {
	id := uuid.NewString()
	tok, err := ts.authn.IssueToken(id, role, time.Hour)
	if err != nil {
		ts.t.Fatalf("IssueToken: %v", err)
	}
	ts.ids[name], ts.tokens[name] = id, tok
}

func (ts *testServer) do(as, method, path string, body any) (int, map[string]any) {
	ts.t.Helper()

	var rdr io.Reader
	contentType := "application/json"
	switch b := body.(type) {
	case nil:
	case []byte:
		rdr, contentType = bytes.NewReader(b), "image/png"
	default:
		data, _ := json.Marshal(b)
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, rdr)
	if err != nil {
		ts.t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+ts.tokens[as])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ts.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			ts.t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

// fetch performs a GET and returns the raw response.
func (ts *testServer) fetch(as, path string) (int, []byte, http.Header) {
	ts.t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+path, nil)
	if err != nil {
		ts.t.Fatalf("NewRequest: %v", err)
	}
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+ts.tokens[as])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ts.t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body, resp.Header
}

func (ts *testServer) expect(as, method, path string, body any, wantStatus int, wantCode string) map[string]any {
	ts.t.Helper()
	status, out := ts.do(as, method, path, body)
	if status != wantStatus {
		ts.t.Fatalf("%s %s as %s: expected %d, got %d %v", method, path, as, wantStatus, status, out)
	}
	if wantCode != "" && out["code"] != wantCode {
		ts.t.Fatalf("%s %s as %s: expected code %q, got %v", method, path, as, wantCode, out)
	}
	return out
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestAPI_LastPlaceScenario(t *testing.T) {
	ts := newTestServer(t)

	event := ts.expect("organizer", http.MethodPost, "/events", map[string]any{
		"title": "Go Meetup", "location": "Paris", "starts_at": "2026-12-01T18:00:00Z", "capacity": 1,
	}, http.StatusCreated, "")
	eventID := event["id"].(string)

	ts.expect("alice", http.MethodPost, "/events/"+eventID+"/reservations", nil, http.StatusConflict, "event_not_published")
	ts.expect("alice", http.MethodPost, "/events/"+eventID+"/publish", nil, http.StatusForbidden, "forbidden")
	ts.expect("organizer", http.MethodPost, "/events/"+eventID+"/publish", nil, http.StatusOK, "")

	res := ts.expect("alice", http.MethodPost, "/events/"+eventID+"/reservations", nil, http.StatusCreated, "")
	resID := res["id"].(string)
	if res["status"] != string(model.StatusPending) {
		t.Fatalf("expected PENDING, got %v", res["status"])
	}
	ts.expect("alice", http.MethodPost, "/events/"+eventID+"/reservations", nil, http.StatusConflict, "already_reserved")
	ts.expect("bob", http.MethodPost, "/events/"+eventID+"/reservations", nil, http.StatusConflict, "capacity_exhausted")

	ts.expect("bob", http.MethodGet, "/reservations/"+resID, nil, http.StatusForbidden, "forbidden")
	ts.expect("alice", http.MethodPatch, "/reservations/"+resID, map[string]string{"status": "CONFIRMED"}, http.StatusForbidden, "forbidden")
	ts.expect("organizer", http.MethodPatch, "/reservations/"+resID, map[string]string{"status": "PENDING"}, http.StatusConflict, "invalid_transition")
	ts.expect("organizer", http.MethodPatch, "/reservations/"+resID, map[string]string{"status": "FOO"}, http.StatusBadRequest, "invalid_request")
	ts.expect("organizer", http.MethodPatch, "/reservations/"+resID, map[string]string{"status": "CONFIRMED"}, http.StatusOK, "")

	ev := ts.expect("", http.MethodGet, "/events/"+eventID, nil, http.StatusOK, "")
	if ev["remaining_places"].(float64) != 0 {
		t.Fatalf("expected no remaining places after confirm, got %v", ev["remaining_places"])
	}

	// Ticket requires a profile photo.
	ts.expect("alice", http.MethodGet, "/reservations/"+resID+"/ticket", nil, http.StatusUnprocessableEntity, "missing_prerequisite")
	ts.expect("alice", http.MethodPut, "/me/profile", map[string]string{"first_name": "Alice", "last_name": "Martin", "email": "alice@example.com"}, http.StatusOK, "")
	ts.expect("alice", http.MethodPut, "/me/avatar", []byte("not a png at all"), http.StatusBadRequest, "invalid_request")
	ts.expect("alice", http.MethodGet, "/reservations/"+resID+"/ticket", nil, http.StatusUnprocessableEntity, "missing_prerequisite")
	ts.expect("alice", http.MethodPut, "/me/avatar", pngBytes(t), http.StatusOK, "")

	ref := ts.expect("alice", http.MethodGet, "/reservations/"+resID+"/ticket", nil, http.StatusOK, "")
	sig := ref["signature"].(string)
	if ref["ticket_key"] != "tickets/"+resID+".pdf" || len(sig) != 64 {
		t.Fatalf("unexpected ticket ref %v", ref)
	}
	if ref["url"] != "http://api.test/reservations/"+resID+"/ticket.pdf" {
		t.Fatalf("unexpected ticket url %v", ref["url"])
	}

	// The PDF carries a working signature: only its owner or an admin gets it.
	ts.expect("", http.MethodGet, "/reservations/"+resID+"/ticket.pdf", nil, http.StatusUnauthorized, "unauthorized")
	ts.expect("bob", http.MethodGet, "/reservations/"+resID+"/ticket.pdf", nil, http.StatusForbidden, "forbidden")
	status, body, header := ts.fetch("alice", "/reservations/"+resID+"/ticket.pdf")
	if status != http.StatusOK || header.Get("Content-Type") != "application/pdf" || string(body) != "%PDF-fake "+resID {
		t.Fatalf("expected owner to download the pdf, got %d %q %q", status, header.Get("Content-Type"), body)
	}
	for _, path := range []string{
		"/files/tickets/" + resID + ".pdf",
		"/files/avatars/../tickets/" + resID + ".pdf",
	} {
		if status, _, _ := ts.fetch("", path); status == http.StatusOK {
			t.Fatalf("expected %s not to be served anonymously", path)
		}
	}
	if status, _, _ := ts.fetch("", "/files/avatars/"+ts.ids["alice"]+".png"); status != http.StatusOK {
		t.Fatalf("expected profile photo to stay public, got %d", status)
	}

	verified := ts.expect("", http.MethodGet, "/tickets/verify/"+resID+"?sig="+sig, nil, http.StatusOK, "")
	if verified["valid"] != true {
		t.Fatalf("expected valid ticket, got %v", verified)
	}
	summary := verified["reservation"].(map[string]any)
	if summary["badgeId"] != model.BadgeID(resID) || summary["participant"].(map[string]any)["firstName"] != "Alice" {
		t.Fatalf("unexpected summary %v", summary)
	}
	ts.expect("", http.MethodGet, "/tickets/verify/"+resID, nil, http.StatusBadRequest, "malformed_signature")
	ts.expect("", http.MethodGet, "/tickets/verify/"+resID+"?sig=xyz", nil, http.StatusBadRequest, "malformed_signature")
	ts.expect("", http.MethodGet, "/tickets/verify/"+resID+"?sig="+strings.Repeat("0", 64), nil, http.StatusForbidden, "invalid_signature")

	// Organizer cancels: the place comes back and the ticket stops being valid.
	ts.expect("organizer", http.MethodPatch, "/reservations/"+resID, map[string]string{"status": "CANCELED"}, http.StatusOK, "")
	ts.expect("organizer", http.MethodPatch, "/reservations/"+resID, map[string]string{"status": "CANCELED"}, http.StatusOK, "")
	ev = ts.expect("", http.MethodGet, "/events/"+eventID, nil, http.StatusOK, "")
	if ev["remaining_places"].(float64) != 1 {
		t.Fatalf("expected one remaining place after cancel, got %v", ev["remaining_places"])
	}
	verified = ts.expect("", http.MethodGet, "/tickets/verify/"+resID+"?sig="+sig, nil, http.StatusOK, "")
	if verified["valid"] != false {
		t.Fatalf("expected canceled ticket to be invalid, got %v", verified)
	}
	ts.expect("alice", http.MethodGet, "/reservations/"+resID+"/ticket", nil, http.StatusConflict, "reservation_not_confirmed")

	ts.expect("bob", http.MethodPost, "/events/"+eventID+"/reservations", nil, http.StatusCreated, "")

	ts.expect("organizer", http.MethodGet, "/events/"+eventID+"/reservations", nil, http.StatusOK, "")
}

func TestAPI_RequiresAuthentication(t *testing.T) {
	ts := newTestServer(t)

	ts.expect("", http.MethodPost, "/events", map[string]any{"title": "x"}, http.StatusUnauthorized, "unauthorized")
	ts.expect("", http.MethodGet, "/me/notifications", nil, http.StatusUnauthorized, "unauthorized")
	ts.expect("", http.MethodGet, "/health", nil, http.StatusOK, "")
	ts.expect("", http.MethodGet, "/events/not-a-uuid", nil, http.StatusNotFound, "event_not_found")
	ts.expect("alice", http.MethodGet, "/reservations/"+uuid.NewString(), nil, http.StatusNotFound, "reservation_not_found")
}

func TestAPI_ValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	ts.expect("organizer", http.MethodPost, "/events", map[string]any{"title": "x", "capacity": 0, "starts_at": "2026-12-01T18:00:00Z"}, http.StatusBadRequest, "invalid_request")
	ts.expect("organizer", http.MethodPost, "/events", map[string]any{"unknown": true}, http.StatusBadRequest, "invalid_request")
	ts.expect("alice", http.MethodPost, "/events", map[string]any{"title": "x", "capacity": 5, "starts_at": "2026-12-01T18:00:00Z"}, http.StatusForbidden, "forbidden")
	ts.expect("alice", http.MethodPut, "/me/profile", map[string]string{"first_name": "A", "last_name": "B", "email": "nope"}, http.StatusBadRequest, "invalid_request")

	list := ts.expect("alice", http.MethodGet, "/me/notifications", nil, http.StatusOK, "")
	if len(list) != 0 {
		t.Fatalf("expected empty inbox, got %v", list)
	}
}

func TestWriteServiceError_UnknownErrorIsInternal(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	writeServiceError(rec, req, slog.New(slog.NewTextHandler(io.Discard, nil)), errors.New("connection reset"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body model.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "internal_error" || strings.Contains(body.Error, "connection") {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestWriteServiceError_WrappedDomainError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	writeServiceError(rec, req, slog.Default(), context.Canceled)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for context errors, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	writeServiceError(rec, req, slog.Default(), errors.Join(errors.New("tx"), model.ErrCapacityExhausted))
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "capacity_exhausted") {
		t.Fatalf("expected 409 capacity_exhausted, got %d %s", rec.Code, rec.Body.String())
	}
}
