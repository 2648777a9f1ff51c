package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	t.Parallel()

	subject, body, err := Render(Message{
		To:       "ada@example.com",
		Template: TemplateReservationConfirmed,
		Data: map[string]string{
			"ParticipantName": "Ada <script>",
			"EventTitle":      "GopherCon",
			"EventDate":       "2026-11-02 18:00 UTC",
		},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if subject != "Your reservation for GopherCon is confirmed" {
		t.Fatalf("unexpected subject %q", subject)
	}
	if strings.Contains(body, "<script>") {
		t.Fatalf("expected participant name escaped, got %q", body)
	}

	if _, _, err := Render(Message{Template: "nope"}); err == nil {
		t.Fatalf("expected unknown template error")
	}
}

func TestResendSender_Send(t *testing.T) {
	t.Parallel()

	var got resendEmail
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"em_1"}`))
	}))
	defer srv.Close()

	sender := NewResendSender("key-123", "Events <noreply@example.com>", srv.URL, srv.Client(), nil)
	err := sender.Send(context.Background(), Message{
		To:       "org@example.com",
		Template: TemplateReservationCreated,
		Data:     map[string]string{"EventTitle": "Meetup", "ParticipantName": "Ada", "ReservationID": "r1"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if auth != "Bearer key-123" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if len(got.To) != 1 || got.To[0] != "org@example.com" || got.Subject != "New reservation for Meetup" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestResendSender_SendReportsAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	sender := NewResendSender("key", "from@example.com", srv.URL, srv.Client(), nil)
	err := sender.Send(context.Background(), Message{To: "x@example.com", Template: TemplateReservationCreated})
	if err == nil || !strings.Contains(err.Error(), "422") {
		t.Fatalf("expected 422 error, got %v", err)
	}
}

func TestNewSender_FallsBackToLog(t *testing.T) {
	t.Parallel()

	if _, ok := NewSender("", "from", "http://unused", nil).(*LogSender); !ok {
		t.Fatalf("expected LogSender without api key")
	}
	if _, ok := NewSender("k", "from", "http://unused", nil).(*ResendSender); !ok {
		t.Fatalf("expected ResendSender with api key")
	}
}
