// Package mail is the outbound mail gateway used by notification tasks.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	texttemplate "text/template"
)

// Template names.
const (
	TemplateReservationCreated   = "reservation_created"
	TemplateReservationConfirmed = "reservation_confirmed"
)

// Message is one email addressed to a single recipient.
type Message struct {
	To       string
	Template string
	Data     map[string]string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type mailTemplate struct {
	subject *texttemplate.Template
	body    *template.Template
}

var templates = map[string]mailTemplate{
	TemplateReservationCreated: {
		subject: texttemplate.Must(texttemplate.New("subject").Parse(`New reservation for {{.EventTitle}}`)),
		body: template.Must(template.New("body").Parse(`
<h2>New reservation</h2>
<p>{{.ParticipantName}} reserved a place for <b>{{.EventTitle}}</b>.</p>
<p>Reservation: <code>{{.ReservationID}}</code></p>
<p>It is waiting for your confirmation.</p>`)),
	},
	TemplateReservationConfirmed: {
		subject: texttemplate.Must(texttemplate.New("subject").Parse(`Your reservation for {{.EventTitle}} is confirmed`)),
		body: template.Must(template.New("body").Parse(`
<h2>Reservation confirmed</h2>
<p>Hello {{.ParticipantName}},</p>
<p>Your place for <b>{{.EventTitle}}</b> on {{.EventDate}} is confirmed.</p>
<p>Download your ticket from your reservations page.</p>`)),
	},
}

// Render produces the subject and HTML body of msg.
func Render(msg Message) (subject, body string, err error) {
	t, ok := templates[msg.Template]
	if !ok {
		return "", "", fmt.Errorf("unknown mail template %q", msg.Template)
	}
	var s, b bytes.Buffer
	if err := t.subject.Execute(&s, msg.Data); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	if err := t.body.Execute(&b, msg.Data); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return s.String(), b.String(), nil
}

// NewSender returns a Resend-backed sender when apiKey is set and a
// logging sender otherwise.
func NewSender(apiKey, from, endpoint string, logger *slog.Logger) Sender {
	if apiKey == "" {
		return NewLogSender(logger)
	}
	return NewResendSender(apiKey, from, endpoint, http.DefaultClient, logger)
}

// LogSender renders messages and writes them to the log instead of sending.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the rendered message.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	subject, _, err := Render(msg)
	if err != nil {
		return err
	}
	s.logger.Info("mail not sent: no provider configured", "to", msg.To, "template", msg.Template, "subject", subject)
	return nil
}
