// Package events publishes journey lifecycle events on JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/aos/session"
	"github.com/nats-io/nats.go/jetstream"
)

// StreamName is the JetStream stream carrying journey events.
const StreamName = "AOS_EVENTS"

// SubjectSubmittedPrefix prefixes the subject of a submission event; the case
// identifier completes it.
const SubjectSubmittedPrefix = "aos.submitted."

// Submitted is published once a case record has been stored.
type Submitted struct {
	RecordID    string        `json:"record_id"`
	CaseID      string        `json:"case_id"`
	UserID      string        `json:"user_id"`
	SessionID   string        `json:"session_id"`
	Reason      string        `json:"reason"`
	Response    string        `json:"response"`
	Flags       session.Flags `json:"flags"`
	SubmittedAt time.Time     `json:"submitted_at"`
}

// Subject returns the subject the event is published on. A case without an
// identifier is published under its record ID.
func (e Submitted) Subject() string {
	id := e.CaseID
	if id == "" {
		id = e.RecordID
	}
	return SubjectSubmittedPrefix + id
}

// publisher is the part of jetstream.JetStream the event publisher uses.
type publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher sends events to JetStream.
type Publisher struct {
	js     publisher
	logger *slog.Logger
}

// EnsureStream creates or updates the events stream.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Respondent journey events",
		Subjects:    []string{"aos.>"},
		MaxAge:      30 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("create events stream: %w", err)
	}
	return nil
}

// NewPublisher creates a publisher over js.
func NewPublisher(js publisher, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{js: js, logger: logger}
}

// PublishSubmitted publishes a submission event. The record ID doubles as
// the message ID so a retried publish is deduplicated by the stream.
func (p *Publisher) PublishSubmitted(ctx context.Context, e Submitted) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal submitted event: %w", err)
	}

	subject := e.Subject()
	ack, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(e.RecordID))
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	p.logger.Info("Published submission event",
		"subject", subject,
		"stream", ack.Stream,
		"seq", ack.Sequence)
	return nil
}
