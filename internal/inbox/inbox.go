// Package inbox accepts command messages from the outside world and hands
// replies back. Messages land in the inbox table; the processor consumes
// them from there.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/josh-kwaku/civitas/internal/domain"
	"github.com/josh-kwaku/civitas/internal/logging"
)

// Envelope is the wire form of an inbound message, shared by the HTTP
// endpoint and the Kafka topic.
type Envelope struct {
	MessageID  string    `json:"message_id"`
	From       string    `json:"from"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

func (e Envelope) validate() error {
	var missing []string
	if strings.TrimSpace(e.MessageID) == "" {
		missing = append(missing, "message_id")
	}
	if strings.TrimSpace(e.From) == "" {
		missing = append(missing, "from")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required: %w", strings.Join(missing, ", "), domain.ErrMalformedCommand)
	}
	return nil
}

type messageStore interface {
	Create(ctx context.Context, m *domain.InboundMessage) error
}

type Inbox struct {
	messages messageStore
	now      func() time.Time
}

func New(messages messageStore) *Inbox {
	return &Inbox{messages: messages, now: time.Now}
}

// Enqueue stores env for processing. It reports false without error when
// the message id was already seen.
func (i *Inbox) Enqueue(ctx context.Context, env Envelope) (bool, error) {
	if err := env.validate(); err != nil {
		return false, fmt.Errorf("Enqueue: %w", err)
	}
	received := env.ReceivedAt
	if received.IsZero() {
		received = i.now()
	}

	m := &domain.InboundMessage{
		MessageID:  strings.TrimSpace(env.MessageID),
		Sender:     strings.TrimSpace(env.From),
		Body:       env.Body,
		Status:     domain.MessageStatusPending,
		ReceivedAt: received.UTC(),
	}
	if err := i.messages.Create(ctx, m); err != nil {
		if errors.Is(err, domain.ErrDuplicateMessage) {
			logging.FromContext(ctx).Info("duplicate message ignored", "message_id", m.MessageID)
			return false, nil
		}
		return false, fmt.Errorf("Enqueue: %w", err)
	}

	logging.FromContext(ctx).Info("message enqueued", "message_id", m.MessageID, "from", m.Sender)
	return true, nil
}
