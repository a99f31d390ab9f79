package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageStatus string

const (
	MessageStatusPending    MessageStatus = "pending"
	MessageStatusProcessing MessageStatus = "processing"
	MessageStatusProcessed  MessageStatus = "processed"
	MessageStatusFailed     MessageStatus = "failed"
)

// InboundMessage is one command message waiting in, or consumed from, the
// inbox. MessageID is the channel's own identifier and is unique.
type InboundMessage struct {
	ID          uuid.UUID
	MessageID   string
	Sender      string
	Body        string
	Status      MessageStatus
	Reply       *Reply
	Attempts    int
	ReceivedAt  time.Time
	ProcessedAt *time.Time
}

// Reply is the rendered answer to one command.
type Reply struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
