package inbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/josh-kwaku/civitas/internal/domain"
	"github.com/josh-kwaku/civitas/internal/logging"
)

// Publisher delivers a reply back to the sender of msg.
type Publisher interface {
	Publish(ctx context.Context, msg domain.InboundMessage, reply domain.Reply) error
}

// LogPublisher only records that a reply is ready. Replies stay readable
// from the inbox table.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, msg domain.InboundMessage, reply domain.Reply) error {
	logging.FromContext(ctx).Info("reply ready",
		"message_id", msg.MessageID,
		"to", msg.Sender,
		"subject", reply.Subject,
		"ok", reply.OK,
	)
	return nil
}

type OutboundReply struct {
	InReplyTo string `json:"in_reply_to"`
	To        string `json:"to"`
	domain.Reply
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaReplies writes replies to a topic keyed by recipient.
type KafkaReplies struct {
	writer messageWriter
}

func NewKafkaReplies(w messageWriter) *KafkaReplies {
	return &KafkaReplies{writer: w}
}

func (k *KafkaReplies) Publish(ctx context.Context, msg domain.InboundMessage, reply domain.Reply) error {
	b, err := json.Marshal(OutboundReply{InReplyTo: msg.MessageID, To: msg.Sender, Reply: reply})
	if err != nil {
		return fmt.Errorf("Publish: %w", err)
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Sender),
		Value: b,
		Headers: []kafka.Header{
			{Key: "in-reply-to", Value: []byte(msg.MessageID)},
		},
	})
	if err != nil {
		return fmt.Errorf("Publish: %w", err)
	}
	return nil
}
