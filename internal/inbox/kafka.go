package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/josh-kwaku/civitas/internal/domain"
	"github.com/josh-kwaku/civitas/internal/logging"
)

func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

type fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaIngester copies messages from a topic into the inbox. Offsets are
// committed only after the insert, so a crash replays rather than drops.
type KafkaIngester struct {
	reader fetcher
	inbox  *Inbox
	retry  time.Duration
}

func NewKafkaIngester(reader fetcher, inbox *Inbox) *KafkaIngester {
	return &KafkaIngester{reader: reader, inbox: inbox, retry: 500 * time.Millisecond}
}

func (k *KafkaIngester) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	log.Info("kafka ingester started")

	for {
		m, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("kafka ingester stopped")
				return nil
			}
			log.Warn("kafka fetch failed", "error", err)
			if !sleep(ctx, k.retry) {
				return nil
			}
			continue
		}

		// The same record is retried until stored; committing a later
		// offset would skip it.
		for {
			err := k.handle(ctx, m)
			if err == nil {
				break
			}
			log.Error("kafka message not stored, retrying",
				"partition", m.Partition,
				"offset", m.Offset,
				"error", err,
			)
			if !sleep(ctx, k.retry) {
				return nil
			}
		}

		if err := k.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			log.Warn("kafka commit failed", "offset", m.Offset, "error", err)
		}
	}
}

// handle stores one record. Records that can never be stored are logged
// and reported as handled so they do not block the partition.
func (k *KafkaIngester) handle(ctx context.Context, m kafka.Message) error {
	log := logging.FromContext(ctx)

	var env Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		log.Warn("undecodable kafka message skipped", "offset", m.Offset, "error", err)
		return nil
	}
	if env.ReceivedAt.IsZero() {
		env.ReceivedAt = m.Time
	}

	if _, err := k.inbox.Enqueue(ctx, env); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			log.Warn("invalid kafka message skipped", "offset", m.Offset, "error", err)
			return nil
		}
		return fmt.Errorf("handle: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
