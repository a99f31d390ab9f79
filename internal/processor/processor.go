// Package processor drains the inbox: it claims pending messages, runs each
// through the router and records the reply.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/civitas/internal/domain"
	"github.com/josh-kwaku/civitas/internal/inbox"
	"github.com/josh-kwaku/civitas/internal/logging"
	"github.com/josh-kwaku/civitas/internal/metrics"
	"github.com/josh-kwaku/civitas/internal/reply"
)

type messageRepo interface {
	GetPending(ctx context.Context, limit int) ([]domain.InboundMessage, error)
	Claim(ctx context.Context, id uuid.UUID, now time.Time) error
	Complete(ctx context.Context, id uuid.UUID, status domain.MessageStatus, r domain.Reply, now time.Time) error
	Release(ctx context.Context, id uuid.UUID) error
	ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, from, body string) domain.Reply
}

type Processor struct {
	messages   messageRepo
	dispatcher Dispatcher
	publisher  inbox.Publisher
	logger     *slog.Logger
	interval     time.Duration
	claimTimeout time.Duration
	batchSize    int
	now          func() time.Time
}

func New(
	messages messageRepo,
	dispatcher Dispatcher,
	publisher inbox.Publisher,
	logger *slog.Logger,
	interval time.Duration,
	claimTimeout time.Duration,
	batchSize int,
) *Processor {
	if publisher == nil {
		publisher = inbox.LogPublisher{}
	}
	return &Processor{
		messages:     messages,
		dispatcher:   dispatcher,
		publisher:    publisher,
		logger:       logger,
		interval:     interval,
		claimTimeout: claimTimeout,
		batchSize:    batchSize,
		now:          time.Now,
	}
}

// Start polls until ctx is cancelled. The first batch runs immediately.
func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("inbox processor started", "interval", p.interval, "batch_size", p.batchSize)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("inbox processor stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Processor) poll(ctx context.Context) {
	if _, err := p.RunOnce(ctx); err != nil {
		p.logger.Error("inbox batch failed", "error", err)
	}
}

// RunOnce handles one batch of pending messages, one at a time, and
// returns how many it completed. A failing message never stops the batch.
// Messages left in processing longer than the claim timeout are queued
// again first.
func (p *Processor) RunOnce(ctx context.Context) (int, error) {
	p.reclaim(ctx)

	msgs, err := p.messages.GetPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("RunOnce: %w", err)
	}

	done := 0
	for _, m := range msgs {
		if ctx.Err() != nil {
			break
		}
		handled, err := p.processMessage(ctx, m)
		if err != nil {
			p.logger.Error("failed to process message",
				"message_id", m.MessageID,
				"error", err,
			)
			continue
		}
		if handled {
			done++
		}
	}
	metrics.InboxBatch.Observe(float64(done))
	return done, nil
}

func (p *Processor) reclaim(ctx context.Context) {
	if p.claimTimeout <= 0 {
		return
	}
	n, err := p.messages.ReclaimStale(ctx, p.now().UTC().Add(-p.claimTimeout))
	if err != nil {
		p.logger.Error("failed to reclaim stale messages", "error", err)
		return
	}
	if n > 0 {
		metrics.InboxReclaimed.Add(float64(n))
		p.logger.Warn("stale claims returned to queue", "count", n, "claim_timeout", p.claimTimeout)
	}
}

func (p *Processor) processMessage(ctx context.Context, m domain.InboundMessage) (bool, error) {
	if err := p.messages.Claim(ctx, m.ID, p.now().UTC()); err != nil {
		if errors.Is(err, domain.ErrMessageNotClaimed) {
			return false, nil
		}
		return false, fmt.Errorf("processMessage: %w", err)
	}

	ctx = logging.WithLogger(ctx, p.logger.With("message_id", m.MessageID, "from", m.Sender))
	out, status := p.dispatch(ctx, m)

	if err := p.messages.Complete(ctx, m.ID, status, out, p.now().UTC()); err != nil {
		if rerr := p.messages.Release(ctx, m.ID); rerr != nil {
			logging.FromContext(ctx).Error("failed to release message", "error", rerr)
		}
		return false, fmt.Errorf("processMessage: %w", err)
	}
	if err := p.publisher.Publish(ctx, m, out); err != nil {
		// Not retried. The inbound endpoint answers a re-posted message id
		// with the stored reply.
		logging.FromContext(ctx).Error("reply publish failed", "error", err)
	}
	return true, nil
}

// dispatch runs the router and turns a panic into an internal-error reply.
func (p *Processor) dispatch(ctx context.Context, m domain.InboundMessage) (out domain.Reply, status domain.MessageStatus) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.Panics.WithLabelValues("processor").Inc()
			logging.FromContext(ctx).Error("panic while handling message", "panic", rec)
			out = reply.Error("COMMAND", fmt.Errorf("panic: %v", rec))
			status = domain.MessageStatusFailed
		}
	}()
	return p.dispatcher.Dispatch(ctx, m.Sender, m.Body), domain.MessageStatusProcessed
}
