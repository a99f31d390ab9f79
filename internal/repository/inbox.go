package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/civitas/internal/domain"
)

const inboxColumns = `id, message_id, sender, body, status,
	reply_ok, reply_code, reply_subject, reply_body, attempts, received_at, processed_at`

type InboxRepository struct {
	db *DB
}

func NewInboxRepository(db *DB) *InboxRepository {
	return &InboxRepository{db: db}
}

// Create enqueues m. A message whose MessageID was already seen returns
// domain.ErrDuplicateMessage.
func (r *InboxRepository) Create(ctx context.Context, m *domain.InboundMessage) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = domain.MessageStatusPending
	}
	_, err := r.db.pool.ExecContext(ctx,
		r.db.dialect.rebind(`INSERT INTO inbox (id, message_id, sender, body, status, attempts, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		m.ID, m.MessageID, m.Sender, m.Body, string(m.Status), m.Attempts, toMillis(m.ReceivedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %s: %w", m.MessageID, domain.ErrDuplicateMessage)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// GetPending returns up to limit pending messages, oldest first. Callers
// must Claim each one before acting on it.
func (r *InboxRepository) GetPending(ctx context.Context, limit int) ([]domain.InboundMessage, error) {
	rows, err := r.db.pool.QueryContext(ctx,
		r.db.dialect.rebind(`SELECT `+inboxColumns+` FROM inbox
		WHERE status = ? ORDER BY received_at, id LIMIT ?`),
		string(domain.MessageStatusPending), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("GetPending: %w", err)
	}
	defer rows.Close()

	var msgs []domain.InboundMessage
	for rows.Next() {
		m, err := scanInboundMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("GetPending: scan: %w", err)
		}
		msgs = append(msgs, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetPending: rows: %w", err)
	}
	return msgs, nil
}

// Claim moves a pending message to processing and stamps the claim time.
// When another worker got there first it returns domain.ErrMessageNotClaimed.
func (r *InboxRepository) Claim(ctx context.Context, id uuid.UUID, now time.Time) error {
	res, err := r.db.pool.ExecContext(ctx,
		r.db.dialect.rebind(`UPDATE inbox SET status = ?, attempts = attempts + 1, claimed_at = ?
		WHERE id = ? AND status = ?`),
		string(domain.MessageStatusProcessing), toMillis(now), id, string(domain.MessageStatusPending),
	)
	if err != nil {
		return fmt.Errorf("Claim: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Claim: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Claim: %w", domain.ErrMessageNotClaimed)
	}
	return nil
}

// Complete stores the reply and the final status for a claimed message.
func (r *InboxRepository) Complete(ctx context.Context, id uuid.UUID, status domain.MessageStatus, reply domain.Reply, now time.Time) error {
	res, err := r.db.pool.ExecContext(ctx,
		r.db.dialect.rebind(`UPDATE inbox SET status = ?, reply_ok = ?, reply_code = ?,
		reply_subject = ?, reply_body = ?, processed_at = ?
		WHERE id = ?`),
		string(status), boolToInt(reply.OK), reply.Code, reply.Subject, reply.Body, toMillis(now), id,
	)
	if err != nil {
		return fmt.Errorf("Complete: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Complete: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Complete: %w", domain.ErrNotFound)
	}
	return nil
}

// Release puts a claimed message back in the pending queue.
func (r *InboxRepository) Release(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.pool.ExecContext(ctx,
		r.db.dialect.rebind(`UPDATE inbox SET status = ? WHERE id = ? AND status = ?`),
		string(domain.MessageStatusPending), id, string(domain.MessageStatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("Release: %w", err)
	}
	return nil
}

// ReclaimStale returns messages claimed before cutoff to the pending
// queue and reports how many were moved. A worker that died between Claim
// and Complete leaves such rows behind.
func (r *InboxRepository) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.pool.ExecContext(ctx,
		r.db.dialect.rebind(`UPDATE inbox SET status = ?
		WHERE status = ? AND claimed_at < ?`),
		string(domain.MessageStatusPending), string(domain.MessageStatusProcessing), toMillis(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("ReclaimStale: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ReclaimStale: rows affected: %w", err)
	}
	return n, nil
}

func (r *InboxRepository) GetByMessageID(ctx context.Context, messageID string) (*domain.InboundMessage, error) {
	row := r.db.pool.QueryRowContext(ctx,
		r.db.dialect.rebind(`SELECT `+inboxColumns+` FROM inbox WHERE message_id = ?`), messageID,
	)
	m, err := scanInboundMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByMessageID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByMessageID: %w", err)
	}
	return m, nil
}

func scanInboundMessage(s scanner) (*domain.InboundMessage, error) {
	var (
		m         domain.InboundMessage
		status    string
		replyOK   int
		reply     domain.Reply
		received  int64
		processed sql.NullInt64
	)
	err := s.Scan(&m.ID, &m.MessageID, &m.Sender, &m.Body, &status,
		&replyOK, &reply.Code, &reply.Subject, &reply.Body, &m.Attempts, &received, &processed)
	if err != nil {
		return nil, err
	}
	m.Status = domain.MessageStatus(status)
	m.ReceivedAt = fromMillis(received)
	m.ProcessedAt = fromNullMillis(processed)
	if m.ProcessedAt != nil {
		reply.OK = replyOK != 0
		m.Reply = &reply
	}
	return &m, nil
}
