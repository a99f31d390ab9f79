package repository

import (
	"context"
	"fmt"

	"github.com/josh-kwaku/civitas/internal/domain"
)

const ledgerColumns = `id, timestamp, email, amount, notes, previous_balance, processed`

type LedgerRepository struct {
	dialect Dialect
}

func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{dialect: db.dialect}
}

func (r *LedgerRepository) Append(ctx context.Context, q Querier, entry *domain.LedgerEntry) error {
	_, err := q.ExecContext(ctx,
		r.dialect.rebind(`INSERT INTO ledger_log (`+ledgerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		entry.ID, toMillis(entry.Timestamp), entry.Email, entry.Delta,
		entry.Note, entry.BalanceBefore, boolToInt(entry.Processed),
	)
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

// ListByEmail returns the newest entries first.
func (r *LedgerRepository) ListByEmail(ctx context.Context, q Querier, email string, limit int) ([]domain.LedgerEntry, error) {
	rows, err := q.QueryContext(ctx,
		r.dialect.rebind(`SELECT `+ledgerColumns+` FROM ledger_log
		WHERE email = ? ORDER BY timestamp DESC, id DESC LIMIT ?`),
		email, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByEmail: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByEmail: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByEmail: rows: %w", err)
	}
	return entries, nil
}

func scanLedgerEntry(s scanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var ts int64
	var processed int
	err := s.Scan(&e.ID, &ts, &e.Email, &e.Delta, &e.Note, &e.BalanceBefore, &processed)
	if err != nil {
		return nil, err
	}
	e.Timestamp = fromMillis(ts)
	e.Processed = processed != 0
	return &e, nil
}
