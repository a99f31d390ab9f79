package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/josh-kwaku/civitas/internal/domain"
)

const accountColumns = `email, balance, version, last_updated`

type AccountRepository struct {
	dialect Dialect
}

func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{dialect: db.dialect}
}

func (r *AccountRepository) Get(ctx context.Context, q Querier, email string) (*domain.Account, error) {
	row := q.QueryRowContext(ctx,
		r.dialect.rebind(`SELECT `+accountColumns+` FROM balances WHERE email = ?`), email,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return a, nil
}

// Ensure inserts a zero-balance row unless one already exists.
func (r *AccountRepository) Ensure(ctx context.Context, q Querier, email string, now time.Time) error {
	_, err := q.ExecContext(ctx,
		r.dialect.rebind(`INSERT INTO balances (email, balance, last_updated, version)
		VALUES (?, 0, ?, 1)
		ON CONFLICT (email) DO NOTHING`),
		email, toMillis(now),
	)
	if err != nil {
		return fmt.Errorf("Ensure: %w", err)
	}
	return nil
}

// UpdateBalance writes newBalance only if the row still carries
// expectedVersion, bumping the version by one.
func (r *AccountRepository) UpdateBalance(ctx context.Context, q Querier, email string, newBalance, expectedVersion int64, now time.Time) error {
	res, err := q.ExecContext(ctx,
		r.dialect.rebind(`UPDATE balances SET balance = ?, version = ?, last_updated = ?
		WHERE email = ? AND version = ?`),
		newBalance, expectedVersion+1, toMillis(now), email, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("UpdateBalance: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateBalance: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateBalance: %w", domain.ErrVersionConflict)
	}
	return nil
}

// SumBalances totals every account. Credit is only created by grants and
// destroyed by payout dust, so this is the conservation check.
func (r *AccountRepository) SumBalances(ctx context.Context, q Querier) (int64, error) {
	var total sql.NullInt64
	if err := q.QueryRowContext(ctx, `SELECT SUM(balance) FROM balances`).Scan(&total); err != nil {
		return 0, fmt.Errorf("SumBalances: %w", err)
	}
	return total.Int64, nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	var updated int64
	if err := s.Scan(&a.Email, &a.Balance, &a.Version, &updated); err != nil {
		return nil, err
	}
	a.LastUpdated = fromMillis(updated)
	return &a, nil
}
