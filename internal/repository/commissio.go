package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/josh-kwaku/civitas/internal/domain"
)

const commissioColumns = `id, title, creator, reward, expiry, status, assignee, created_at, completed_at, notes, version`

type CommissioRepository struct {
	dialect Dialect
}

func NewCommissioRepository(db *DB) *CommissioRepository {
	return &CommissioRepository{dialect: db.dialect}
}

func (r *CommissioRepository) Create(ctx context.Context, q Querier, c *domain.Commissio) error {
	err := q.QueryRowContext(ctx,
		r.dialect.rebind(`INSERT INTO commissiones (title, creator, reward, expiry, status, assignee, created_at, completed_at, notes, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		RETURNING id`),
		c.Title, c.Creator, c.Reward, toMillis(c.Expiry), string(c.Status), c.Assignee,
		toMillis(c.CreatedAt), nullMillis(c.CompletedAt), c.Notes,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	c.Version = 1
	return nil
}

func (r *CommissioRepository) Get(ctx context.Context, q Querier, id int64) (*domain.Commissio, error) {
	row := q.QueryRowContext(ctx,
		r.dialect.rebind(`SELECT `+commissioColumns+` FROM commissiones WHERE id = ?`), id,
	)
	c, err := scanCommissio(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrCommissioNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return c, nil
}

// Update writes the lifecycle fields of c guarded by its version.
func (r *CommissioRepository) Update(ctx context.Context, q Querier, c *domain.Commissio) error {
	res, err := q.ExecContext(ctx,
		r.dialect.rebind(`UPDATE commissiones SET status = ?, assignee = ?, completed_at = ?, notes = ?, version = ?
		WHERE id = ? AND version = ?`),
		string(c.Status), c.Assignee, nullMillis(c.CompletedAt), c.Notes, c.Version+1, c.ID, c.Version,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Update: commissio %d: %w", c.ID, domain.ErrVersionConflict)
	}
	c.Version++
	return nil
}

func (r *CommissioRepository) ListByStatus(ctx context.Context, q Querier, status domain.CommissioStatus) ([]domain.Commissio, error) {
	rows, err := q.QueryContext(ctx,
		r.dialect.rebind(`SELECT `+commissioColumns+` FROM commissiones WHERE status = ? ORDER BY id`),
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("ListByStatus: %w", err)
	}
	defer rows.Close()

	var out []domain.Commissio
	for rows.Next() {
		c, err := scanCommissio(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByStatus: scan: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByStatus: rows: %w", err)
	}
	return out, nil
}

func scanCommissio(s scanner) (*domain.Commissio, error) {
	var (
		c             domain.Commissio
		status        string
		expiry, ctime int64
		completed     sql.NullInt64
	)
	err := s.Scan(&c.ID, &c.Title, &c.Creator, &c.Reward, &expiry, &status,
		&c.Assignee, &ctime, &completed, &c.Notes, &c.Version)
	if err != nil {
		return nil, err
	}
	c.Status = domain.CommissioStatus(status)
	c.Expiry = fromMillis(expiry)
	c.CreatedAt = fromMillis(ctime)
	c.CompletedAt = fromNullMillis(completed)
	return &c, nil
}
