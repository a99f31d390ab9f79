package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/josh-kwaku/civitas/internal/domain"
)

const causaColumns = `id, title, options, creator, status, total_pot, closing_date, votes, notes, min_wager, version, created_at`

type CausaRepository struct {
	dialect Dialect
}

func NewCausaRepository(db *DB) *CausaRepository {
	return &CausaRepository{dialect: db.dialect}
}

// Create inserts c and fills in its ID and Version.
func (r *CausaRepository) Create(ctx context.Context, q Querier, c *domain.Causa) error {
	options, votes, err := encodeCausa(c)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	err = q.QueryRowContext(ctx,
		r.dialect.rebind(`INSERT INTO causae (title, options, creator, status, total_pot, closing_date, votes, notes, min_wager, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		RETURNING id`),
		c.Title, options, c.Creator, string(c.Status), c.TotalPot, toMillis(c.ClosingDate),
		votes, c.Notes, c.MinWager, toMillis(c.CreatedAt),
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	c.Version = 1
	return nil
}

func (r *CausaRepository) Get(ctx context.Context, q Querier, id int64) (*domain.Causa, error) {
	row := q.QueryRowContext(ctx,
		r.dialect.rebind(`SELECT `+causaColumns+` FROM causae WHERE id = ?`), id,
	)
	c, err := scanCausa(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrCausaNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return c, nil
}

// Update persists the mutable fields of c if its version is unchanged since
// it was read. On success c.Version is advanced.
func (r *CausaRepository) Update(ctx context.Context, q Querier, c *domain.Causa) error {
	_, votes, err := encodeCausa(c)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	res, err := q.ExecContext(ctx,
		r.dialect.rebind(`UPDATE causae SET status = ?, total_pot = ?, votes = ?, notes = ?, version = ?
		WHERE id = ? AND version = ?`),
		string(c.Status), c.TotalPot, votes, c.Notes, c.Version+1, c.ID, c.Version,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Update: causa %d: %w", c.ID, domain.ErrVersionConflict)
	}
	c.Version++
	return nil
}

func (r *CausaRepository) ListByStatus(ctx context.Context, q Querier, status domain.CausaStatus) ([]domain.Causa, error) {
	rows, err := q.QueryContext(ctx,
		r.dialect.rebind(`SELECT `+causaColumns+` FROM causae WHERE status = ? ORDER BY id`),
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("ListByStatus: %w", err)
	}
	defer rows.Close()

	var out []domain.Causa
	for rows.Next() {
		c, err := scanCausa(rows)
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

func encodeCausa(c *domain.Causa) (options, votes string, err error) {
	o, err := json.Marshal(c.Options)
	if err != nil {
		return "", "", fmt.Errorf("marshal options: %w", err)
	}
	vs := c.Votes
	if vs == nil {
		vs = []domain.Vote{}
	}
	v, err := json.Marshal(vs)
	if err != nil {
		return "", "", fmt.Errorf("marshal votes: %w", err)
	}
	return string(o), string(v), nil
}

func scanCausa(s scanner) (*domain.Causa, error) {
	var (
		c              domain.Causa
		status         string
		options, votes string
		closing, ctime int64
	)
	err := s.Scan(&c.ID, &c.Title, &options, &c.Creator, &status, &c.TotalPot,
		&closing, &votes, &c.Notes, &c.MinWager, &c.Version, &ctime)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(options), &c.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	if err := json.Unmarshal([]byte(votes), &c.Votes); err != nil {
		return nil, fmt.Errorf("unmarshal votes: %w", err)
	}
	c.Status = domain.CausaStatus(status)
	c.ClosingDate = fromMillis(closing)
	c.CreatedAt = fromMillis(ctime)
	return &c, nil
}

