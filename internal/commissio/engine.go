// Package commissio runs escrowed bounties. The reward leaves the creator
// at creation and is paid to the assignee on completion.
package commissio

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/josh-kwaku/civitas/internal/domain"
	"github.com/josh-kwaku/civitas/internal/ledger"
	"github.com/josh-kwaku/civitas/internal/logging"
	"github.com/josh-kwaku/civitas/internal/repository"
)

type commissioRepo interface {
	Create(ctx context.Context, q repository.Querier, c *domain.Commissio) error
	Get(ctx context.Context, q repository.Querier, id int64) (*domain.Commissio, error)
	Update(ctx context.Context, q repository.Querier, c *domain.Commissio) error
	ListByStatus(ctx context.Context, q repository.Querier, status domain.CommissioStatus) ([]domain.Commissio, error)
}

type Engine struct {
	db           *repository.DB
	ledger       *ledger.Store
	commissiones commissioRepo

	reward      int64
	expireAfter time.Duration
	now         func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithDefaults sets the reward and expiry window used when a create
// request leaves them unset.
func WithDefaults(reward int64, expiryDays int) Option {
	return func(e *Engine) {
		if reward > 0 {
			e.reward = reward
		}
		if expiryDays > 0 {
			e.expireAfter = time.Duration(expiryDays) * 24 * time.Hour
		}
	}
}

func NewEngine(store *ledger.Store, opts ...Option) *Engine {
	e := &Engine{
		db:           store.DB(),
		ledger:       store,
		commissiones: repository.NewCommissioRepository(store.DB()),
		reward:       10,
		expireAfter:  30 * 24 * time.Hour,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type CreateParams struct {
	Creator string
	Title   string
	Reward  int64
	Expiry  time.Time
}

// Create escrows the reward and records the commissio. The debit and the
// insert commit together.
func (e *Engine) Create(ctx context.Context, p CreateParams) (*domain.Commissio, error) {
	log := logging.FromContext(ctx)
	now := e.now().UTC()

	creator, err := domain.NormalizeEmail(p.Creator)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, fmt.Errorf("Create: %w", domain.ErrEmptyTitle)
	}
	reward := p.Reward
	if reward == 0 {
		reward = e.reward
	}
	if reward < 0 {
		return nil, fmt.Errorf("Create: reward: %w", domain.ErrInvalidAmount)
	}
	expiry := p.Expiry
	if expiry.IsZero() {
		expiry = now.Add(e.expireAfter)
	}
	expiry = domain.DateOnly(expiry)
	if expiry.Before(domain.DateOnly(now)) {
		return nil, fmt.Errorf("Create: expiry %s is in the past: %w", expiry.Format(time.DateOnly), domain.ErrInvalidDate)
	}

	var c *domain.Commissio
	err = e.db.InTx(ctx, func(tx *sql.Tx) error {
		balance, err := e.ledger.BalanceIn(ctx, tx, creator)
		if err != nil {
			return err
		}
		if balance < reward {
			return fmt.Errorf("balance %d, reward %d: %w", balance, reward, domain.ErrInsufficientFunds)
		}

		c = &domain.Commissio{
			Title:     title,
			Creator:   creator,
			Reward:    reward,
			Expiry:    expiry,
			Status:    domain.CommissioStatusOpen,
			CreatedAt: now,
		}
		if err := e.commissiones.Create(ctx, tx, c); err != nil {
			return err
		}
		_, err = e.ledger.DebitIn(ctx, tx, creator, reward, fmt.Sprintf("commissio #%d escrow", c.ID))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	log.Info("commissio created",
		"commissio_id", c.ID,
		"creator", creator,
		"amount", reward,
		"expiry", expiry.Format(time.DateOnly),
	)
	return c, nil
}

// Accept assigns an OPEN commissio to acceptor. A commissio found past its
// expiry is stored as EXPIRED before the error is returned; its escrow is
// not refunded.
func (e *Engine) Accept(ctx context.Context, acceptor string, id int64) (*domain.Commissio, error) {
	log := logging.FromContext(ctx)

	acceptor, err := domain.NormalizeEmail(acceptor)
	if err != nil {
		return nil, fmt.Errorf("Accept: %w", err)
	}

	var (
		c       *domain.Commissio
		expired bool
	)
	err = e.db.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		expired = false
		c, err = e.commissiones.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		now := e.now().UTC()
		if c.ExpiredAt(now) {
			expired = true
			return e.expire(ctx, tx, c)
		}
		if c.Status != domain.CommissioStatusOpen {
			return fmt.Errorf("status %s: %w", c.Status, domain.ErrCommissioNotOpen)
		}

		c.Status = domain.CommissioStatusAssigned
		c.Assignee = acceptor
		c.Notes = "accepted by " + acceptor + " on " + now.Format(time.DateOnly)
		return e.commissiones.Update(ctx, tx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("Accept: %w", err)
	}
	if expired {
		return nil, fmt.Errorf("Accept: %w", domain.ErrCommissioExpired)
	}

	log.Info("commissio accepted", "commissio_id", id, "email", acceptor)
	return c, nil
}

// Complete pays the reward to the assignee and returns the amount paid.
func (e *Engine) Complete(ctx context.Context, completer string, id int64) (int64, error) {
	log := logging.FromContext(ctx)

	completer, err := domain.NormalizeEmail(completer)
	if err != nil {
		return 0, fmt.Errorf("Complete: %w", err)
	}

	var reward int64
	err = e.db.InTx(ctx, func(tx *sql.Tx) error {
		c, err := e.commissiones.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if c.Status != domain.CommissioStatusAssigned {
			return fmt.Errorf("status %s: %w", c.Status, domain.ErrNotAssigned)
		}
		if c.Assignee != completer {
			return domain.ErrNotAssignee
		}

		if _, err := e.ledger.CreditIn(ctx, tx, c.Assignee, c.Reward, fmt.Sprintf("commissio #%d reward", c.ID)); err != nil {
			return err
		}
		now := e.now().UTC()
		c.Status = domain.CommissioStatusCompleted
		c.CompletedAt = &now
		reward = c.Reward
		return e.commissiones.Update(ctx, tx, c)
	})
	if err != nil {
		return 0, fmt.Errorf("Complete: %w", err)
	}

	log.Info("commissio completed", "commissio_id", id, "email", completer, "amount", reward)
	return reward, nil
}

func (e *Engine) Get(ctx context.Context, id int64) (*domain.Commissio, error) {
	c, err := e.commissiones.Get(ctx, e.db.Conn(), id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return c, nil
}

// ListActive returns OPEN and ASSIGNED commissiones in creation order.
// Elapsed OPEN records are stored as EXPIRED and left out.
func (e *Engine) ListActive(ctx context.Context) ([]domain.Commissio, error) {
	var active []domain.Commissio
	err := e.db.InTx(ctx, func(tx *sql.Tx) error {
		active = active[:0]
		now := e.now().UTC()

		open, err := e.commissiones.ListByStatus(ctx, tx, domain.CommissioStatusOpen)
		if err != nil {
			return err
		}
		for i := range open {
			if open[i].ExpiredAt(now) {
				if err := e.expire(ctx, tx, &open[i]); err != nil {
					return err
				}
				continue
			}
			active = append(active, open[i])
		}

		assigned, err := e.commissiones.ListByStatus(ctx, tx, domain.CommissioStatusAssigned)
		if err != nil {
			return err
		}
		active = append(active, assigned...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}

	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return active, nil
}

func (e *Engine) expire(ctx context.Context, q repository.Querier, c *domain.Commissio) error {
	c.Status = domain.CommissioStatusExpired
	c.Notes = "expired unclaimed; escrow retained"
	if err := e.commissiones.Update(ctx, q, c); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("commissio expired",
		"commissio_id", c.ID,
		"creator", c.Creator,
		"amount", c.Reward,
	)
	return nil
}
