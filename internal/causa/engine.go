// Package causa runs wagering markets: creation, voting into the pot and
// proportional resolution.
package causa

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/josh-kwaku/civitas/internal/domain"
	"github.com/josh-kwaku/civitas/internal/ledger"
	"github.com/josh-kwaku/civitas/internal/logging"
	"github.com/josh-kwaku/civitas/internal/metrics"
	"github.com/josh-kwaku/civitas/internal/repository"
)

type DustPolicy string

const (
	DustStrand  DustPolicy = "strand"
	DustCreator DustPolicy = "creator"
)

type causaRepo interface {
	Create(ctx context.Context, q repository.Querier, c *domain.Causa) error
	Get(ctx context.Context, q repository.Querier, id int64) (*domain.Causa, error)
	Update(ctx context.Context, q repository.Querier, c *domain.Causa) error
	ListByStatus(ctx context.Context, q repository.Querier, status domain.CausaStatus) ([]domain.Causa, error)
}

type Engine struct {
	db     *repository.DB
	ledger *ledger.Store
	causae causaRepo

	oneVotePerUser bool
	dust           DustPolicy
	closeAfter     time.Duration
	minWager       int64
	now            func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithOneVotePerUser rejects a second vote by the same account on a causa.
func WithOneVotePerUser(on bool) Option {
	return func(e *Engine) { e.oneVotePerUser = on }
}

func WithDustPolicy(p DustPolicy) Option {
	return func(e *Engine) { e.dust = p }
}

// WithDefaults sets the closing window and minimum wager applied when a
// create request leaves them unset.
func WithDefaults(closeDays int, minWager int64) Option {
	return func(e *Engine) {
		if closeDays > 0 {
			e.closeAfter = time.Duration(closeDays) * 24 * time.Hour
		}
		if minWager > 0 {
			e.minWager = minWager
		}
	}
}

func NewEngine(store *ledger.Store, opts ...Option) *Engine {
	e := &Engine{
		db:         store.DB(),
		ledger:     store,
		causae:     repository.NewCausaRepository(store.DB()),
		dust:       DustStrand,
		closeAfter: 7 * 24 * time.Hour,
		minWager:   1,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type CreateParams struct {
	Creator     string
	Title       string
	Options     []string
	ClosingDate time.Time
	MinWager    int64
}

func (e *Engine) Create(ctx context.Context, p CreateParams) (*domain.Causa, error) {
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
	var options []string
	for _, o := range p.Options {
		if o = strings.TrimSpace(o); o != "" {
			options = append(options, o)
		}
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("Create: %w", domain.ErrNoOptions)
	}

	closing := p.ClosingDate
	if closing.IsZero() {
		closing = now.Add(e.closeAfter)
	}
	closing = domain.DateOnly(closing)
	if closing.Before(domain.DateOnly(now)) {
		return nil, fmt.Errorf("Create: closing date %s is in the past: %w", closing.Format(time.DateOnly), domain.ErrInvalidDate)
	}

	minWager := p.MinWager
	if minWager == 0 {
		minWager = e.minWager
	}
	if minWager < 0 {
		return nil, fmt.Errorf("Create: minimum wager: %w", domain.ErrInvalidAmount)
	}

	c := &domain.Causa{
		Title:       title,
		Options:     options,
		Creator:     creator,
		Status:      domain.CausaStatusOpen,
		ClosingDate: closing,
		Votes:       []domain.Vote{},
		MinWager:    minWager,
		CreatedAt:   now,
	}
	if err := e.causae.Create(ctx, e.db.Conn(), c); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	log.Info("causa created",
		"causa_id", c.ID,
		"creator", creator,
		"options", len(options),
		"closing_date", closing.Format(time.DateOnly),
	)
	return c, nil
}

// Vote stakes wager on option optionIndex. The voter's balance is debited
// without a sufficiency check, so a vote can take an account negative.
func (e *Engine) Vote(ctx context.Context, voter string, id int64, optionIndex int, wager int64) (*domain.Causa, error) {
	log := logging.FromContext(ctx)

	voter, err := domain.NormalizeEmail(voter)
	if err != nil {
		return nil, fmt.Errorf("Vote: %w", err)
	}

	var c *domain.Causa
	err = e.db.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		c, err = e.causae.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if c.Status != domain.CausaStatusOpen {
			return domain.ErrCausaNotOpen
		}
		if c.ClosedAt(e.now()) {
			return domain.ErrCausaClosed
		}
		if !c.ValidOption(optionIndex) {
			return fmt.Errorf("option %d of %d: %w", optionIndex, len(c.Options), domain.ErrOptionOutOfRange)
		}
		if wager <= 0 {
			return domain.ErrInvalidAmount
		}
		if wager < c.MinWager {
			return fmt.Errorf("wager %d, minimum %d: %w", wager, c.MinWager, domain.ErrWagerTooSmall)
		}
		if e.oneVotePerUser && c.HasVoted(voter) {
			return domain.ErrAlreadyVoted
		}

		if _, err := e.ledger.DebitIn(ctx, tx, voter, wager, fmt.Sprintf("causa #%d wager", id)); err != nil {
			return err
		}
		c.Votes = append(c.Votes, domain.Vote{Email: voter, OptionIndex: optionIndex, Wager: wager})
		c.TotalPot += wager
		return e.causae.Update(ctx, tx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("Vote: %w", err)
	}

	log.Info("causa vote placed",
		"causa_id", id,
		"email", voter,
		"option", optionIndex,
		"amount", wager,
		"total_pot", c.TotalPot,
	)
	return c, nil
}

type Resolution struct {
	CausaID       int64
	WinningOption int
	WinningLabel  string
	Pot           int64
	WinnersCount  int
	Payouts       []Payout
	Distributed   int64
	Dust          int64
	// DustTo is empty when the remainder was left undistributed.
	DustTo string
}

// Resolve closes the causa on winning and pays out the pot. With no
// winning wagers the whole pot returns to the creator.
func (e *Engine) Resolve(ctx context.Context, resolver string, id int64, winning int) (*Resolution, error) {
	log := logging.FromContext(ctx)

	resolver, err := domain.NormalizeEmail(resolver)
	if err != nil {
		return nil, fmt.Errorf("Resolve: %w", err)
	}

	var res *Resolution
	err = e.db.InTx(ctx, func(tx *sql.Tx) error {
		c, err := e.causae.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if c.Creator != resolver {
			return domain.ErrNotCreator
		}
		if c.Status != domain.CausaStatusOpen {
			return domain.ErrCausaNotOpen
		}
		if !c.ValidOption(winning) {
			return fmt.Errorf("option %d of %d: %w", winning, len(c.Options), domain.ErrOptionOutOfRange)
		}

		res, err = e.settle(ctx, tx, c, winning)
		if err != nil {
			return err
		}

		c.Status = domain.CausaStatusResolved
		c.Notes = fmt.Sprintf("resolved on option %d (%s); paid %d of %d; dust %d",
			winning, c.Options[winning], res.Distributed, res.Pot, res.Dust)
		return e.causae.Update(ctx, tx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("Resolve: %w", err)
	}

	if res.Dust > 0 {
		metrics.PayoutDust.Add(float64(res.Dust))
	}
	log.Info("causa resolved",
		"causa_id", id,
		"winning_option", winning,
		"total_pot", res.Pot,
		"winners", res.WinnersCount,
		"distributed", res.Distributed,
		"dust", res.Dust,
		"dust_to", res.DustTo,
	)
	return res, nil
}

func (e *Engine) settle(ctx context.Context, tx *sql.Tx, c *domain.Causa, winning int) (*Resolution, error) {
	res := &Resolution{
		CausaID:       c.ID,
		WinningOption: winning,
		WinningLabel:  c.Options[winning],
		Pot:           c.TotalPot,
	}
	note := fmt.Sprintf("causa #%d payout", c.ID)

	payouts, dust := ComputePayouts(c.Votes, winning, c.TotalPot)
	if len(payouts) == 0 {
		if c.TotalPot > 0 {
			if _, err := e.ledger.CreditIn(ctx, tx, c.Creator, c.TotalPot, fmt.Sprintf("causa #%d unclaimed pot", c.ID)); err != nil {
				return nil, err
			}
		}
		res.Distributed = c.TotalPot
		return res, nil
	}

	for _, p := range payouts {
		if p.Amount == 0 {
			continue
		}
		if _, err := e.ledger.CreditIn(ctx, tx, p.Email, p.Amount, note); err != nil {
			return nil, err
		}
		res.Distributed += p.Amount
	}
	res.Payouts = payouts
	res.WinnersCount = len(payouts)
	res.Dust = dust

	if dust > 0 && e.dust == DustCreator {
		if _, err := e.ledger.CreditIn(ctx, tx, c.Creator, dust, fmt.Sprintf("causa #%d remainder", c.ID)); err != nil {
			return nil, err
		}
		res.DustTo = c.Creator
	}
	return res, nil
}

func (e *Engine) Get(ctx context.Context, id int64) (*domain.Causa, error) {
	c, err := e.causae.Get(ctx, e.db.Conn(), id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return c, nil
}

// ListActive returns the OPEN causae in creation order.
func (e *Engine) ListActive(ctx context.Context) ([]domain.Causa, error) {
	out, err := e.causae.ListByStatus(ctx, e.db.Conn(), domain.CausaStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}
	return out, nil
}
