// Package ledger owns account balances and their append-only audit log.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/civitas/internal/domain"
	"github.com/josh-kwaku/civitas/internal/logging"
	"github.com/josh-kwaku/civitas/internal/metrics"
	"github.com/josh-kwaku/civitas/internal/repository"
)

const DefaultHistoryLimit = 20

type accountRepo interface {
	Get(ctx context.Context, q repository.Querier, email string) (*domain.Account, error)
	Ensure(ctx context.Context, q repository.Querier, email string, now time.Time) error
	UpdateBalance(ctx context.Context, q repository.Querier, email string, newBalance, expectedVersion int64, now time.Time) error
}

type entryRepo interface {
	Append(ctx context.Context, q repository.Querier, entry *domain.LedgerEntry) error
	ListByEmail(ctx context.Context, q repository.Querier, email string, limit int) ([]domain.LedgerEntry, error)
}

type Store struct {
	db       *repository.DB
	accounts accountRepo
	entries  entryRepo
	now      func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(db *repository.DB, opts ...Option) *Store {
	s := &Store{
		db:       db,
		accounts: repository.NewAccountRepository(db),
		entries:  repository.NewLedgerRepository(db),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the backing database so engines can compose ledger movements
// with their own writes in one transaction.
func (s *Store) DB() *repository.DB {
	return s.db
}

func (s *Store) EnsureAccount(ctx context.Context, email string) error {
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return fmt.Errorf("EnsureAccount: %w", err)
	}
	if err := s.accounts.Ensure(ctx, s.db.Conn(), email, s.now().UTC()); err != nil {
		return fmt.Errorf("EnsureAccount: %w", err)
	}
	return nil
}

func (s *Store) GetBalance(ctx context.Context, email string) (int64, error) {
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return 0, fmt.Errorf("GetBalance: %w", err)
	}
	acct, err := s.accounts.Get(ctx, s.db.Conn(), email)
	if err != nil {
		return 0, fmt.Errorf("GetBalance: %w", err)
	}
	return acct.Balance, nil
}

// Credit adds amount to email's balance and returns the new balance.
func (s *Store) Credit(ctx context.Context, email string, amount int64, note string) (int64, error) {
	var after int64
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		e, err := s.CreditIn(ctx, tx, email, amount, note)
		if err != nil {
			return err
		}
		after = e.BalanceAfter()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("Credit: %w", err)
	}
	return after, nil
}

// Debit subtracts amount without checking that the balance covers it.
func (s *Store) Debit(ctx context.Context, email string, amount int64, note string) (int64, error) {
	var after int64
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		e, err := s.DebitIn(ctx, tx, email, amount, note)
		if err != nil {
			return err
		}
		after = e.BalanceAfter()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("Debit: %w", err)
	}
	return after, nil
}

// CreditIn is Credit against a caller-owned transaction.
func (s *Store) CreditIn(ctx context.Context, q repository.Querier, email string, amount int64, note string) (*domain.LedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("CreditIn: %w", domain.ErrInvalidAmount)
	}
	e, err := s.apply(ctx, q, email, amount, note)
	if err != nil {
		return nil, fmt.Errorf("CreditIn: %w", err)
	}
	return e, nil
}

// DebitIn is Debit against a caller-owned transaction.
func (s *Store) DebitIn(ctx context.Context, q repository.Querier, email string, amount int64, note string) (*domain.LedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("DebitIn: %w", domain.ErrInvalidAmount)
	}
	e, err := s.apply(ctx, q, email, -amount, note)
	if err != nil {
		return nil, fmt.Errorf("DebitIn: %w", err)
	}
	return e, nil
}

// BalanceIn ensures email exists and reads its balance inside q.
func (s *Store) BalanceIn(ctx context.Context, q repository.Querier, email string) (int64, error) {
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return 0, fmt.Errorf("BalanceIn: %w", err)
	}
	if err := s.accounts.Ensure(ctx, q, email, s.now().UTC()); err != nil {
		return 0, fmt.Errorf("BalanceIn: %w", err)
	}
	acct, err := s.accounts.Get(ctx, q, email)
	if err != nil {
		return 0, fmt.Errorf("BalanceIn: %w", err)
	}
	return acct.Balance, nil
}

// Transfer moves amount from one account to another. Unlike Debit it
// refuses to overdraw the sender. Both legs commit together.
func (s *Store) Transfer(ctx context.Context, from, to string, amount int64) (int64, error) {
	log := logging.FromContext(ctx)

	if amount <= 0 {
		return 0, fmt.Errorf("Transfer: %w", domain.ErrInvalidAmount)
	}
	from, err := domain.NormalizeEmail(from)
	if err != nil {
		return 0, fmt.Errorf("Transfer: sender: %w", err)
	}
	to, err = domain.NormalizeEmail(to)
	if err != nil {
		return 0, fmt.Errorf("Transfer: recipient: %w", err)
	}
	if from == to {
		return 0, fmt.Errorf("Transfer: %w", domain.ErrSelfTransfer)
	}

	var after int64
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		balance, err := s.BalanceIn(ctx, tx, from)
		if err != nil {
			return err
		}
		if balance < amount {
			return domain.ErrInsufficientFunds
		}
		debit, err := s.DebitIn(ctx, tx, from, amount, "transfer to "+to)
		if err != nil {
			return err
		}
		if _, err := s.CreditIn(ctx, tx, to, amount, "transfer from "+from); err != nil {
			return err
		}
		after = debit.BalanceAfter()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("Transfer: %w", err)
	}

	log.Info("transfer completed", "from", from, "to", to, "amount", amount)
	return after, nil
}

func (s *Store) History(ctx context.Context, email string, limit int) ([]domain.LedgerEntry, error) {
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	entries, err := s.entries.ListByEmail(ctx, s.db.Conn(), email, limit)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	return entries, nil
}

func (s *Store) apply(ctx context.Context, q repository.Querier, email string, delta int64, note string) (*domain.LedgerEntry, error) {
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()

	if err := s.accounts.Ensure(ctx, q, email, now); err != nil {
		return nil, err
	}
	acct, err := s.accounts.Get(ctx, q, email)
	if err != nil {
		return nil, err
	}

	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		Timestamp:     now,
		Email:         email,
		Delta:         delta,
		Note:          note,
		BalanceBefore: acct.Balance,
		Processed:     true,
	}
	if err := s.accounts.UpdateBalance(ctx, q, email, entry.BalanceAfter(), acct.Version, now); err != nil {
		return nil, err
	}
	if err := s.entries.Append(ctx, q, entry); err != nil {
		return nil, err
	}

	direction := string(entry.Type())
	metrics.LedgerMovements.WithLabelValues(direction).Inc()
	metrics.LedgerVolume.WithLabelValues(direction).Add(float64(abs(delta)))
	return entry, nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
