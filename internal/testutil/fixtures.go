package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/civitas/internal/domain"
	"github.com/josh-kwaku/civitas/internal/repository"
)

// Epoch is the fixed clock used by engine tests.
var Epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Clock returns a now func pinned to *at, so tests can move time forward.
func Clock(at *time.Time) func() time.Time {
	return func() time.Time { return *at }
}

// SeedAccount creates email with the given balance, bypassing the ledger.
func SeedAccount(t *testing.T, db *repository.DB, email string, balance int64) {
	t.Helper()
	ctx := context.Background()
	accounts := repository.NewAccountRepository(db)

	if err := accounts.Ensure(ctx, db.Conn(), email, Epoch); err != nil {
		t.Fatalf("seed account %s: %v", email, err)
	}
	if balance == 0 {
		return
	}
	acct, err := accounts.Get(ctx, db.Conn(), email)
	if err != nil {
		t.Fatalf("seed account %s: %v", email, err)
	}
	if err := accounts.UpdateBalance(ctx, db.Conn(), email, balance, acct.Version, Epoch); err != nil {
		t.Fatalf("seed balance %s: %v", email, err)
	}
}

func Balance(t *testing.T, db *repository.DB, email string) int64 {
	t.Helper()
	acct, err := repository.NewAccountRepository(db).Get(context.Background(), db.Conn(), email)
	if err != nil {
		t.Fatalf("get balance %s: %v", email, err)
	}
	return acct.Balance
}

func TotalBalance(t *testing.T, db *repository.DB) int64 {
	t.Helper()
	total, err := repository.NewAccountRepository(db).SumBalances(context.Background(), db.Conn())
	if err != nil {
		t.Fatalf("sum balances: %v", err)
	}
	return total
}

func NewMessage(sender, body string) *domain.InboundMessage {
	return &domain.InboundMessage{
		ID:         uuid.New(),
		MessageID:  "<" + uuid.NewString() + "@test>",
		Sender:     sender,
		Body:       body,
		Status:     domain.MessageStatusPending,
		ReceivedAt: Epoch,
	}
}
