package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/civitas/internal/domain"
	"github.com/josh-kwaku/civitas/internal/ledger"
	"github.com/josh-kwaku/civitas/internal/testutil"
)

func newStore(t *testing.T) *ledger.Store {
	t.Helper()
	now := testutil.Epoch
	return ledger.NewStore(testutil.SetupSQLite(t), ledger.WithClock(testutil.Clock(&now)))
}

func TestEnsureAccountIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.EnsureAccount(ctx, "ann@example.org"))
	_, err := s.Credit(ctx, "ann@example.org", 5, "seed")
	require.NoError(t, err)
	require.NoError(t, s.EnsureAccount(ctx, "ANN@example.org"))

	bal, err := s.GetBalance(ctx, "ann@example.org")
	require.NoError(t, err)
	assert.Equal(t, int64(5), bal)
}

func TestGetBalanceUnknownAccount(t *testing.T) {
	_, err := newStore(t).GetBalance(context.Background(), "ghost@example.org")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestCreditDebitRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for _, x := range []int64{1, 7, 1000} {
		before, _ := s.Credit(ctx, "bob@example.org", 1, "warmup")

		_, err := s.Credit(ctx, "bob@example.org", x, "in")
		require.NoError(t, err)
		after, err := s.Debit(ctx, "bob@example.org", x, "out")
		require.NoError(t, err)

		assert.Equal(t, before, after, "credit then debit of %d", x)
	}
}

func TestNonPositiveAmountsRejected(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	tests := []struct {
		name string
		fn   func(int64) error
	}{
		{name: "credit", fn: func(a int64) error { _, err := s.Credit(ctx, "c@example.org", a, ""); return err }},
		{name: "debit", fn: func(a int64) error { _, err := s.Debit(ctx, "c@example.org", a, ""); return err }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, amount := range []int64{0, -1, -50} {
				err := tc.fn(amount)
				require.ErrorIs(t, err, domain.ErrInvalidAmount)
				assert.ErrorIs(t, err, domain.ErrValidation)
			}
		})
	}

	_, err := s.GetBalance(ctx, "c@example.org")
	assert.ErrorIs(t, err, domain.ErrNotFound, "rejected calls must not create the account")
}

func TestDebitMayOverdraw(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	bal, err := s.Debit(ctx, "neg@example.org", 30, "raw debit")
	require.NoError(t, err)
	assert.Equal(t, int64(-30), bal)
}

func TestHistoryRecordsEveryMovement(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupSQLite(t)
	now := testutil.Epoch
	s := ledger.NewStore(db, ledger.WithClock(testutil.Clock(&now)))

	_, err := s.Credit(ctx, "h@example.org", 10, "grant")
	require.NoError(t, err)
	now = now.Add(time.Second)
	_, err = s.Debit(ctx, "h@example.org", 4, "vote")
	require.NoError(t, err)

	entries, err := s.History(ctx, "h@example.org", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(-4), entries[0].Delta)
	assert.Equal(t, int64(10), entries[0].BalanceBefore)
	assert.Equal(t, domain.EntryTypeDebit, entries[0].Type())
	assert.Equal(t, "vote", entries[0].Note)
	assert.True(t, entries[0].Processed)

	assert.Equal(t, int64(10), entries[1].Delta)
	assert.Equal(t, int64(0), entries[1].BalanceBefore)
	assert.Equal(t, testutil.Epoch, entries[1].Timestamp)
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		from, to string
		amount   int64
		wantErr  error
		wantFrom int64
		wantTo   int64
	}{
		{name: "moves funds", from: "a@example.org", to: "b@example.org", amount: 40, wantFrom: 60, wantTo: 40},
		{name: "exact balance", from: "a@example.org", to: "b@example.org", amount: 100, wantFrom: 0, wantTo: 100},
		{name: "insufficient", from: "a@example.org", to: "b@example.org", amount: 101, wantErr: domain.ErrInsufficientFunds, wantFrom: 100},
		{name: "self", from: "a@example.org", to: "A@Example.org", amount: 1, wantErr: domain.ErrSelfTransfer, wantFrom: 100},
		{name: "zero", from: "a@example.org", to: "b@example.org", amount: 0, wantErr: domain.ErrInvalidAmount, wantFrom: 100},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := testutil.SetupSQLite(t)
			s := ledger.NewStore(db)
			testutil.SeedAccount(t, db, "a@example.org", 100)

			_, err := s.Transfer(ctx, tc.from, tc.to, tc.amount)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.wantTo, testutil.Balance(t, db, "b@example.org"))
			}
			assert.Equal(t, tc.wantFrom, testutil.Balance(t, db, "a@example.org"))
			assert.Equal(t, int64(100), testutil.TotalBalance(t, db))
		})
	}
}
