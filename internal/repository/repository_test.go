package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/civitas/internal/domain"
	"github.com/josh-kwaku/civitas/internal/repository"
	"github.com/josh-kwaku/civitas/internal/testutil"
)

func backends(t *testing.T) map[string]func(t *testing.T) *repository.DB {
	t.Helper()
	return map[string]func(t *testing.T) *repository.DB{
		"sqlite":   testutil.SetupSQLite,
		"postgres": testutil.SetupPostgres,
	}
}

func TestAccountVersionGuard(t *testing.T) {
	for name, setup := range backends(t) {
		t.Run(name, func(t *testing.T) {
			db := setup(t)
			ctx := context.Background()
			accounts := repository.NewAccountRepository(db)

			require.NoError(t, accounts.Ensure(ctx, db.Conn(), "ann@example.org", testutil.Epoch))
			require.NoError(t, accounts.Ensure(ctx, db.Conn(), "ann@example.org", testutil.Epoch), "ensure is idempotent")

			acct, err := accounts.Get(ctx, db.Conn(), "ann@example.org")
			require.NoError(t, err)
			assert.Zero(t, acct.Balance)

			require.NoError(t, accounts.UpdateBalance(ctx, db.Conn(), "ann@example.org", 30, acct.Version, testutil.Epoch))
			err = accounts.UpdateBalance(ctx, db.Conn(), "ann@example.org", 99, acct.Version, testutil.Epoch)
			assert.ErrorIs(t, err, domain.ErrVersionConflict)

			total, err := accounts.SumBalances(ctx, db.Conn())
			require.NoError(t, err)
			assert.Equal(t, int64(30), total)

			_, err = accounts.Get(ctx, db.Conn(), "nobody@example.org")
			assert.ErrorIs(t, err, domain.ErrAccountNotFound)
		})
	}
}

func TestLedgerNewestFirst(t *testing.T) {
	for name, setup := range backends(t) {
		t.Run(name, func(t *testing.T) {
			db := setup(t)
			ctx := context.Background()
			entries := repository.NewLedgerRepository(db)

			for i, delta := range []int64{10, -4, 7} {
				e := &domain.LedgerEntry{
					ID:            uuid.New(),
					Timestamp:     testutil.Epoch.Add(time.Duration(i) * time.Minute),
					Email:         "ann@example.org",
					Delta:         delta,
					Note:          "n",
					BalanceBefore: 0,
					Processed:     true,
				}
				require.NoError(t, entries.Append(ctx, db.Conn(), e))
			}

			got, err := entries.ListByEmail(ctx, db.Conn(), "ann@example.org", 2)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, int64(7), got[0].Delta)
			assert.Equal(t, int64(-4), got[1].Delta)
			assert.Equal(t, domain.EntryTypeDebit, got[1].Type())
		})
	}
}

func TestCausaRoundTrip(t *testing.T) {
	for name, setup := range backends(t) {
		t.Run(name, func(t *testing.T) {
			db := setup(t)
			ctx := context.Background()
			causae := repository.NewCausaRepository(db)

			c := &domain.Causa{
				Title:       "Rain tomorrow",
				Options:     []string{"yes", "no"},
				Creator:     "ann@example.org",
				Status:      domain.CausaStatusOpen,
				ClosingDate: time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
				MinWager:    2,
				CreatedAt:   testutil.Epoch,
			}
			require.NoError(t, causae.Create(ctx, db.Conn(), c))
			assert.Positive(t, c.ID)

			stale := *c
			c.Votes = append(c.Votes, domain.Vote{Email: "bob@example.org", OptionIndex: 1, Wager: 5})
			c.TotalPot = 5
			require.NoError(t, causae.Update(ctx, db.Conn(), c))

			stale.Status = domain.CausaStatusResolved
			assert.ErrorIs(t, causae.Update(ctx, db.Conn(), &stale), domain.ErrVersionConflict)

			got, err := causae.Get(ctx, db.Conn(), c.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{"yes", "no"}, got.Options)
			assert.Equal(t, c.Votes, got.Votes)
			assert.Equal(t, int64(5), got.TotalPot)
			assert.True(t, got.ClosingDate.Equal(c.ClosingDate))

			open, err := causae.ListByStatus(ctx, db.Conn(), domain.CausaStatusOpen)
			require.NoError(t, err)
			assert.Len(t, open, 1)

			_, err = causae.Get(ctx, db.Conn(), c.ID+100)
			assert.ErrorIs(t, err, domain.ErrCausaNotFound)
		})
	}
}

func TestCommissioRoundTrip(t *testing.T) {
	for name, setup := range backends(t) {
		t.Run(name, func(t *testing.T) {
			db := setup(t)
			ctx := context.Background()
			commissiones := repository.NewCommissioRepository(db)

			c := &domain.Commissio{
				Title:     "Fix the gate",
				Creator:   "ann@example.org",
				Reward:    10,
				Expiry:    time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
				Status:    domain.CommissioStatusOpen,
				CreatedAt: testutil.Epoch,
			}
			require.NoError(t, commissiones.Create(ctx, db.Conn(), c))

			done := testutil.Epoch.Add(time.Hour)
			c.Status = domain.CommissioStatusCompleted
			c.Assignee = "bob@example.org"
			c.CompletedAt = &done
			require.NoError(t, commissiones.Update(ctx, db.Conn(), c))

			got, err := commissiones.Get(ctx, db.Conn(), c.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.CommissioStatusCompleted, got.Status)
			assert.Equal(t, "bob@example.org", got.Assignee)
			require.NotNil(t, got.CompletedAt)
			assert.True(t, got.CompletedAt.Equal(done))
		})
	}
}

func TestInboxLifecycle(t *testing.T) {
	for name, setup := range backends(t) {
		t.Run(name, func(t *testing.T) {
			db := setup(t)
			ctx := context.Background()
			inbox := repository.NewInboxRepository(db)

			m := testutil.NewMessage("ann@example.org", "QUOT")
			require.NoError(t, inbox.Create(ctx, m))

			dup := testutil.NewMessage("ann@example.org", "QUOT")
			dup.MessageID = m.MessageID
			assert.ErrorIs(t, inbox.Create(ctx, dup), domain.ErrDuplicateMessage)

			pending, err := inbox.GetPending(ctx, 10)
			require.NoError(t, err)
			require.Len(t, pending, 1)
			assert.Nil(t, pending[0].Reply)

			require.NoError(t, inbox.Claim(ctx, m.ID, testutil.Epoch))
			assert.ErrorIs(t, inbox.Claim(ctx, m.ID, testutil.Epoch), domain.ErrMessageNotClaimed)

			require.NoError(t, inbox.Release(ctx, m.ID))
			require.NoError(t, inbox.Claim(ctx, m.ID, testutil.Epoch))

			out := domain.Reply{OK: true, Subject: "Balance", Body: "ann@example.org: 0"}
			require.NoError(t, inbox.Complete(ctx, m.ID, domain.MessageStatusProcessed, out, testutil.Epoch))

			got, err := inbox.GetByMessageID(ctx, m.MessageID)
			require.NoError(t, err)
			assert.Equal(t, domain.MessageStatusProcessed, got.Status)
			assert.Equal(t, 2, got.Attempts)
			require.NotNil(t, got.Reply)
			assert.Equal(t, out, *got.Reply)

			_, err = inbox.GetByMessageID(ctx, "<missing@test>")
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestInTxRetriesVersionConflicts(t *testing.T) {
	db := testutil.SetupSQLite(t)
	ctx := context.Background()

	calls := 0
	err := db.InTx(ctx, func(*sql.Tx) error {
		calls++
		if calls < 3 {
			return domain.ErrVersionConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = db.InTx(ctx, func(*sql.Tx) error {
		calls++
		return domain.ErrInsufficientFunds
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, 1, calls, "other errors are not retried")
}

func TestInboxReclaimStale(t *testing.T) {
	for name, setup := range backends(t) {
		t.Run(name, func(t *testing.T) {
			db := setup(t)
			ctx := context.Background()
			inbox := repository.NewInboxRepository(db)

			old := testutil.NewMessage("ann@example.org", "QUOT")
			fresh := testutil.NewMessage("bob@example.org", "QUOT")
			require.NoError(t, inbox.Create(ctx, old))
			require.NoError(t, inbox.Create(ctx, fresh))
			require.NoError(t, inbox.Claim(ctx, old.ID, testutil.Epoch))
			require.NoError(t, inbox.Claim(ctx, fresh.ID, testutil.Epoch.Add(10*time.Minute)))

			n, err := inbox.ReclaimStale(ctx, testutil.Epoch.Add(5*time.Minute))
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)

			pending, err := inbox.GetPending(ctx, 10)
			require.NoError(t, err)
			require.Len(t, pending, 1)
			assert.Equal(t, old.MessageID, pending[0].MessageID)

			n, err = inbox.ReclaimStale(ctx, testutil.Epoch.Add(5*time.Minute))
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}
