package causa_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/civitas/internal/causa"
	"github.com/josh-kwaku/civitas/internal/domain"
	"github.com/josh-kwaku/civitas/internal/ledger"
	"github.com/josh-kwaku/civitas/internal/repository"
	"github.com/josh-kwaku/civitas/internal/testutil"
)

const (
	creator = "host@example.org"
	voterA  = "a@example.org"
	voterB  = "b@example.org"
	voterC  = "c@example.org"
)

type fixture struct {
	db     *repository.DB
	engine *causa.Engine
	now    *time.Time
}

func setup(t *testing.T, opts ...causa.Option) *fixture {
	t.Helper()
	db := testutil.SetupSQLite(t)
	now := testutil.Epoch
	clock := testutil.Clock(&now)

	store := ledger.NewStore(db, ledger.WithClock(clock))
	opts = append([]causa.Option{causa.WithClock(clock)}, opts...)
	return &fixture{db: db, engine: causa.NewEngine(store, opts...), now: &now}
}

func (f *fixture) pizza(t *testing.T) *domain.Causa {
	t.Helper()
	c, err := f.engine.Create(context.Background(), causa.CreateParams{
		Creator:  creator,
		Title:    "Pizza",
		Options:  []string{"Pepperoni", "Mushroom"},
		MinWager: 5,
	})
	require.NoError(t, err)
	return c
}

func TestScenarioA(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	for _, e := range []string{voterA, voterB, voterC} {
		testutil.SeedAccount(t, f.db, e, 100)
	}
	c := f.pizza(t)
	assert.True(t, c.ClosingDate.Equal(time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)), "default close is seven days out")

	_, err := f.engine.Vote(ctx, voterA, c.ID, 0, 10)
	require.NoError(t, err)
	_, err = f.engine.Vote(ctx, voterB, c.ID, 0, 20)
	require.NoError(t, err)
	got, err := f.engine.Vote(ctx, voterC, c.ID, 1, 15)
	require.NoError(t, err)
	assert.Equal(t, int64(45), got.TotalPot)

	res, err := f.engine.Resolve(ctx, creator, c.ID, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(45), res.Pot)
	assert.Equal(t, 2, res.WinnersCount)
	assert.Equal(t, int64(45), res.Distributed)
	assert.Zero(t, res.Dust)
	assert.Equal(t, int64(100-10+15), testutil.Balance(t, f.db, voterA))
	assert.Equal(t, int64(100-20+30), testutil.Balance(t, f.db, voterB))
	assert.Equal(t, int64(100-15), testutil.Balance(t, f.db, voterC))
	assert.Equal(t, int64(300), testutil.TotalBalance(t, f.db))

	stored, err := f.engine.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CausaStatusResolved, stored.Status)
	assert.NotEmpty(t, stored.Notes)
}

func TestScenarioB(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	c := f.pizza(t)

	_, err := f.engine.Vote(ctx, voterA, c.ID, 0, 7)
	require.NoError(t, err)
	_, err = f.engine.Vote(ctx, voterB, c.ID, 0, 8)
	require.NoError(t, err)
	_, err = f.engine.Vote(ctx, voterC, c.ID, 1, 15)
	require.NoError(t, err)

	res, err := f.engine.Resolve(ctx, creator, c.ID, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(30), res.Pot)
	assert.Equal(t, int64(30), res.Distributed)
	assert.Equal(t, int64(-7+14), testutil.Balance(t, f.db, voterA))
	assert.Equal(t, int64(-8+16), testutil.Balance(t, f.db, voterB))
	assert.Equal(t, int64(-15), testutil.Balance(t, f.db, voterC))
	assert.Zero(t, testutil.TotalBalance(t, f.db))
}

func TestPotMatchesWagersBeforeResolution(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	c := f.pizza(t)

	wagers := []struct {
		email  string
		option int
		amount int64
	}{
		{voterA, 0, 5}, {voterB, 1, 9}, {voterA, 1, 6}, {voterC, 0, 12},
	}
	for _, w := range wagers {
		got, err := f.engine.Vote(ctx, w.email, c.ID, w.option, w.amount)
		require.NoError(t, err)

		var sum int64
		for _, v := range got.Votes {
			sum += v.Wager
		}
		assert.Equal(t, sum, got.TotalPot)
	}
}

func TestVoteRejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		prepare  func(t *testing.T, f *fixture, id int64)
		option   int
		wager    int64
		wantErr  error
		category error
	}{
		{name: "unknown causa", option: 0, wager: 5, wantErr: domain.ErrCausaNotFound, category: domain.ErrNotFound},
		{name: "option negative", option: -1, wager: 5, wantErr: domain.ErrOptionOutOfRange, category: domain.ErrValidation},
		{name: "option past end", option: 2, wager: 5, wantErr: domain.ErrOptionOutOfRange, category: domain.ErrValidation},
		{name: "below minimum", option: 0, wager: 4, wantErr: domain.ErrWagerTooSmall, category: domain.ErrValidation},
		{
			name: "after closing day",
			prepare: func(_ *testing.T, f *fixture, _ int64) {
				*f.now = f.now.AddDate(0, 0, 8)
			},
			option: 0, wager: 5, wantErr: domain.ErrCausaClosed, category: domain.ErrState,
		},
		{
			name: "resolved",
			prepare: func(t *testing.T, f *fixture, id int64) {
				_, err := f.engine.Resolve(ctx, creator, id, 0)
				require.NoError(t, err)
			},
			option: 0, wager: 5, wantErr: domain.ErrCausaNotOpen, category: domain.ErrState,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := setup(t)
			c := f.pizza(t)
			id := c.ID
			if tc.wantErr == domain.ErrCausaNotFound {
				id = c.ID + 100
			}
			if tc.prepare != nil {
				tc.prepare(t, f, id)
			}

			_, err := f.engine.Vote(ctx, voterA, id, tc.option, tc.wager)
			require.ErrorIs(t, err, tc.wantErr)
			assert.ErrorIs(t, err, tc.category)

			_, err = ledger.NewStore(f.db).GetBalance(ctx, voterA)
			assert.ErrorIs(t, err, domain.ErrNotFound, "rejected vote must not debit")
		})
	}
}

func TestVoteOnClosingDayAccepted(t *testing.T) {
	f := setup(t)
	c := f.pizza(t)
	*f.now = domain.EndOfDay(c.ClosingDate).Add(-time.Minute)

	_, err := f.engine.Vote(context.Background(), voterA, c.ID, 1, 5)
	assert.NoError(t, err)
}

func TestRepeatVotes(t *testing.T) {
	ctx := context.Background()

	t.Run("permissive by default", func(t *testing.T) {
		f := setup(t)
		c := f.pizza(t)
		_, err := f.engine.Vote(ctx, voterA, c.ID, 0, 5)
		require.NoError(t, err)
		got, err := f.engine.Vote(ctx, voterA, c.ID, 1, 5)
		require.NoError(t, err)
		assert.Len(t, got.Votes, 2)
	})

	t.Run("one vote enforced", func(t *testing.T) {
		f := setup(t, causa.WithOneVotePerUser(true))
		c := f.pizza(t)
		_, err := f.engine.Vote(ctx, voterA, c.ID, 0, 5)
		require.NoError(t, err)
		_, err = f.engine.Vote(ctx, voterA, c.ID, 1, 5)
		require.ErrorIs(t, err, domain.ErrAlreadyVoted)
		assert.Equal(t, int64(-5), testutil.Balance(t, f.db, voterA))
	})
}

func TestResolveRejections(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	c := f.pizza(t)

	_, err := f.engine.Resolve(ctx, voterA, c.ID, 0)
	require.ErrorIs(t, err, domain.ErrAuth)

	_, err = f.engine.Resolve(ctx, creator, c.ID, 5)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.engine.Resolve(ctx, creator, c.ID+1, 0)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.engine.Resolve(ctx, creator, c.ID, 0)
	require.NoError(t, err)
	_, err = f.engine.Resolve(ctx, creator, c.ID, 0)
	require.ErrorIs(t, err, domain.ErrState)
}

func TestResolveWithoutWinnersPaysCreator(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	c := f.pizza(t)

	_, err := f.engine.Vote(ctx, voterA, c.ID, 1, 6)
	require.NoError(t, err)
	_, err = f.engine.Vote(ctx, voterB, c.ID, 1, 9)
	require.NoError(t, err)

	res, err := f.engine.Resolve(ctx, creator, c.ID, 0)
	require.NoError(t, err)
	assert.Zero(t, res.WinnersCount)
	assert.Equal(t, int64(15), testutil.Balance(t, f.db, creator))
}

func TestDustPolicy(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		policy      causa.DustPolicy
		wantCreator int64
		wantTotal   int64
	}{
		{name: "stranded", policy: causa.DustStrand, wantCreator: 0, wantTotal: -2},
		{name: "to creator", policy: causa.DustCreator, wantCreator: 2, wantTotal: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := setup(t, causa.WithDustPolicy(tc.policy))
			testutil.SeedAccount(t, f.db, creator, 0)
			c := f.pizza(t)

			for _, e := range []string{voterA, voterB, voterC} {
				_, err := f.engine.Vote(ctx, e, c.ID, 0, 5)
				require.NoError(t, err)
			}
			_, err := f.engine.Vote(ctx, "d@example.org", c.ID, 1, 5)
			require.NoError(t, err)

			res, err := f.engine.Resolve(ctx, creator, c.ID, 0)
			require.NoError(t, err)

			assert.Equal(t, int64(20), res.Pot)
			assert.Equal(t, int64(18), res.Distributed)
			assert.Equal(t, int64(2), res.Dust)
			assert.Equal(t, tc.wantCreator, testutil.Balance(t, f.db, creator))
			assert.Equal(t, tc.wantTotal, testutil.TotalBalance(t, f.db))
		})
	}
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	tests := []struct {
		name    string
		params  causa.CreateParams
		wantErr error
	}{
		{name: "empty title", params: causa.CreateParams{Creator: creator, Title: "  ", Options: []string{"a"}}, wantErr: domain.ErrEmptyTitle},
		{name: "no options", params: causa.CreateParams{Creator: creator, Title: "t", Options: []string{" "}}, wantErr: domain.ErrNoOptions},
		{name: "past close", params: causa.CreateParams{Creator: creator, Title: "t", Options: []string{"a"}, ClosingDate: testutil.Epoch.AddDate(0, 0, -1)}, wantErr: domain.ErrInvalidDate},
		{name: "bad creator", params: causa.CreateParams{Creator: "nobody", Title: "t", Options: []string{"a"}}, wantErr: domain.ErrInvalidEmail},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Create(ctx, tc.params)
			require.ErrorIs(t, err, tc.wantErr)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestCreateAssignsMonotonicIDsAndListsInOrder(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	first := f.pizza(t)
	second := f.pizza(t)
	third := f.pizza(t)
	assert.Less(t, first.ID, second.ID)
	assert.Less(t, second.ID, third.ID)
	assert.Equal(t, int64(5), first.MinWager)

	_, err := f.engine.Resolve(ctx, creator, second.ID, 0)
	require.NoError(t, err)

	active, err := f.engine.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)
	assert.Equal(t, third.ID, active[1].ID)
}

func TestCreateHasNoBalanceEffect(t *testing.T) {
	f := setup(t)
	f.pizza(t)
	assert.Zero(t, testutil.TotalBalance(t, f.db))
}

func TestCreateRejectsClosingDateBeforeToday(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	params := causa.CreateParams{Creator: creator, Title: "Lunch", Options: []string{"Tacos"}}

	params.ClosingDate = time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	_, err := f.engine.Create(ctx, params)
	require.ErrorIs(t, err, domain.ErrInvalidDate)

	params.ClosingDate = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c, err := f.engine.Create(ctx, params)
	require.NoError(t, err, "today is still a valid closing date")
	assert.True(t, c.ClosingDate.Equal(params.ClosingDate))
}
