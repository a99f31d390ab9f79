package causa

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/josh-kwaku/civitas/internal/domain"
)

func TestComputePayouts(t *testing.T) {
	tests := []struct {
		name      string
		votes     []domain.Vote
		winning   int
		pot       int64
		want      map[string]int64
		wantDust  int64
		noWinners bool
	}{
		{
			name: "even split",
			votes: []domain.Vote{
				{Email: "a", OptionIndex: 0, Wager: 10},
				{Email: "b", OptionIndex: 0, Wager: 20},
				{Email: "c", OptionIndex: 1, Wager: 15},
			},
			pot:  45,
			want: map[string]int64{"a": 15, "b": 30},
		},
		{
			name: "floored with dust",
			votes: []domain.Vote{
				{Email: "a", OptionIndex: 1, Wager: 1},
				{Email: "b", OptionIndex: 1, Wager: 1},
				{Email: "c", OptionIndex: 1, Wager: 1},
				{Email: "d", OptionIndex: 0, Wager: 7},
			},
			winning:  1,
			pot:      10,
			want:     map[string]int64{"a": 3, "b": 3, "c": 3},
			wantDust: 1,
		},
		{
			name: "repeat voter aggregated",
			votes: []domain.Vote{
				{Email: "a", OptionIndex: 0, Wager: 2},
				{Email: "a", OptionIndex: 0, Wager: 3},
				{Email: "b", OptionIndex: 1, Wager: 5},
			},
			pot:  10,
			want: map[string]int64{"a": 10},
		},
		{
			name: "repeat voter floored per vote",
			votes: []domain.Vote{
				{Email: "a", OptionIndex: 0, Wager: 1},
				{Email: "a", OptionIndex: 0, Wager: 1},
				{Email: "b", OptionIndex: 0, Wager: 2},
				{Email: "c", OptionIndex: 1, Wager: 2},
			},
			pot:      3,
			want:     map[string]int64{"a": 0, "b": 1},
			wantDust: 2,
		},
		{
			name:      "no winners",
			votes:     []domain.Vote{{Email: "a", OptionIndex: 1, Wager: 4}},
			pot:       4,
			noWinners: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payouts, dust := ComputePayouts(tc.votes, tc.winning, tc.pot)
			if tc.noWinners {
				assert.Empty(t, payouts)
				assert.Zero(t, dust)
				return
			}

			got := map[string]int64{}
			var paid int64
			for _, p := range payouts {
				got[p.Email] = p.Amount
				paid += p.Amount
			}
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantDust, dust)
			assert.Equal(t, tc.pot, paid+dust)
		})
	}
}

func TestComputePayoutsNeverOverpays(t *testing.T) {
	for pot := int64(1); pot <= 60; pot++ {
		for a := int64(1); a <= 9; a++ {
			for b := int64(1); b <= 9; b++ {
				votes := []domain.Vote{
					{Email: "a", OptionIndex: 0, Wager: a},
					{Email: "b", OptionIndex: 0, Wager: b},
				}
				payouts, dust := ComputePayouts(votes, 0, pot)

				var paid int64
				lossless := true
				for _, p := range payouts {
					paid += p.Amount
					if p.Wager*pot%(a+b) != 0 {
						lossless = false
					}
				}
				assert.LessOrEqual(t, paid, pot)
				assert.Equal(t, lossless, dust == 0, "pot=%d a=%d b=%d", pot, a, b)
			}
		}
	}
}

func TestShares(t *testing.T) {
	c := &domain.Causa{
		Options:  []string{"x", "y", "z"},
		TotalPot: 3,
		Votes: []domain.Vote{
			{Email: "a", OptionIndex: 0, Wager: 1},
			{Email: "b", OptionIndex: 1, Wager: 2},
		},
	}
	got := Shares(c)
	assert.Equal(t, "33.3", got[0].String())
	assert.Equal(t, "66.7", got[1].String())
	assert.Equal(t, "0", got[2].String())
}
