package reply

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/josh-kwaku/civitas/internal/causa"
	"github.com/josh-kwaku/civitas/internal/domain"
)

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: domain.ErrWagerTooSmall, want: CodeValidation},
		{err: domain.ErrMalformedCommand, want: CodeValidation},
		{err: domain.ErrCausaClosed, want: CodeState},
		{err: domain.ErrNotCreator, want: CodeAuth},
		{err: domain.ErrInsufficientFunds, want: CodeFunds},
		{err: domain.ErrCommissioNotFound, want: CodeNotFound},
		{err: fmt.Errorf("Vote: InTx: %w", domain.ErrCausaNotOpen), want: CodeState},
		{err: errors.New("disk on fire"), want: CodeInternal},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Code(tc.err), tc.err.Error())
	}
}

func TestErrorStripsMethodPrefixes(t *testing.T) {
	err := fmt.Errorf("Vote: InTx: %w", fmt.Errorf("wager 2, minimum 5: %w", domain.ErrWagerTooSmall))
	out := Error("VOTE", err)

	assert.False(t, out.OK)
	assert.Equal(t, "VOTE failed", out.Subject)
	assert.Contains(t, out.Body, "wager 2, minimum 5: validation error: wager below minimum")
	assert.NotContains(t, out.Body, "InTx")
}

func TestErrorHidesInternalDetail(t *testing.T) {
	out := Error("QUOT", errors.New("pq: connection refused"))
	assert.Equal(t, CodeInternal, out.Code)
	assert.NotContains(t, out.Body, "pq:")
}

func TestResolvedMentionsDust(t *testing.T) {
	r := &causa.Resolution{
		CausaID: 4, WinningOption: 0, WinningLabel: "Yes", Pot: 10, WinnersCount: 3,
		Payouts: []causa.Payout{{Email: "a@x.org", Wager: 1, Amount: 3}},
		Dust:    1,
	}
	assert.Contains(t, Resolved(r).Body, "remainder of 1 was not distributed")

	r.DustTo = "host@x.org"
	assert.Contains(t, Resolved(r).Body, "credited to host@x.org")
}
