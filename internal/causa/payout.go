package causa

import (
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/civitas/internal/domain"
)

type Payout struct {
	Email  string
	Wager  int64
	Amount int64
}

// ComputePayouts splits pot between the winning votes in proportion to
// their wagers. Each vote's share is floored on its own, then shares are
// merged per email for crediting. The undistributed remainder is returned
// as dust. With no winning wagers the result is empty and dust is zero:
// the caller decides where an unclaimed pot goes.
func ComputePayouts(votes []domain.Vote, winning int, pot int64) ([]Payout, int64) {
	var total int64
	for _, v := range votes {
		if v.OptionIndex == winning {
			total += v.Wager
		}
	}
	if total == 0 {
		return nil, 0
	}

	var (
		payouts []Payout
		index   = map[string]int{}
		potD    = decimal.NewFromInt(pot)
		totalD  = decimal.NewFromInt(total)
		paid    int64
	)
	for _, v := range votes {
		if v.OptionIndex != winning {
			continue
		}
		share, _ := decimal.NewFromInt(v.Wager).Mul(potD).QuoRem(totalD, 0)

		i, ok := index[v.Email]
		if !ok {
			i = len(payouts)
			index[v.Email] = i
			payouts = append(payouts, Payout{Email: v.Email})
		}
		payouts[i].Wager += v.Wager
		payouts[i].Amount += share.IntPart()
		paid += share.IntPart()
	}
	return payouts, pot - paid
}

// Shares returns each option's fraction of the pot as a percentage rounded
// to one decimal place.
func Shares(c *domain.Causa) []decimal.Decimal {
	pools := c.OptionPools()
	out := make([]decimal.Decimal, len(pools))
	if c.TotalPot == 0 {
		for i := range out {
			out[i] = decimal.Zero
		}
		return out
	}
	pot := decimal.NewFromInt(c.TotalPot)
	hundred := decimal.NewFromInt(100)
	for i, p := range pools {
		out[i] = decimal.NewFromInt(p).Mul(hundred).DivRound(pot, 1)
	}
	return out
}
