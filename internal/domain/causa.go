package domain

import "time"

type CausaStatus string

const (
	CausaStatusOpen     CausaStatus = "OPEN"
	CausaStatusResolved CausaStatus = "RESOLVED"
)

type Vote struct {
	Email       string `json:"email"`
	OptionIndex int    `json:"option_index"`
	Wager       int64  `json:"wager"`
}

// Causa is a wagering market. TotalPot always equals the sum of the vote
// wagers.
type Causa struct {
	ID          int64
	Title       string
	Options     []string
	Creator     string
	Status      CausaStatus
	TotalPot    int64
	ClosingDate time.Time
	Votes       []Vote
	MinWager    int64
	Notes       string
	Version     int64
	CreatedAt   time.Time
}

// ClosedAt reports whether voting has ended. The closing date is inclusive:
// votes are accepted until the end of that UTC day.
func (c *Causa) ClosedAt(now time.Time) bool {
	return now.UTC().After(EndOfDay(c.ClosingDate))
}

func (c *Causa) ValidOption(idx int) bool {
	return idx >= 0 && idx < len(c.Options)
}

// OptionPools returns the summed wager per option index.
func (c *Causa) OptionPools() []int64 {
	pools := make([]int64, len(c.Options))
	for _, v := range c.Votes {
		if v.OptionIndex >= 0 && v.OptionIndex < len(pools) {
			pools[v.OptionIndex] += v.Wager
		}
	}
	return pools
}

func (c *Causa) HasVoted(email string) bool {
	for _, v := range c.Votes {
		if v.Email == email {
			return true
		}
	}
	return false
}

// EndOfDay returns the last nanosecond of t's UTC calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(24*time.Hour - time.Nanosecond)
}

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
