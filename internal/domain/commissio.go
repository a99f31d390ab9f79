package domain

import "time"

type CommissioStatus string

const (
	CommissioStatusOpen      CommissioStatus = "OPEN"
	CommissioStatusAssigned  CommissioStatus = "ASSIGNED"
	CommissioStatusCompleted CommissioStatus = "COMPLETED"
	CommissioStatusExpired   CommissioStatus = "EXPIRED"
)

// Commissio is an escrowed bounty. Reward left the creator's balance when
// the record was created.
type Commissio struct {
	ID          int64
	Title       string
	Creator     string
	Reward      int64
	Expiry      time.Time
	Status      CommissioStatus
	Assignee    string
	CreatedAt   time.Time
	CompletedAt *time.Time
	Notes       string
	Version     int64
}

// ExpiredAt reports whether an OPEN commissio is past its expiry day.
func (c *Commissio) ExpiredAt(now time.Time) bool {
	return c.Status == CommissioStatusOpen && now.UTC().After(EndOfDay(c.Expiry))
}
