package domain

import (
	"time"

	"github.com/google/uuid"
)

type EntryType string

const (
	EntryTypeDebit  EntryType = "debit"
	EntryTypeCredit EntryType = "credit"
)

// LedgerEntry is one append-only audit row. Delta is signed: negative for
// debits, positive for credits.
type LedgerEntry struct {
	ID            uuid.UUID
	Timestamp     time.Time
	Email         string
	Delta         int64
	Note          string
	BalanceBefore int64
	Processed     bool
}

func (e LedgerEntry) Type() EntryType {
	if e.Delta < 0 {
		return EntryTypeDebit
	}
	return EntryTypeCredit
}

func (e LedgerEntry) BalanceAfter() int64 {
	return e.BalanceBefore + e.Delta
}
