package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

type Account struct {
	Email       string
	Balance     int64
	Version     int64
	LastUpdated time.Time
}

var emailFolder = cases.Fold()

// NormalizeEmail returns the case-folded bare address used as the account
// key. Display names ("Ann <ann@x.org>") are stripped.
func NormalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("NormalizeEmail: %w", ErrInvalidEmail)
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", fmt.Errorf("NormalizeEmail: %q: %w", raw, ErrInvalidEmail)
	}
	return emailFolder.String(addr.Address), nil
}
