// Package reply renders command outcomes as plain-text replies.
package reply

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/josh-kwaku/civitas/internal/causa"
	"github.com/josh-kwaku/civitas/internal/domain"
)

const (
	CodeValidation   = "VALIDATION_FAILED"
	CodeState        = "INVALID_STATE"
	CodeAuth         = "NOT_AUTHORIZED"
	CodeFunds        = "INSUFFICIENT_FUNDS"
	CodeNotFound     = "NOT_FOUND"
	CodeUnrecognized = "UNRECOGNIZED"
	CodeInternal     = "INTERNAL_ERROR"
)

// Code classifies err by its domain category.
func Code(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return CodeValidation
	case errors.Is(err, domain.ErrState):
		return CodeState
	case errors.Is(err, domain.ErrAuth):
		return CodeAuth
	case errors.Is(err, domain.ErrInsufficientFunds):
		return CodeFunds
	case errors.Is(err, domain.ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}

var methodPrefix = regexp.MustCompile(`^[A-Z][A-Za-z]*: `)

// message strips the "Method: " wrapping added on the way up so the
// reader sees the field and the rule that failed.
func message(err error) string {
	msg := err.Error()
	for {
		loc := methodPrefix.FindStringIndex(msg)
		if loc == nil {
			return msg
		}
		msg = msg[loc[1]:]
	}
}

// Error renders a failed command. Unclassified errors are logged and
// reported without detail.
func Error(keyword string, err error) domain.Reply {
	code := Code(err)
	body := message(err)
	if code == CodeInternal {
		slog.Error("unhandled command error", "command", keyword, "error", err)
		body = "An unexpected error occurred. Nothing was changed; please try again."
	}
	return domain.Reply{
		OK:      false,
		Code:    code,
		Subject: fmt.Sprintf("%s failed", keyword),
		Body:    body + "\n\nSend HELP for the command list.",
	}
}

func Unrecognized() domain.Reply {
	return domain.Reply{
		OK:      false,
		Code:    CodeUnrecognized,
		Subject: "Unrecognized command",
		Body:    "The first line of your message is not a known command.\n\n" + helpText,
	}
}

func ok(subject, body string) domain.Reply {
	return domain.Reply{OK: true, Subject: subject, Body: body}
}

func Balance(email string, balance int64) domain.Reply {
	return ok("Balance", fmt.Sprintf("Balance for %s: %d", email, balance))
}

func Transfer(to string, amount, balance int64) domain.Reply {
	return ok("Transfer complete",
		fmt.Sprintf("Sent %d to %s.\nYour balance: %d", amount, to, balance))
}

func CausaCreated(c *domain.Causa) domain.Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "Causa #%d created: %s\n", c.ID, c.Title)
	for i, o := range c.Options {
		fmt.Fprintf(&b, "  %d. %s\n", i, o)
	}
	fmt.Fprintf(&b, "Closes: %s\nMinimum wager: %d\n\nVote with: VOTE %d <option> <wager>",
		c.ClosingDate.Format(time.DateOnly), c.MinWager, c.ID)
	return ok(fmt.Sprintf("Causa #%d created", c.ID), b.String())
}

func Voted(c *domain.Causa, option int, wager int64) domain.Reply {
	return ok(fmt.Sprintf("Vote recorded on causa #%d", c.ID),
		fmt.Sprintf("Wagered %d on %q.\nTotal pot: %d", wager, c.Options[option], c.TotalPot))
}

func Resolved(r *causa.Resolution) domain.Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "Winning option: %d. %s\nPot: %d\n", r.WinningOption, r.WinningLabel, r.Pot)
	if r.WinnersCount == 0 {
		b.WriteString("No winning wagers; the pot returned to the creator.\n")
	}
	for _, p := range r.Payouts {
		fmt.Fprintf(&b, "  %s: %d (wagered %d)\n", p.Email, p.Amount, p.Wager)
	}
	if r.Dust > 0 {
		if r.DustTo != "" {
			fmt.Fprintf(&b, "Rounding remainder of %d credited to %s.\n", r.Dust, r.DustTo)
		} else {
			fmt.Fprintf(&b, "Rounding remainder of %d was not distributed.\n", r.Dust)
		}
	}
	return ok(fmt.Sprintf("Causa #%d resolved", r.CausaID), strings.TrimRight(b.String(), "\n"))
}

func CausaList(list []domain.Causa) domain.Reply {
	if len(list) == 0 {
		return ok("Active causae", "No open causae.")
	}
	var b strings.Builder
	for i := range list {
		c := &list[i]
		shares := causa.Shares(c)
		fmt.Fprintf(&b, "#%d %s (pot %d, closes %s, min %d)\n",
			c.ID, c.Title, c.TotalPot, c.ClosingDate.Format(time.DateOnly), c.MinWager)
		for j, o := range c.Options {
			fmt.Fprintf(&b, "  %d. %s %s%%\n", j, o, shares[j].StringFixed(1))
		}
	}
	return ok("Active causae", strings.TrimRight(b.String(), "\n"))
}

func CommissioCreated(c *domain.Commissio, balance int64) domain.Reply {
	return ok(fmt.Sprintf("Commissio #%d created", c.ID),
		fmt.Sprintf("%s\nReward %d held in escrow until %s.\nYour balance: %d\n\nAccept with: ACCEPT %d",
			c.Title, c.Reward, c.Expiry.Format(time.DateOnly), balance, c.ID))
}

func Accepted(c *domain.Commissio) domain.Reply {
	return ok(fmt.Sprintf("Commissio #%d accepted", c.ID),
		fmt.Sprintf("%s is now assigned to you.\nSend COMPLETE %d when done to collect %d.", c.Title, c.ID, c.Reward))
}

func Completed(id, reward, balance int64) domain.Reply {
	return ok(fmt.Sprintf("Commissio #%d completed", id),
		fmt.Sprintf("Reward of %d credited.\nYour balance: %d", reward, balance))
}

func CommissioList(list []domain.Commissio) domain.Reply {
	if len(list) == 0 {
		return ok("Active commissiones", "No open or assigned commissiones.")
	}
	var b strings.Builder
	for _, c := range list {
		fmt.Fprintf(&b, "#%d %s (reward %d, %s", c.ID, c.Title, c.Reward, strings.ToLower(string(c.Status)))
		if c.Assignee != "" {
			fmt.Fprintf(&b, " by %s", c.Assignee)
		} else {
			fmt.Fprintf(&b, ", expires %s", c.Expiry.Format(time.DateOnly))
		}
		b.WriteString(")\n")
	}
	return ok("Active commissiones", strings.TrimRight(b.String(), "\n"))
}

func Help() domain.Reply {
	return ok("Commands", helpText)
}

const helpText = `Commands (first line of the message, keyword in any case):

TRANSFER
To: <email>
Amount: <n>

CAUSA <title> | <option> | <option> ... [| CLOSE YYYY-MM-DD] [| MIN <n>]
VOTE <causa id> <option number> <wager>
RESOLVE <causa id> <winning option number>
CAUSAE                 list open causae

COMMISSIO <title> [| REWARD <n>] [| EXPIRES YYYY-MM-DD]
ACCEPT <commissio id>
COMPLETE <commissio id>
COMMISSIONES           list open commissiones

QUOT or BALANCE        your balance
HELP or AUXILIUM       this message`
