// Package command turns a raw message body into a typed command. Each
// keyword has its own struct carrying validated fields, so nothing past
// this package handles free text.
package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/josh-kwaku/civitas/internal/domain"
)

type Kind string

const (
	KindTransfer         Kind = "TRANSFER"
	KindCausa            Kind = "CAUSA"
	KindVote             Kind = "VOTE"
	KindResolve          Kind = "RESOLVE"
	KindCommissio        Kind = "COMMISSIO"
	KindAccept           Kind = "ACCEPT"
	KindComplete         Kind = "COMPLETE"
	KindBalance          Kind = "QUOT"
	KindHelp             Kind = "HELP"
	KindListCausae       Kind = "CAUSAE"
	KindListCommissiones Kind = "COMMISSIONES"
)

var kinds = []Kind{
	KindTransfer, KindCausa, KindVote, KindResolve, KindCommissio,
	KindAccept, KindComplete, KindBalance, KindHelp,
	KindListCausae, KindListCommissiones,
}

func (k Kind) known() bool {
	for _, c := range kinds {
		if c == k {
			return true
		}
	}
	return false
}

type Command interface {
	Kind() Kind
}

type Transfer struct {
	To     string
	Amount int64
}

type CreateCausa struct {
	Title   string
	Options []string
	// ClosingDate and MinWager are zero when the message omits them.
	ClosingDate time.Time
	MinWager    int64
}

type Vote struct {
	CausaID     int64
	OptionIndex int
	Wager       int64
}

type Resolve struct {
	CausaID       int64
	WinningOption int
}

type CreateCommissio struct {
	Title  string
	Reward int64
	Expiry time.Time
}

type Accept struct {
	CommissioID int64
}

type Complete struct {
	CommissioID int64
}

type Balance struct{}

type Help struct{}

type ListCausae struct{}

type ListCommissiones struct{}

func (Transfer) Kind() Kind         { return KindTransfer }
func (CreateCausa) Kind() Kind      { return KindCausa }
func (Vote) Kind() Kind             { return KindVote }
func (Resolve) Kind() Kind          { return KindResolve }
func (CreateCommissio) Kind() Kind  { return KindCommissio }
func (Accept) Kind() Kind           { return KindAccept }
func (Complete) Kind() Kind         { return KindComplete }
func (Balance) Kind() Kind          { return KindBalance }
func (Help) Kind() Kind             { return KindHelp }
func (ListCausae) Kind() Kind       { return KindListCausae }
func (ListCommissiones) Kind() Kind { return KindListCommissiones }

// message is a body reduced to its keyword, the rest of the keyword line
// and the lines that follow it.
type message struct {
	keyword string
	args    string
	lines   []string
}

// split drops leading blank lines and everything from the first quoted
// reply marker onwards.
func split(body string) (message, bool) {
	var m message
	found := false
	for _, line := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if isQuoteMarker(line) {
			break
		}
		if !found {
			if line == "" {
				continue
			}
			found = true
			word, rest, _ := strings.Cut(line, " ")
			m.keyword = strings.ToUpper(word)
			m.args = strings.TrimSpace(rest)
			continue
		}
		if line != "" {
			m.lines = append(m.lines, line)
		}
	}
	return m, found
}

func isQuoteMarker(line string) bool {
	if strings.HasPrefix(line, ">") {
		return true
	}
	return strings.HasPrefix(line, "On ") && strings.HasSuffix(line, "wrote:")
}

// Identify returns the canonical kind of the message's keyword.
func Identify(body string) (Kind, bool) {
	m, ok := split(body)
	if !ok {
		return "", false
	}
	k, ok := aliases[m.keyword]
	return k, ok
}

// Parse identifies the keyword and parses the matching command.
func Parse(body string) (Command, error) {
	k, ok := Identify(body)
	if !ok {
		return nil, fmt.Errorf("Parse: unrecognized keyword: %w", domain.ErrMalformedCommand)
	}
	return parsers[k](body)
}

var parsers = map[Kind]func(string) (Command, error){
	KindTransfer:         func(b string) (Command, error) { return ParseTransfer(b) },
	KindCausa:            func(b string) (Command, error) { return ParseCausa(b) },
	KindVote:             func(b string) (Command, error) { return ParseVote(b) },
	KindResolve:          func(b string) (Command, error) { return ParseResolve(b) },
	KindCommissio:        func(b string) (Command, error) { return ParseCommissio(b) },
	KindAccept:           func(b string) (Command, error) { return ParseAccept(b) },
	KindComplete:         func(b string) (Command, error) { return ParseComplete(b) },
	KindBalance:          func(string) (Command, error) { return Balance{}, nil },
	KindHelp:             func(string) (Command, error) { return Help{}, nil },
	KindListCausae:       func(string) (Command, error) { return ListCausae{}, nil },
	KindListCommissiones: func(string) (Command, error) { return ListCommissiones{}, nil },
}

// ParseTransfer reads To: and Amount: fields in any order, from the
// keyword line or the lines after it.
func ParseTransfer(body string) (Transfer, error) {
	m, _ := split(body)
	fields := map[string]string{}
	for _, line := range append([]string{m.args}, m.lines...) {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(val)
	}

	to, ok := fields["to"]
	if !ok || to == "" {
		return Transfer{}, fmt.Errorf("ParseTransfer: missing To: %w", domain.ErrMalformedCommand)
	}
	email, err := domain.NormalizeEmail(to)
	if err != nil {
		return Transfer{}, fmt.Errorf("ParseTransfer: recipient: %w", err)
	}
	raw, ok := fields["amount"]
	if !ok || raw == "" {
		return Transfer{}, fmt.Errorf("ParseTransfer: missing Amount: %w", domain.ErrMalformedCommand)
	}
	amount, err := positive("Amount", raw)
	if err != nil {
		return Transfer{}, fmt.Errorf("ParseTransfer: %w", err)
	}
	return Transfer{To: email, Amount: amount}, nil
}

func ParseCausa(body string) (CreateCausa, error) {
	m, _ := split(body)
	segs := segments(m.args)
	if len(segs) == 0 || segs[0] == "" {
		return CreateCausa{}, fmt.Errorf("ParseCausa: title: %w", domain.ErrEmptyTitle)
	}

	c := CreateCausa{Title: segs[0]}
	for _, seg := range segs[1:] {
		word, rest, _ := strings.Cut(seg, " ")
		switch strings.ToUpper(word) {
		case "CLOSE":
			d, err := date("CLOSE", rest)
			if err != nil {
				return CreateCausa{}, fmt.Errorf("ParseCausa: %w", err)
			}
			c.ClosingDate = d
		case "MIN":
			n, err := positive("MIN", rest)
			if err != nil {
				return CreateCausa{}, fmt.Errorf("ParseCausa: %w", err)
			}
			c.MinWager = n
		default:
			if seg != "" {
				c.Options = append(c.Options, seg)
			}
		}
	}
	if len(c.Options) == 0 {
		return CreateCausa{}, fmt.Errorf("ParseCausa: options: %w", domain.ErrNoOptions)
	}
	return c, nil
}

func ParseVote(body string) (Vote, error) {
	m, _ := split(body)
	f := strings.Fields(m.args)
	if len(f) != 3 {
		return Vote{}, fmt.Errorf("ParseVote: want <causaId> <optionIndex> <wager>: %w", domain.ErrMalformedCommand)
	}
	id, err := identifier("causaId", f[0])
	if err != nil {
		return Vote{}, fmt.Errorf("ParseVote: %w", err)
	}
	opt, err := index("optionIndex", f[1])
	if err != nil {
		return Vote{}, fmt.Errorf("ParseVote: %w", err)
	}
	wager, err := positive("wager", f[2])
	if err != nil {
		return Vote{}, fmt.Errorf("ParseVote: %w", err)
	}
	return Vote{CausaID: id, OptionIndex: opt, Wager: wager}, nil
}

func ParseResolve(body string) (Resolve, error) {
	m, _ := split(body)
	f := strings.Fields(m.args)
	if len(f) != 2 {
		return Resolve{}, fmt.Errorf("ParseResolve: want <causaId> <winningOptionIndex>: %w", domain.ErrMalformedCommand)
	}
	id, err := identifier("causaId", f[0])
	if err != nil {
		return Resolve{}, fmt.Errorf("ParseResolve: %w", err)
	}
	opt, err := index("winningOptionIndex", f[1])
	if err != nil {
		return Resolve{}, fmt.Errorf("ParseResolve: %w", err)
	}
	return Resolve{CausaID: id, WinningOption: opt}, nil
}

func ParseCommissio(body string) (CreateCommissio, error) {
	m, _ := split(body)
	segs := segments(m.args)
	if len(segs) == 0 || segs[0] == "" {
		return CreateCommissio{}, fmt.Errorf("ParseCommissio: title: %w", domain.ErrEmptyTitle)
	}

	c := CreateCommissio{Title: segs[0]}
	for _, seg := range segs[1:] {
		word, rest, _ := strings.Cut(seg, " ")
		switch strings.ToUpper(word) {
		case "REWARD":
			n, err := positive("REWARD", rest)
			if err != nil {
				return CreateCommissio{}, fmt.Errorf("ParseCommissio: %w", err)
			}
			c.Reward = n
		case "EXPIRES":
			d, err := date("EXPIRES", rest)
			if err != nil {
				return CreateCommissio{}, fmt.Errorf("ParseCommissio: %w", err)
			}
			c.Expiry = d
		default:
			return CreateCommissio{}, fmt.Errorf("ParseCommissio: unexpected segment %q: %w", seg, domain.ErrMalformedCommand)
		}
	}
	return c, nil
}

func ParseAccept(body string) (Accept, error) {
	id, err := singleID(body)
	if err != nil {
		return Accept{}, fmt.Errorf("ParseAccept: %w", err)
	}
	return Accept{CommissioID: id}, nil
}

func ParseComplete(body string) (Complete, error) {
	id, err := singleID(body)
	if err != nil {
		return Complete{}, fmt.Errorf("ParseComplete: %w", err)
	}
	return Complete{CommissioID: id}, nil
}

func singleID(body string) (int64, error) {
	m, _ := split(body)
	f := strings.Fields(m.args)
	if len(f) != 1 {
		return 0, fmt.Errorf("want <commissioId>: %w", domain.ErrMalformedCommand)
	}
	return identifier("commissioId", f[0])
}

func segments(args string) []string {
	if strings.TrimSpace(args) == "" {
		return nil
	}
	parts := strings.Split(args, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func identifier(field, s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s %q: %w", field, s, domain.ErrMalformedCommand)
	}
	return n, nil
}

func index(field, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", field, s, domain.ErrMalformedCommand)
	}
	return n, nil
}

func positive(field, s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s %q: %w", field, s, domain.ErrInvalidAmount)
	}
	return n, nil
}

func date(field, s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s %q: %w", field, s, domain.ErrInvalidDate)
	}
	return d, nil
}
