package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/civitas/internal/domain"
)

func TestIdentify(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Kind
		ok   bool
	}{
		{name: "upper", body: "QUOT", want: KindBalance, ok: true},
		{name: "alias lower", body: "balance", want: KindBalance, ok: true},
		{name: "latin help", body: "auxilium", want: KindHelp, ok: true},
		{name: "leading blank lines", body: "\n\n  vote 1 0 5", want: KindVote, ok: true},
		{name: "crlf", body: "TRANSFER\r\nTo: a@b.c\r\nAmount: 3", want: KindTransfer, ok: true},
		{name: "unknown", body: "DANCE now", ok: false},
		{name: "empty", body: "   \n ", ok: false},
		{name: "only quoted", body: "> CAUSA x | y", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Identify(tc.body)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAliasesCoverEveryKind(t *testing.T) {
	bound := map[Kind]bool{}
	for _, k := range aliases {
		bound[k] = true
	}
	for _, k := range kinds {
		assert.True(t, bound[k], "kind %s has no alias", k)
		assert.Contains(t, parsers, k)
	}
}

func TestLoadAliasesRejectsUnknownKind(t *testing.T) {
	_, err := loadAliases("[keywords]\nDANCE = [\"DANCE\"]\n")
	assert.Error(t, err)
}

func TestParseTransfer(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    Transfer
		wantErr error
	}{
		{name: "canonical", body: "TRANSFER\nTo: Bob@Example.org\nAmount: 25", want: Transfer{To: "bob@example.org", Amount: 25}},
		{name: "any order", body: "transfer\namount: 4\nto: c@example.org", want: Transfer{To: "c@example.org", Amount: 4}},
		{name: "quoted tail ignored", body: "TRANSFER\nTo: d@example.org\nAmount: 1\n\nOn Mon, Bob wrote:\n> Amount: 900", want: Transfer{To: "d@example.org", Amount: 1}},
		{name: "missing to", body: "TRANSFER\nAmount: 5", wantErr: domain.ErrMalformedCommand},
		{name: "bad email", body: "TRANSFER\nTo: bob\nAmount: 5", wantErr: domain.ErrInvalidEmail},
		{name: "zero amount", body: "TRANSFER\nTo: e@example.org\nAmount: 0", wantErr: domain.ErrInvalidAmount},
		{name: "negative amount", body: "TRANSFER\nTo: e@example.org\nAmount: -5", wantErr: domain.ErrInvalidAmount},
		{name: "text amount", body: "TRANSFER\nTo: e@example.org\nAmount: lots", wantErr: domain.ErrInvalidAmount},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTransfer(tc.body)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseCausa(t *testing.T) {
	got, err := ParseCausa("CAUSA Pizza | Pepperoni | Mushroom | CLOSE 2026-04-01 | MIN 5")
	require.NoError(t, err)
	assert.Equal(t, "Pizza", got.Title)
	assert.Equal(t, []string{"Pepperoni", "Mushroom"}, got.Options)
	assert.True(t, got.ClosingDate.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, int64(5), got.MinWager)

	got, err = ParseCausa("causa Lunch | Tacos")
	require.NoError(t, err)
	assert.True(t, got.ClosingDate.IsZero())
	assert.Zero(t, got.MinWager)

	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "no title", body: "CAUSA", wantErr: domain.ErrEmptyTitle},
		{name: "no options", body: "CAUSA Lonely", wantErr: domain.ErrNoOptions},
		{name: "bad date", body: "CAUSA T | a | CLOSE 01/04/2026", wantErr: domain.ErrInvalidDate},
		{name: "bad min", body: "CAUSA T | a | MIN zero", wantErr: domain.ErrInvalidAmount},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCausa(tc.body)
			require.ErrorIs(t, err, tc.wantErr)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestParseVoteAndResolve(t *testing.T) {
	v, err := ParseVote("VOTE #3 1 20")
	require.NoError(t, err)
	assert.Equal(t, Vote{CausaID: 3, OptionIndex: 1, Wager: 20}, v)

	r, err := ParseResolve("resolve 3 0")
	require.NoError(t, err)
	assert.Equal(t, Resolve{CausaID: 3, WinningOption: 0}, r)

	bad := []string{"VOTE 3 1", "VOTE x 1 2", "VOTE 3 one 2", "VOTE 3 1 0", "VOTE 0 1 2"}
	for _, body := range bad {
		_, err := ParseVote(body)
		assert.ErrorIs(t, err, domain.ErrValidation, body)
	}

	_, err = ParseResolve("RESOLVE 3")
	assert.ErrorIs(t, err, domain.ErrMalformedCommand)
}

func TestParseCommissio(t *testing.T) {
	got, err := ParseCommissio("COMMISSIO Paint the shed | REWARD 50 | EXPIRES 2026-05-01")
	require.NoError(t, err)
	assert.Equal(t, "Paint the shed", got.Title)
	assert.Equal(t, int64(50), got.Reward)
	assert.True(t, got.Expiry.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)))

	got, err = ParseCommissio("COMMISSIO Sweep")
	require.NoError(t, err)
	assert.Zero(t, got.Reward)
	assert.True(t, got.Expiry.IsZero())

	_, err = ParseCommissio("COMMISSIO")
	assert.ErrorIs(t, err, domain.ErrEmptyTitle)
	_, err = ParseCommissio("COMMISSIO T | BONUS 3")
	assert.ErrorIs(t, err, domain.ErrMalformedCommand)
}

func TestParseAcceptComplete(t *testing.T) {
	a, err := ParseAccept("ACCEPT 12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), a.CommissioID)

	c, err := ParseComplete("complete #12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), c.CommissioID)

	_, err = ParseAccept("ACCEPT")
	assert.ErrorIs(t, err, domain.ErrMalformedCommand)
}

func TestParseDispatches(t *testing.T) {
	tests := []struct {
		body string
		want Command
	}{
		{body: "QUOT", want: Balance{}},
		{body: "HELP", want: Help{}},
		{body: "CAUSAE", want: ListCausae{}},
		{body: "commissiones", want: ListCommissiones{}},
		{body: "ACCEPT 2", want: Accept{CommissioID: 2}},
	}
	for _, tc := range tests {
		got, err := Parse(tc.body)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.want.Kind(), got.Kind())
	}

	_, err := Parse("NONSENSE")
	assert.ErrorIs(t, err, domain.ErrMalformedCommand)
}
