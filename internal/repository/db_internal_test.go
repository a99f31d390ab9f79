package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	q := `UPDATE balances SET balance = ? WHERE email = ? AND version = ?`

	assert.Equal(t, q, DialectSQLite.rebind(q))
	assert.Equal(t,
		`UPDATE balances SET balance = $1 WHERE email = $2 AND version = $3`,
		DialectPostgres.rebind(q),
	)
}
