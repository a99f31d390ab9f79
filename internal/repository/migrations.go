package repository

import (
	"context"
	"fmt"
)

func schema(d Dialect) []string {
	autoID := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d == DialectPostgres {
		autoID = "BIGSERIAL PRIMARY KEY"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS balances (
			email        TEXT PRIMARY KEY,
			balance      BIGINT NOT NULL DEFAULT 0,
			last_updated BIGINT NOT NULL,
			version      BIGINT NOT NULL DEFAULT 1
		)`,

		`CREATE TABLE IF NOT EXISTS ledger_log (
			id               TEXT PRIMARY KEY,
			timestamp        BIGINT NOT NULL,
			email            TEXT NOT NULL,
			amount           BIGINT NOT NULL,
			notes            TEXT NOT NULL DEFAULT '',
			previous_balance BIGINT NOT NULL,
			processed        INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_log_email ON ledger_log(email, timestamp)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS causae (
			id           %s,
			title        TEXT NOT NULL,
			options      TEXT NOT NULL,
			creator      TEXT NOT NULL,
			status       TEXT NOT NULL,
			total_pot    BIGINT NOT NULL DEFAULT 0,
			closing_date BIGINT NOT NULL,
			votes        TEXT NOT NULL DEFAULT '[]',
			notes        TEXT NOT NULL DEFAULT '',
			min_wager    BIGINT NOT NULL DEFAULT 1,
			version      BIGINT NOT NULL DEFAULT 1,
			created_at   BIGINT NOT NULL
		)`, autoID),
		`CREATE INDEX IF NOT EXISTS idx_causae_status ON causae(status, id)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS commissiones (
			id           %s,
			title        TEXT NOT NULL,
			creator      TEXT NOT NULL,
			reward       BIGINT NOT NULL,
			expiry       BIGINT NOT NULL,
			status       TEXT NOT NULL,
			assignee     TEXT NOT NULL DEFAULT '',
			created_at   BIGINT NOT NULL,
			completed_at BIGINT,
			notes        TEXT NOT NULL DEFAULT '',
			version      BIGINT NOT NULL DEFAULT 1
		)`, autoID),
		`CREATE INDEX IF NOT EXISTS idx_commissiones_status ON commissiones(status, id)`,

		`CREATE TABLE IF NOT EXISTS inbox (
			id            TEXT PRIMARY KEY,
			message_id    TEXT NOT NULL UNIQUE,
			sender        TEXT NOT NULL,
			body          TEXT NOT NULL,
			status        TEXT NOT NULL,
			reply_ok      INTEGER NOT NULL DEFAULT 0,
			reply_code    TEXT NOT NULL DEFAULT '',
			reply_subject TEXT NOT NULL DEFAULT '',
			reply_body    TEXT NOT NULL DEFAULT '',
			attempts      INTEGER NOT NULL DEFAULT 0,
			received_at   BIGINT NOT NULL,
			claimed_at    BIGINT,
			processed_at  BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_inbox_status ON inbox(status, received_at)`,
	}
}

// Migrate creates every table the engine uses. Statements are idempotent
// and run one at a time.
func Migrate(ctx context.Context, db *DB) error {
	for i, stmt := range schema(db.dialect) {
		if _, err := db.pool.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("Migrate: statement %d: %w", i, err)
		}
	}
	return nil
}
