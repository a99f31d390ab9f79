package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
)

type PoolConfig struct {
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetimeS int
	ConnMaxIdleTimeS int
}

// OpenPostgres opens a pool and waits up to connectTimeout for the server
// to accept connections, so a service started alongside its database does
// not exit on the first refused ping.
func OpenPostgres(ctx context.Context, databaseURL string, pool PoolConfig, connectTimeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("OpenPostgres: open: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeS) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTimeS) * time.Second)

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 250 * time.Millisecond
	eb.MaxInterval = 2 * time.Second
	eb.MaxElapsedTime = connectTimeout

	attempt := 0
	ping := func() error {
		attempt++
		if err := db.PingContext(ctx); err != nil {
			slog.Info("waiting for database", "attempt", attempt, "error", err)
			return err
		}
		return nil
	}
	if err := backoff.Retry(ping, backoff.WithContext(eb, ctx)); err != nil {
		db.Close()
		return nil, fmt.Errorf("OpenPostgres: ping after %d attempts: %w", attempt, err)
	}

	return db, nil
}
