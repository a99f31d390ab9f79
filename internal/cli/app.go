package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/josh-kwaku/civitas/internal/cache"
	"github.com/josh-kwaku/civitas/internal/causa"
	"github.com/josh-kwaku/civitas/internal/commissio"
	"github.com/josh-kwaku/civitas/internal/config"
	"github.com/josh-kwaku/civitas/internal/ledger"
	"github.com/josh-kwaku/civitas/internal/repository"
	"github.com/josh-kwaku/civitas/internal/router"
)

// app is the wired object graph shared by every subcommand.
type app struct {
	cfg          *config.Config
	db           *repository.DB
	ledger       *ledger.Store
	causae       *causa.Engine
	commissiones *commissio.Engine
	router       *router.Router
	messages     *repository.InboxRepository
	closers      []func() error
}

func openDatabase(ctx context.Context, cfg *config.Config) (*repository.DB, error) {
	var (
		pool    *sql.DB
		dialect repository.Dialect
		err     error
	)
	switch cfg.DatabaseDriver {
	case "postgres":
		dialect = repository.DialectPostgres
		pool, err = repository.OpenPostgres(ctx, cfg.DatabaseURL, repository.PoolConfig{
			MaxOpenConns:     cfg.DBMaxOpenConns,
			MaxIdleConns:     cfg.DBMaxIdleConns,
			ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
			ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
		}, cfg.DBConnectTimeout)
	default:
		dialect = repository.DialectSQLite
		pool, err = repository.OpenSQLite(ctx, cfg.DatabaseURL)
	}
	if err != nil {
		return nil, fmt.Errorf("openDatabase: %w", err)
	}
	return repository.NewDB(pool, dialect).WithConflictRetries(cfg.ConflictRetries), nil
}

func openListings(ctx context.Context, cfg *config.Config) (cache.Cache, func() error, error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(cfg.ListingCacheTTL), nil, nil
	}
	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("openListings: %w", err)
	}
	return cache.NewRedis(rdb, cfg.ListingCacheTTL), rdb.Close, nil
}

func dustPolicy(name string) causa.DustPolicy {
	if name == "creator" {
		return causa.DustCreator
	}
	return causa.DustStrand
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db, closers: []func() error{db.Close}}

	if err := repository.Migrate(ctx, db); err != nil {
		a.close()
		return nil, fmt.Errorf("newApp: %w", err)
	}

	listings, closeListings, err := openListings(ctx, cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("newApp: %w", err)
	}
	if closeListings != nil {
		a.closers = append(a.closers, closeListings)
	}

	a.ledger = ledger.NewStore(db)
	a.causae = causa.NewEngine(a.ledger,
		causa.WithDefaults(cfg.CausaDefaultCloseDays, cfg.CausaDefaultMinWager),
		causa.WithOneVotePerUser(cfg.CausaOneVotePerUser),
		causa.WithDustPolicy(dustPolicy(cfg.PayoutDustPolicy)),
	)
	a.commissiones = commissio.NewEngine(a.ledger,
		commissio.WithDefaults(cfg.CommissioDefaultReward, cfg.CommissioDefaultExpiryDays),
	)
	a.router = router.New(a.ledger, a.causae, a.commissiones, listings)
	a.messages = repository.NewInboxRepository(db)

	slog.Debug("application wired",
		"driver", cfg.DatabaseDriver,
		"redis", cfg.RedisAddr != "",
		"kafka", cfg.KafkaEnabled(),
	)
	return a, nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
