package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"civitas.db"`
	Port           int    `env:"PORT" envDefault:"8080"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv         string `env:"APP_ENV" envDefault:"production"`

	JWTSecret     string `env:"JWT_SECRET"`
	InboundSecret string `env:"INBOUND_SECRET"`

	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"30s"`
	BatchSize    int           `env:"BATCH_SIZE" envDefault:"50"`
	// ClaimTimeout is how long a message may sit in processing before a
	// worker puts it back in the queue.
	ClaimTimeout time.Duration `env:"INBOX_CLAIM_TIMEOUT" envDefault:"5m"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	ListingCacheTTL time.Duration `env:"LISTING_CACHE_TTL" envDefault:"5m"`

	KafkaBrokers    []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaInboxTopic string   `env:"KAFKA_INBOX_TOPIC" envDefault:"civitas.inbox"`
	KafkaReplyTopic string   `env:"KAFKA_REPLY_TOPIC" envDefault:"civitas.replies"`
	KafkaGroupID    string   `env:"KAFKA_GROUP_ID" envDefault:"civitas-ingest"`

	CausaDefaultCloseDays int    `env:"CAUSA_DEFAULT_CLOSE_DAYS" envDefault:"7"`
	CausaDefaultMinWager  int64  `env:"CAUSA_DEFAULT_MIN_WAGER" envDefault:"1"`
	CausaOneVotePerUser   bool   `env:"CAUSA_ONE_VOTE_PER_USER" envDefault:"false"`
	PayoutDustPolicy      string `env:"PAYOUT_DUST_POLICY" envDefault:"strand"`

	CommissioDefaultReward     int64 `env:"COMMISSIO_DEFAULT_REWARD" envDefault:"10"`
	CommissioDefaultExpiryDays int   `env:"COMMISSIO_DEFAULT_EXPIRY_DAYS" envDefault:"30"`

	ConflictRetries int `env:"CONFLICT_RETRIES" envDefault:"5"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`

	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"30s"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c Config) validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	switch c.PayoutDustPolicy {
	case "strand", "creator":
	default:
		return fmt.Errorf("PAYOUT_DUST_POLICY must be strand or creator, got %q", c.PayoutDustPolicy)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.ClaimTimeout <= 0 {
		return fmt.Errorf("INBOX_CLAIM_TIMEOUT must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive")
	}
	if c.CausaDefaultMinWager <= 0 || c.CommissioDefaultReward <= 0 {
		return fmt.Errorf("default wager and reward must be positive")
	}
	return nil
}

func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
