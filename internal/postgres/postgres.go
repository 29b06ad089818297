package postgres

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

func NewConfigFromEnv() *Config {
	maxConns, _ := strconv.Atoi(os.Getenv("POSTGRES_MAX_CONNS"))
	return &Config{
		Host:     os.Getenv("POSTGRES_HOST"),
		Port:     os.Getenv("POSTGRES_PORT"),
		Username: os.Getenv("POSTGRES_USERNAME"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		DBName:   os.Getenv("POSTGRES_DB_NAME"),
		SSLMode:  os.Getenv("POSTGRES_SSL_MODE"),
		MaxConns: maxConns,
	}
}

func (c *Config) Setup() *Config {
	const (
		defaultHost     = "localhost"
		defaultPort     = "5432"
		defaultUsername = "postgres"
		defaultPassword = "postgres"
		defaultDBName   = "postgres"
		defaultSSLMode  = "disable"
		defaultMaxConns = 10
	)

	c.Host = cmp.Or(c.Host, defaultHost)
	c.Port = cmp.Or(c.Port, defaultPort)
	if _, err := strconv.Atoi(c.Port); err != nil {
		c.Port = defaultPort
	}
	c.Username = cmp.Or(c.Username, defaultUsername)
	c.Password = cmp.Or(c.Password, defaultPassword)
	c.DBName = cmp.Or(c.DBName, defaultDBName)
	c.SSLMode = cmp.Or(c.SSLMode, defaultSSLMode)
	if c.MaxConns <= 0 {
		c.MaxConns = defaultMaxConns
	}

	return c
}

// DSN is the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.DBName, c.Password, c.SSLMode,
	)
}

// String hides the password, safe to log.
func (c *Config) String() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.DBName, c.SSLMode,
	)
}

func NewDB(ctx context.Context, cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: can't connect to postgres", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

const _schema = `
CREATE TABLE IF NOT EXISTS candles (
	figi        TEXT        NOT NULL,
	interval    TEXT        NOT NULL,
	ts          TIMESTAMPTZ NOT NULL,
	open_price  NUMERIC     NOT NULL,
	close_price NUMERIC     NOT NULL,
	high_price  NUMERIC     NOT NULL,
	low_price   NUMERIC     NOT NULL,
	volume      BIGINT      NOT NULL DEFAULT 0,
	PRIMARY KEY (figi, interval, ts)
);

CREATE TABLE IF NOT EXISTS candle_windows (
	figi         TEXT        NOT NULL,
	interval     TEXT        NOT NULL,
	window_start TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (figi, interval, window_start)
);

CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id     TEXT        NOT NULL,
	account_id TEXT        NOT NULL,
	from_ts    TIMESTAMPTZ NOT NULL,
	to_ts      TIMESTAMPTZ NOT NULL,
	operations INTEGER     NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, account_id)
);

CREATE TABLE IF NOT EXISTS backtest_balances (
	run_id         TEXT    NOT NULL,
	account_id     TEXT    NOT NULL,
	currency       TEXT    NOT NULL,
	start_value    NUMERIC NOT NULL,
	value          NUMERIC NOT NULL,
	profit_percent NUMERIC NOT NULL,
	PRIMARY KEY (run_id, account_id, currency)
);

CREATE TABLE IF NOT EXISTS backtest_positions (
	run_id          TEXT    NOT NULL,
	account_id      TEXT    NOT NULL,
	figi            TEXT    NOT NULL,
	instrument_type TEXT    NOT NULL,
	currency        TEXT    NOT NULL,
	quantity        BIGINT  NOT NULL,
	average_price   NUMERIC NOT NULL,
	current_price   NUMERIC NOT NULL,
	expected_yield  NUMERIC NOT NULL,
	PRIMARY KEY (run_id, account_id, figi)
);
`

func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, _schema); err != nil {
		return fmt.Errorf("%w: can't apply schema", err)
	}
	return nil
}
