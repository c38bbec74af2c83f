package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/fazecat/daytrader/Internal/utils/config"
)

type Store struct {
	db *sql.DB
}

func Open(env *config.Env) (*Store, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		env.DBHost, env.DBPort, env.DBUser, env.DBPassword, env.DBName, env.DBSSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initializeSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	fmt.Println("Database connected successfully!")
	return s, nil
}

func (s *Store) initializeSchema() error {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS closed_trades (
		id SERIAL PRIMARY KEY,
		trade_id TEXT NOT NULL UNIQUE,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price NUMERIC(18,4) NOT NULL,
		entry_time TIMESTAMPTZ NOT NULL,
		exit_price NUMERIC(18,4) NOT NULL,
		exit_time TIMESTAMPTZ NOT NULL,
		quantity BIGINT NOT NULL,
		capital_committed NUMERIC(18,2) NOT NULL,
		leverage NUMERIC(6,2) NOT NULL,
		exit_reason TEXT NOT NULL,
		realized_pnl NUMERIC(18,2) NOT NULL,
		score_at_entry NUMERIC(8,4) NOT NULL,
		sentiment_at_entry NUMERIC(8,4) NOT NULL,
		peak_price NUMERIC(18,4) NOT NULL,
		max_drawdown_pct NUMERIC(8,4) NOT NULL,
		slippage_pct NUMERIC(8,4) NOT NULL,
		threshold_version INTEGER NOT NULL,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS degradations (
		id SERIAL PRIMARY KEY,
		occurred_at TIMESTAMPTZ NOT NULL,
		kind TEXT NOT NULL,
		symbol TEXT,
		details TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_closed_trades_symbol ON closed_trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_closed_trades_exit_time ON closed_trades(exit_time);
	`

	_, err := s.db.Exec(schemaSQL)
	return err
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) HealthCheck() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.Ping()
}
