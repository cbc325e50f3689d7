package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var DB *pgxpool.Pool

// ConnStringFromEnv builds a postgres URL from POSTGRES_USER, POSTGRES_PASSWORD,
// PG_HOST, PG_PORT and PG_DATABASE.
func ConnStringFromEnv() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("PG_HOST"),
		os.Getenv("PG_PORT"),
		os.Getenv("PG_DATABASE"),
	)
}

// ConnectDB opens the global pool, pings it and creates missing tables.
func ConnectDB() error {
	config, err := pgxpool.ParseConfig(ConnStringFromEnv())
	if err != nil {
		return fmt.Errorf("unable to parse pgx config: %w", err)
	}

	DB, err = pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return fmt.Errorf("unable to create pgx pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := DB.Ping(ctx); err != nil {
		return fmt.Errorf("db ping error: %w", err)
	}
	if err := EnsureSchema(ctx, DB); err != nil {
		return err
	}

	log.Infof("Connected to database at %s:%s", config.ConnConfig.Host, os.Getenv("PG_PORT"))
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	name           TEXT PRIMARY KEY,
	chips          INTEGER NOT NULL CHECK (chips >= 0),
	highest_amount INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rounds (
	id         UUID PRIMARY KEY,
	table_id   UUID NOT NULL,
	status     TEXT NOT NULL,
	start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS round_actions (
	round_id       UUID NOT NULL REFERENCES rounds (id),
	action_index   INTEGER NOT NULL,
	player_name    TEXT,
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL DEFAULT '{}',
	action_time    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (round_id, action_index)
);

ALTER TABLE rounds ADD COLUMN IF NOT EXISTS table_id UUID;
CREATE INDEX IF NOT EXISTS rounds_table_id_idx ON rounds (table_id);
`

// EnsureSchema creates the users, rounds and round_actions tables if absent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
