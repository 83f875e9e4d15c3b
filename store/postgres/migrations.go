package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the streamledger store.
var Migrations = migrate.NewGroup("streamledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_streamledger_streams",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS streamledger_streams (
    id               BIGINT PRIMARY KEY,
    sender           TEXT NOT NULL,
    recipient        TEXT NOT NULL,
    asset            TEXT NOT NULL,
    rate_per_second  TEXT NOT NULL DEFAULT '0',
    deposited_amount TEXT NOT NULL DEFAULT '0',
    withdrawn_amount TEXT NOT NULL DEFAULT '0',
    refunded_amount  TEXT NOT NULL DEFAULT '0',
    duration         BIGINT NOT NULL DEFAULT 0,
    start_time       BIGINT NOT NULL DEFAULT 0,
    last_update_time BIGINT NOT NULL DEFAULT 0,
    is_active        BOOLEAN NOT NULL DEFAULT TRUE,
    cancelled        BOOLEAN NOT NULL DEFAULT FALSE,
    settlement       JSONB,
    withdrawal       JSONB,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_streamledger_streams_sender ON streamledger_streams (sender, is_active);
CREATE INDEX IF NOT EXISTS idx_streamledger_streams_recipient ON streamledger_streams (recipient, is_active);
CREATE INDEX IF NOT EXISTS idx_streamledger_streams_settling ON streamledger_streams (id) WHERE settlement IS NOT NULL OR withdrawal IS NOT NULL;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS streamledger_streams`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_streamledger_state",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS streamledger_state (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS streamledger_counters (
    name  TEXT PRIMARY KEY,
    value BIGINT NOT NULL DEFAULT 0
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS streamledger_counters;
DROP TABLE IF EXISTS streamledger_state;
`)
				return err
			},
		},
	)
}
