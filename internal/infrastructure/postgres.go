package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	if err := client.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) Migrate() error {
	ctx := context.Background()

	stmts := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id SERIAL PRIMARY KEY,
				email VARCHAR(255) UNIQUE NOT NULL,
				password_hash VARCHAR(255) NOT NULL,
				phone_number VARCHAR(32) UNIQUE NOT NULL DEFAULT '',
				credits DOUBLE PRECISION NOT NULL DEFAULT 0,
				credits_left DOUBLE PRECISION NOT NULL DEFAULT 0,
				sub_tier VARCHAR(16) NOT NULL DEFAULT '',
				discount BOOLEAN NOT NULL DEFAULT FALSE,
				is_admin BOOLEAN NOT NULL DEFAULT FALSE,
				preferred_number VARCHAR(32) NOT NULL DEFAULT '',
				charge_when_under BOOLEAN NOT NULL DEFAULT FALSE,
				charge_threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
				charge_back_to DOUBLE PRECISION NOT NULL DEFAULT 0,
				notify_via VARCHAR(16) NOT NULL DEFAULT 'sms',
				telegram_chat_id BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);`},
		{"subscriptions", `
			CREATE TABLE IF NOT EXISTS subscriptions (
				id SERIAL PRIMARY KEY,
				user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				paddle_subscription_id VARCHAR(64) UNIQUE NOT NULL,
				paddle_customer_id VARCHAR(64) NOT NULL DEFAULT '',
				status VARCHAR(32) NOT NULL,
				stage VARCHAR(32) NOT NULL DEFAULT 'regular',
				next_bill_date TIMESTAMPTZ,
				cancel_at_period_end BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);`},
		{"waiting_checks", `
			CREATE TABLE IF NOT EXISTS waiting_checks (
				id SERIAL PRIMARY KEY,
				user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				phrase TEXT NOT NULL,
				service VARCHAR(16) NOT NULL,
				notify_via VARCHAR(16) NOT NULL,
				last_scanned TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);`},
		{"bridges", `
			CREATE TABLE IF NOT EXISTS bridges (
				id SERIAL PRIMARY KEY,
				user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				kind VARCHAR(16) NOT NULL,
				status VARCHAR(16) NOT NULL,
				remote_jid VARCHAR(64) NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE (user_id, kind)
			);`},
		{"connections", `
			CREATE TABLE IF NOT EXISTS connections (
				id SERIAL PRIMARY KEY,
				user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				provider VARCHAR(32) NOT NULL,
				access_token TEXT NOT NULL,
				refresh_token TEXT NOT NULL,
				expires_at TIMESTAMPTZ NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE (user_id, provider)
			);`},
		{"messages", `
			CREATE TABLE IF NOT EXISTS messages (
				id SERIAL PRIMARY KEY,
				user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				platform VARCHAR(16) NOT NULL,
				sender VARCHAR(64) NOT NULL,
				content TEXT NOT NULL,
				outbound BOOLEAN NOT NULL DEFAULT FALSE,
				ts TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_messages_user_ts ON messages (user_id, ts DESC);`},
		{"usage_records", `
			CREATE TABLE IF NOT EXISTS usage_records (
				id SERIAL PRIMARY KEY,
				user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				kind VARCHAR(16) NOT NULL,
				credits_used DOUBLE PRECISION NOT NULL,
				success BOOLEAN NOT NULL DEFAULT TRUE,
				reference VARCHAR(128) NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_usage_user_created ON usage_records (user_id, created_at DESC);`},
		{"outbox_jobs", `
			CREATE TABLE IF NOT EXISTS outbox_jobs (
				id BIGSERIAL PRIMARY KEY,
				kind VARCHAR(32) NOT NULL,
				payload JSONB NOT NULL,
				attempts INT NOT NULL DEFAULT 0,
				provider_ref VARCHAR(64) NOT NULL DEFAULT '',
				next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				last_error TEXT NOT NULL DEFAULT '',
				done BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_outbox_due ON outbox_jobs (done, next_attempt_at);`},
	}

	for _, s := range stmts {
		if _, err := p.Pool.Exec(ctx, s.sql); err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}

	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
