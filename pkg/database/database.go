package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(databaseURL string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Dashboard loads fan out into many parallel reads.
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// migrations is the schema the repositories read from. Every statement is
// idempotent so Migrate can run on each start.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(255) NOT NULL,
		timezone VARCHAR(64) DEFAULT 'America/Lima',
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	)`,

	// Users are the agents that handle leads
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		username VARCHAR(255) NOT NULL,
		display_name VARCHAR(255),
		role VARCHAR(20) NOT NULL DEFAULT 'agent',
		visibility_mode VARCHAR(20) NOT NULL DEFAULT 'shared',
		is_active BOOLEAN DEFAULT TRUE,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		UNIQUE(account_id, username)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_account ON users(account_id)`,

	`CREATE TABLE IF NOT EXISTS source_tags (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		name VARCHAR(100) NOT NULL,
		color VARCHAR(20) DEFAULT '#6366f1'
	)`,

	`CREATE TABLE IF NOT EXISTS lead_sources (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		code VARCHAR(100),
		color VARCHAR(20) DEFAULT '#6366f1',
		tag_id UUID REFERENCES source_tags(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_lead_sources_account ON lead_sources(account_id)`,

	`CREATE TABLE IF NOT EXISTS leads (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		name VARCHAR(255),
		status VARCHAR(50) DEFAULT 'new',
		ad_source_id VARCHAR(255),
		source_id UUID REFERENCES lead_sources(id) ON DELETE SET NULL,
		campaign_name VARCHAR(255),
		ad_name VARCHAR(255),
		assigned_to UUID REFERENCES users(id) ON DELETE SET NULL,
		is_group BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_account_created ON leads(account_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_assigned ON leads(assigned_to)`,

	`CREATE TABLE IF NOT EXISTS trackable_links (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		code VARCHAR(100) NOT NULL,
		source_id UUID NOT NULL REFERENCES lead_sources(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		UNIQUE(account_id, code)
	)`,

	`CREATE TABLE IF NOT EXISTS link_clicks (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		link_id UUID NOT NULL REFERENCES trackable_links(id) ON DELETE CASCADE,
		lead_id UUID REFERENCES leads(id) ON DELETE SET NULL,
		clicked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		utm_source VARCHAR(255),
		utm_medium VARCHAR(255),
		utm_campaign VARCHAR(255),
		utm_content VARCHAR(255),
		utm_term VARCHAR(255)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_link_clicks_link_time ON link_clicks(link_id, clicked_at)`,
	`CREATE INDEX IF NOT EXISTS idx_link_clicks_lead ON link_clicks(lead_id)`,

	`CREATE TABLE IF NOT EXISTS messages (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		lead_id UUID NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
		from_client BOOLEAN NOT NULL,
		sender_id UUID REFERENCES users(id) ON DELETE SET NULL,
		sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_lead_time ON messages(lead_id, sent_at)`,

	`CREATE TABLE IF NOT EXISTS commercial_entries (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		lead_id UUID NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
		value NUMERIC(14,2) NOT NULL,
		entry_date TIMESTAMPTZ NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		created_by UUID REFERENCES users(id) ON DELETE SET NULL,
		confirmed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_commercial_account_date ON commercial_entries(account_id, entry_date)`,
	`CREATE INDEX IF NOT EXISTS idx_commercial_lead ON commercial_entries(lead_id)`,

	// A receipt points at the commercial entry it pays for, or directly at
	// a lead when there is none.
	`CREATE TABLE IF NOT EXISTS receipt_entries (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		commercial_entry_id UUID REFERENCES commercial_entries(id) ON DELETE SET NULL,
		lead_id UUID REFERENCES leads(id) ON DELETE SET NULL,
		value NUMERIC(14,2) NOT NULL,
		entry_date TIMESTAMPTZ NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		confirmed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_receipt_account_date ON receipt_entries(account_id, entry_date)`,
	`CREATE INDEX IF NOT EXISTS idx_receipt_commercial ON receipt_entries(commercial_entry_id)`,
}

func Migrate(db *pgxpool.Pool) error {
	ctx := context.Background()

	for _, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, migration)
		}
	}

	return nil
}
