package db

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		password_hash TEXT,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		image TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT users_email_key UNIQUE (email)
	)`,

	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		provider TEXT NOT NULL,
		provider_account_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT accounts_provider_key UNIQUE (provider, provider_account_id)
	)`,

	`CREATE TABLE IF NOT EXISTS password_resets (
		token_hash TEXT PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at TIMESTAMPTZ NOT NULL,
		used_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS servers (
		id TEXT PRIMARY KEY,
		owner_id UUID NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		slug TEXT NOT NULL,
		description TEXT NOT NULL,
		ip_address TEXT NOT NULL,
		port INTEGER,
		website TEXT,
		discord TEXT,
		version TEXT,
		region TEXT,
		theme TEXT,
		tags TEXT[],
		categories TEXT[],
		banner_url TEXT,
		votifier_host TEXT,
		votifier_port INTEGER,
		votifier_public_key TEXT,
		status TEXT NOT NULL DEFAULT 'PUBLISHED' CHECK (status IN ('DRAFT', 'PUBLISHED')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT servers_slug_key UNIQUE (slug)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_servers_status_created ON servers (status, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_servers_owner ON servers (owner_id)`,

	`CREATE TABLE IF NOT EXISTS votes (
		id TEXT PRIMARY KEY,
		server_id TEXT NOT NULL REFERENCES servers(id) ON DELETE CASCADE,
		user_id UUID REFERENCES users(id) ON DELETE SET NULL,
		ip_hash TEXT,
		user_agent TEXT,
		source TEXT NOT NULL DEFAULT 'WEB' CHECK (source IN ('WEB', 'VOTIFIER')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT votes_voter_present CHECK (user_id IS NOT NULL OR ip_hash IS NOT NULL)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_server_user ON votes (server_id, user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_server_ip ON votes (server_id, ip_hash, created_at DESC)`,
}
