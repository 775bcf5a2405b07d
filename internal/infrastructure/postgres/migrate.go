package postgres

import (
	"context"
	"fmt"
	"log/slog"
)

// Schema statements, applied in order. Email is the primary unique
// identifier; subject_id is indexed but deliberately non-unique so a
// record survives provider-side identity changes.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		subject_id TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_login_at TIMESTAMPTZ,
		role_updated_at TIMESTAMPTZ,
		role_updated_by TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_subject_id ON users (subject_id)`,
	`CREATE INDEX IF NOT EXISTS idx_users_last_login ON users (last_login_at DESC)`,
}

// Migrate applies the schema. Statements are idempotent, so re-running
// on startup is safe.
func Migrate(ctx context.Context, db DatabaseIface, logger *slog.Logger) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	logger.Info("database schema up to date", "statements", len(migrations))
	return nil
}
