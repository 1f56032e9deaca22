package database

import (
	"context"
	"database/sql"
)

// Schema statements are written in the dialect subset shared by MySQL
// and SQLite: no AUTO_INCREMENT columns (identifiers are UUIDs supplied
// by the application) and timestamps stored as 'YYYY-MM-DD HH:MM:SS'
// strings written explicitly by the repositories.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS classes (
		id          VARCHAR(36)  PRIMARY KEY,
		name        VARCHAR(120) NOT NULL,
		description TEXT,
		starts_at   VARCHAR(19)  NOT NULL,
		capacity    INT          NOT NULL,
		occupancy   INT          NOT NULL DEFAULT 0,
		version     INT          NOT NULL DEFAULT 0,
		created_at  VARCHAR(19)  NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		user_id    VARCHAR(36) NOT NULL,
		class_id   VARCHAR(36) NOT NULL,
		created_at VARCHAR(19) NOT NULL,
		PRIMARY KEY (user_id, class_id)
	)`,
	`CREATE TABLE IF NOT EXISTS waitlist_entries (
		user_id   VARCHAR(36) NOT NULL,
		class_id  VARCHAR(36) NOT NULL,
		position  INT         NOT NULL,
		joined_at VARCHAR(19) NOT NULL,
		PRIMARY KEY (user_id, class_id),
		UNIQUE (class_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS credit_accounts (
		user_id VARCHAR(36) PRIMARY KEY,
		balance INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS credit_ledger (
		id         VARCHAR(36) PRIMARY KEY,
		user_id    VARCHAR(36) NOT NULL,
		delta      INT         NOT NULL,
		reason     VARCHAR(40) NOT NULL,
		created_at VARCHAR(19) NOT NULL
	)`,
}

// Secondary indexes are created best-effort because MySQL has no
// IF NOT EXISTS form for CREATE INDEX; a duplicate-name error on a
// subsequent startup is expected and ignored.
var indexes = []string{
	`CREATE INDEX idx_reservations_class ON reservations (class_id)`,
	`CREATE INDEX idx_waitlist_class ON waitlist_entries (class_id, position)`,
	`CREATE INDEX idx_ledger_user ON credit_ledger (user_id, created_at)`,
}

// EnsureSchema creates all tables and indexes if they do not exist.
// Safe to call on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for _, stmt := range indexes {
		_, _ = db.ExecContext(ctx, stmt)
	}
	return nil
}
