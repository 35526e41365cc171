package directory

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/anasakil/chat-app-techniq8/internal/models"
)

// SQLiteDirectory is a single-node directory for development and small
// deployments.
type SQLiteDirectory struct {
	db *sql.DB
}

// NewSQLiteDirectory opens (and if needed initializes) a SQLite-backed
// directory. If dbPath is empty, defaults to "./data/directory.db".
func NewSQLiteDirectory(ctx context.Context, dbPath string) (*SQLiteDirectory, error) {
	if dbPath == "" {
		dbPath = "./data/directory.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	d := &SQLiteDirectory{db: db}

	if err := d.initSchema(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

// initSchema creates tables if they don't exist.
func (d *SQLiteDirectory) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT DEFAULT '',
		avatar_url TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS blocked_users (
		owner_id TEXT NOT NULL,
		blocked_id TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (owner_id, blocked_id)
	);

	CREATE INDEX IF NOT EXISTS idx_blocked_owner ON blocked_users(owner_id);
	`

	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *SQLiteDirectory) Close() {
	d.db.Close()
}

// Ping checks the database connection.
func (d *SQLiteDirectory) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// IsBlocked reports whether ownerID has blocked otherID.
func (d *SQLiteDirectory) IsBlocked(ctx context.Context, ownerID, otherID string) (bool, error) {
	var one int
	err := d.db.QueryRowContext(ctx, `
		SELECT 1 FROM blocked_users WHERE owner_id = ? AND blocked_id = ?
	`, ownerID, otherID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetProfile returns a user's profile fields, or nil if unknown.
func (d *SQLiteDirectory) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile := &models.Profile{}
	err := d.db.QueryRowContext(ctx, `
		SELECT id, name, avatar_url FROM users WHERE id = ?
	`, userID).Scan(
		&profile.ID,
		&profile.Name,
		&profile.AvatarURL,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}
