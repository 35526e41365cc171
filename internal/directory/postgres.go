package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anasakil/chat-app-techniq8/internal/models"
)

// PostgresDirectory reads user records from the platform's PostgreSQL
// database.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory creates a directory backed by a connection pool.
func NewPostgresDirectory(ctx context.Context, databaseURL string) (*PostgresDirectory, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresDirectory{pool: pool}, nil
}

// Close closes the connection pool.
func (d *PostgresDirectory) Close() {
	d.pool.Close()
}

// Ping checks the database connection.
func (d *PostgresDirectory) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// IsBlocked reports whether ownerID has blocked otherID.
func (d *PostgresDirectory) IsBlocked(ctx context.Context, ownerID, otherID string) (bool, error) {
	var blocked bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM blocked_users
			WHERE owner_id = $1 AND blocked_id = $2
		)
	`, ownerID, otherID).Scan(&blocked)
	if err != nil {
		return false, err
	}
	return blocked, nil
}

// GetProfile returns a user's profile fields, or nil if unknown.
func (d *PostgresDirectory) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile := &models.Profile{}
	err := d.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(avatar_url, '')
		FROM users WHERE id = $1
	`, userID).Scan(
		&profile.ID,
		&profile.Name,
		&profile.AvatarURL,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}
