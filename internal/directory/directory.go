// Package directory is the read-only user-directory collaborator: it
// answers block-list membership and supplies basic profile fields for
// message enrichment. The delivery core consumes answers; it never writes
// here.
package directory

import (
	"context"

	"github.com/anasakil/chat-app-techniq8/internal/models"
)

// Directory defines the lookup surface the router depends on. Both
// PostgresDirectory and SQLiteDirectory implement this interface.
type Directory interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// IsBlocked reports whether ownerID has blocked otherID.
	IsBlocked(ctx context.Context, ownerID, otherID string) (bool, error)

	// GetProfile returns a user's profile fields, or nil if unknown.
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}
