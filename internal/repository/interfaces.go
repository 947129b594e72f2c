package repository

import (
	"context"
	"errors"

	"livepoll/internal/domain"
)

// Record names shared by every backend
const (
	KeyPolls                = "polls"
	KeyActiveSessions       = "activeSessions"
	KeyAdminData            = "adminData"
	KeyIsAdminAuthenticated = "isAdminAuthenticated"
)

// ErrKeyNotFound is returned by StateStore.Load when nothing is stored under a key
var ErrKeyNotFound = errors.New("key not found")

// StateStore is the durable key-value storage the engine's collections are mirrored into
type StateStore interface {
	// Load returns the raw text stored under key, or ErrKeyNotFound
	Load(ctx context.Context, key string) (string, error)

	// Save replaces the value stored under key
	Save(ctx context.Context, key, value string) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Health checks the backend
	Health(ctx context.Context) error

	// Close releases the backend
	Close() error
}

// SnapshotRepository defines the persistence of the engine's two collections
type SnapshotRepository interface {
	// Load returns the stored collections; undecodable records come back empty
	Load(ctx context.Context) ([]domain.Poll, []domain.Session, error)

	// SavePolls writes the whole poll collection
	SavePolls(ctx context.Context, polls []domain.Poll) error

	// SaveSessions writes the whole session collection
	SaveSessions(ctx context.Context, sessions []domain.Session) error
}

// AdminRepository defines the persistence of the admin credential record and auth flag
type AdminRepository interface {
	// Get returns the admin record or nil when none is registered
	Get(ctx context.Context) (*domain.AdminData, error)

	// Save replaces the admin record
	Save(ctx context.Context, admin *domain.AdminData) error

	// IsAuthenticated reads the persisted flag
	IsAuthenticated(ctx context.Context) (bool, error)

	// SetAuthenticated writes the flag; false removes it
	SetAuthenticated(ctx context.Context, authenticated bool) error
}
