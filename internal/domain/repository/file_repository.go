package repository

import (
	"time"

	"github.com/oocloud/oocloud/internal/domain"
)

// FileRepository defines the interface for file record persistence.
// Lookup methods return (nil, nil) when no row matches.
type FileRepository interface {
	// GetByID retrieves a record by its ID
	GetByID(id string) (*domain.FileRecord, error)

	// GetByName retrieves a record by its unique (user, category, physical name) key
	GetByName(userID string, cat domain.Category, physicalName string) (*domain.FileRecord, error)

	// ListActive returns all non-trashed records for a user, newest first
	ListActive(userID string) ([]*domain.FileRecord, error)

	// ListTrashed returns all trashed records for a user, newest first
	ListTrashed(userID string) ([]*domain.FileRecord, error)

	// ListByCategory returns every record for (user, category), used by reconciliation
	ListByCategory(userID string, cat domain.Category) ([]*domain.FileRecord, error)

	// ListTrashedBefore returns records trashed strictly before cutoff
	ListTrashedBefore(userID string, cutoff time.Time) ([]*domain.FileRecord, error)

	// Create inserts a new record
	Create(rec *domain.FileRecord) error

	// Update persists changes to an existing record
	Update(rec *domain.FileRecord) error

	// Delete removes a record by ID
	Delete(id string) error
}
