// Package files persists FileEntry records. The Postgres implementation
// relies on the table's compound unique indexes as the authoritative
// arbitration point for concurrent inserts; the Exists* queries are
// advisory pre-checks only.
package files

import (
	"context"

	"github.com/djamrezki/storage-stream-api/internal/server/models"
)

// Repository is the metadata-store contract for file entries.
type Repository interface {
	// Insert persists a new entry and fills in the store-assigned fields
	// (ID, CreatedAt, UpdatedAt, Version). A compound-unique violation is
	// reported as common.ErrDuplicateFilename or common.ErrDuplicateContent
	// depending on the index that was hit.
	Insert(ctx context.Context, entry *models.FileEntry) error

	// GetByID returns the entry or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.FileEntry, error)

	// ExistsByOwnerAndFilenameLc is an advisory duplicate-name pre-check.
	ExistsByOwnerAndFilenameLc(ctx context.Context, ownerID, filenameLc string) (bool, error)

	// ExistsByOwnerAndDigest is an advisory duplicate-content pre-check.
	ExistsByOwnerAndDigest(ctx context.Context, ownerID, sha256Hex string) (bool, error)

	// UpdateFilenameWithVersionCheck commits a rename against the recorded
	// version. It returns common.ErrStaleUpdate when the row changed since
	// the read and common.ErrDuplicateFilename on a name-unique violation.
	// On success the entry's UpdatedAt and Version are refreshed in place.
	UpdateFilenameWithVersionCheck(ctx context.Context, entry *models.FileEntry) error

	// DeleteByID removes the entry. Deleting a missing row is not an error.
	DeleteByID(ctx context.Context, id string) error

	// ListByOwner returns the owner's entries ordered case-insensitively
	// by filename. A non-empty tags slice keeps only entries carrying
	// every given tag.
	ListByOwner(ctx context.Context, ownerID string, tags []string) ([]*models.FileEntry, error)

	// ListPublic returns every PUBLIC entry regardless of owner, same
	// ordering and tag filtering as ListByOwner.
	ListPublic(ctx context.Context, tags []string) ([]*models.FileEntry, error)
}
