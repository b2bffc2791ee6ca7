// Package links persists DownloadLink records. Token uniqueness is
// guaranteed by the store's unique index; collisions surface as
// common.ErrAlreadyExists so the caller can retry with a fresh token.
package links

import (
	"context"

	"github.com/djamrezki/storage-stream-api/internal/server/models"
)

// Repository is the metadata-store contract for download links.
type Repository interface {
	// Create persists a new link and fills in ID and CreatedAt. A token
	// collision is reported as common.ErrAlreadyExists.
	Create(ctx context.Context, link *models.DownloadLink) error

	// GetByToken returns the link or common.ErrNotFound.
	GetByToken(ctx context.Context, token string) (*models.DownloadLink, error)

	// IncrementAccessCount bumps the access counter atomically in the
	// store. Lost-update-free under concurrent downloads.
	IncrementAccessCount(ctx context.Context, token string) error

	// DeleteAllForFile removes every link referencing the file.
	DeleteAllForFile(ctx context.Context, fileID string) error
}
