package services

import (
	"context"
	"errors"

	"github.com/djamrezki/storage-stream-api/internal/common"
	"github.com/djamrezki/storage-stream-api/internal/dbx"
)

// Delete cascades removal in a fixed order: links first (a crash after
// that step leaves a file retrievable by nobody, the least harmful partial
// state), then the blob (a crash here leaves metadata pointing at a
// missing blob, which is detectable, rather than an orphan blob, which is
// not), then the metadata row. A blob-delete failure aborts the cascade
// with the metadata intact so the whole delete can be retried.
//
// Ownership mismatch and absence both report the uniform not-found, so
// re-invoking after success yields common.ErrNotFound with no side
// effects.
func (s *FileService) Delete(ctx context.Context, ownerID, fileID string) error {
	entry, err := s.repos.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return storageErr("load entry", err)
	}
	if entry.OwnerID != ownerID {
		return common.ErrNotFound
	}

	if err := s.repos.Links(s.db).DeleteAllForFile(ctx, fileID); err != nil {
		return storageErr("delete links", err)
	}

	if err := s.blobs.Delete(ctx, entry.StorageKey); err != nil {
		return storageErr("delete blob", err)
	}

	// Sweep links created since step one and drop the entry in one
	// transaction, so no committed state references the removed blob.
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Links(tx).DeleteAllForFile(ctx, fileID); err != nil {
			return err
		}
		return s.repos.Files(tx).DeleteByID(ctx, fileID)
	})
	if err != nil {
		return storageErr("delete metadata", err)
	}
	return nil
}
