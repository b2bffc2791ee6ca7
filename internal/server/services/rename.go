package services

import (
	"context"
	"errors"
	"strings"

	"github.com/djamrezki/storage-stream-api/internal/common"
	"github.com/djamrezki/storage-stream-api/internal/server/models"
)

// Rename changes the display name of an owned file. The uniqueness
// pre-check runs only when the lower-cased form actually changes: a pure
// case change collides with nothing but itself. Like upload, the losing
// side of a concurrent rename race gets its typed duplicate error from the
// store's unique index, and a concurrent unrelated update surfaces as a
// stale-update conflict via the version check.
func (s *FileService) Rename(ctx context.Context, ownerID, fileID, newName string) (*models.FileEntry, error) {
	fileRepo := s.repos.Files(s.db)

	entry, err := fileRepo.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, storageErr("load entry", err)
	}
	if entry.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}

	filename, err := validFilename(newName)
	if err != nil {
		return nil, err
	}

	newLc := strings.ToLower(filename)
	if newLc != entry.FilenameLc {
		exists, err := fileRepo.ExistsByOwnerAndFilenameLc(ctx, ownerID, newLc)
		if err != nil {
			return nil, storageErr("filename pre-check", err)
		}
		if exists {
			return nil, common.ErrDuplicateFilename
		}
	}

	entry.SetFilename(filename)
	if err := fileRepo.UpdateFilenameWithVersionCheck(ctx, entry); err != nil {
		switch {
		case errors.Is(err, common.ErrStaleUpdate), errors.Is(err, common.ErrDuplicateFilename):
			return nil, err
		default:
			return nil, storageErr("update entry", err)
		}
	}
	return entry, nil
}
