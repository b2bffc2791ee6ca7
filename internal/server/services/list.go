package services

import (
	"context"

	"github.com/djamrezki/storage-stream-api/internal/server/models"
)

// List returns the owner's files ordered case-insensitively by name. A
// non-empty tags filter keeps only files carrying every given tag; the
// filter is normalized the same way stored tags are.
func (s *FileService) List(ctx context.Context, ownerID string, tags []string) ([]*models.FileEntry, error) {
	entries, err := s.repos.Files(s.db).ListByOwner(ctx, ownerID, tags)
	if err != nil {
		return nil, storageErr("list entries", err)
	}
	return entries, nil
}

// ListPublic returns every file marked PUBLIC, across owners, with the
// same ordering and tag filtering as List. This is the only read that
// crosses owner boundaries.
func (s *FileService) ListPublic(ctx context.Context, tags []string) ([]*models.FileEntry, error) {
	entries, err := s.repos.Files(s.db).ListPublic(ctx, tags)
	if err != nil {
		return nil, storageErr("list public entries", err)
	}
	return entries, nil
}
