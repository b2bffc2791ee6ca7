package services

import (
	"context"
	"errors"

	"github.com/djamrezki/storage-stream-api/internal/common"
	"github.com/djamrezki/storage-stream-api/internal/server/models"
)

// NewLink mints an additional download token for an owned file. Ownership
// mismatch and absence both report the uniform not-found.
func (s *FileService) NewLink(ctx context.Context, ownerID, fileID string) (string, error) {
	entry, err := s.repos.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrNotFound
		}
		return "", storageErr("load entry", err)
	}
	if entry.OwnerID != ownerID {
		return "", common.ErrNotFound
	}
	return s.issueToken(ctx, fileID, ownerID)
}

// issueToken creates a DownloadLink with a fresh random token, retrying a
// bounded number of times on the store's token-unique violation before one
// final attempt with a longer token. Collisions are astronomically rare;
// the retry exists so they are invisible rather than impossible.
func (s *FileService) issueToken(ctx context.Context, fileID, ownerID string) (string, error) {
	linkRepo := s.repos.Links(s.db)

	create := func(length int) (string, error) {
		token, err := common.NewToken(length)
		if err != nil {
			return "", err
		}
		err = linkRepo.Create(ctx, &models.DownloadLink{
			Token:     token,
			FileID:    fileID,
			CreatedBy: ownerID,
		})
		if err != nil {
			return "", err
		}
		return token, nil
	}

	for i := 0; i < tokenAttempts; i++ {
		token, err := create(tokenLength)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, common.ErrAlreadyExists) {
			return "", storageErr("create link", err)
		}
	}

	token, err := create(tokenFallbackLength)
	if err != nil {
		return "", storageErr("create link", err)
	}
	return token, nil
}
