package services

import (
	"context"
	"errors"
	"io"

	"github.com/djamrezki/storage-stream-api/internal/common"
	"github.com/djamrezki/storage-stream-api/internal/server/detect"
)

// DownloadResult hands the caller everything needed to serve the bytes.
// The caller owns closing Body.
type DownloadResult struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// Resolve maps a download token to a live blob handle. Every missing hop
// (token, entry, blob) reports the same not-found, so a token leaks
// nothing about why resolution failed. The access counter is
// observability, not correctness: its increment is attempted once and a
// failure only logs.
func (s *FileService) Resolve(ctx context.Context, token string) (*DownloadResult, error) {
	link, err := s.repos.Links(s.db).GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, storageErr("load link", err)
	}

	entry, err := s.repos.Files(s.db).GetByID(ctx, link.FileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, storageErr("load entry", err)
	}

	body, size, err := s.blobs.Open(ctx, entry.StorageKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, storageErr("open blob", err)
	}
	if size <= 0 {
		size = entry.Size
	}

	if err := s.repos.Links(s.db).IncrementAccessCount(ctx, token); err != nil {
		s.log.Warn(ctx, "access count increment failed", "token", token, "error", err)
	}

	contentType := entry.ContentType
	if contentType == "" {
		contentType = detect.OctetStream
	}

	return &DownloadResult{
		Filename:    entry.Filename,
		ContentType: contentType,
		Size:        size,
		Body:        body,
	}, nil
}
