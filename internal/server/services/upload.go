package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/djamrezki/storage-stream-api/internal/common"
	"github.com/djamrezki/storage-stream-api/internal/server/detect"
	"github.com/djamrezki/storage-stream-api/internal/server/models"
	"github.com/djamrezki/storage-stream-api/internal/server/scan"
	"github.com/djamrezki/storage-stream-api/internal/server/storage"
	"github.com/djamrezki/storage-stream-api/internal/streamx"
)

// UploadCommand carries one upload request.
type UploadCommand struct {
	OwnerID         string
	Filename        string
	Visibility      models.Visibility
	Tags            []string
	ContentTypeHint string
	Body            io.Reader
}

// UploadResult is returned on a committed upload.
type UploadResult struct {
	FileID string
	Token  string
}

// Upload runs the ingestion pipeline: the body is streamed to the blob
// store through the digest tee, so storage begins before the hash is
// known. Duplicate arbitration belongs to the metadata store's unique
// indexes at insert time; the pre-checks only short-circuit doomed work.
// A rejected insert triggers a compensating blob delete so an uncommitted
// entry never leaves bytes behind.
func (s *FileService) Upload(ctx context.Context, cmd UploadCommand) (*UploadResult, error) {
	owner, err := validOwner(cmd.OwnerID)
	if err != nil {
		return nil, err
	}
	cmd.OwnerID = owner
	filename, err := validFilename(cmd.Filename)
	if err != nil {
		return nil, err
	}
	visibility := cmd.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}

	fileRepo := s.repos.Files(s.db)

	// Advisory fast path; the insert below remains the authority.
	exists, err := fileRepo.ExistsByOwnerAndFilenameLc(ctx, cmd.OwnerID, strings.ToLower(filename))
	if err != nil {
		return nil, storageErr("filename pre-check", err)
	}
	if exists {
		return nil, common.ErrDuplicateFilename
	}

	tee := streamx.NewTee(cmd.Body, s.window)
	scanned, report := s.scanner.Wrap(tee)

	saved, err := s.blobs.Save(ctx, scanned, storage.SaveHints{
		OwnerID:         cmd.OwnerID,
		FilenameHint:    filename,
		ContentTypeHint: cmd.ContentTypeHint,
		Metadata:        map[string]string{"owner-id": cmd.OwnerID},
	})
	if err != nil {
		return nil, storageErr("save blob", err)
	}

	bundle, err := tee.Bundle()
	if err != nil {
		// The store reported success without draining the stream; the
		// digest would be incomplete, so back out.
		s.deleteBlob(ctx, saved.Key)
		return nil, storageErr("resolve digest", err)
	}

	if verdict := report(); verdict.Verdict != scan.Clean {
		s.deleteBlob(ctx, saved.Key)
		return nil, fmt.Errorf("%w: %s", common.ErrVirusDetected, verdict.Details)
	}

	// Advisory duplicate-content check, now that the digest is known.
	dup, err := fileRepo.ExistsByOwnerAndDigest(ctx, cmd.OwnerID, bundle.SHA256)
	if err != nil {
		s.deleteBlob(ctx, saved.Key)
		return nil, storageErr("content pre-check", err)
	}
	if dup {
		s.deleteBlob(ctx, saved.Key)
		return nil, common.ErrDuplicateContent
	}

	// Storage-reported size wins when available; the store may apply its
	// own framing.
	size := saved.Size
	if size < 0 {
		size = bundle.Size
	}

	entry := &models.FileEntry{
		OwnerID:       cmd.OwnerID,
		ContentType:   s.resolveContentType(cmd.ContentTypeHint, bundle.Head, filename),
		Size:          size,
		Visibility:    visibility,
		Tags:          models.NormalizeTags(cmd.Tags),
		StorageKey:    saved.Key,
		ContentSHA256: bundle.SHA256,
	}
	entry.SetFilename(filename)

	if err := fileRepo.Insert(ctx, entry); err != nil {
		switch {
		case errors.Is(err, common.ErrDuplicateContent), errors.Is(err, common.ErrDuplicateFilename):
			// Lost the race. The loser's blob is deleted on both duplicate
			// paths; keys are never shared, so the winner is untouched.
			s.deleteBlob(ctx, saved.Key)
			return nil, err
		default:
			s.deleteBlob(ctx, saved.Key)
			return nil, storageErr("insert metadata", err)
		}
	}

	token, err := s.issueToken(ctx, entry.ID, cmd.OwnerID)
	if err != nil {
		// The entry stays committed: a missing token can be re-issued, a
		// lost entry cannot.
		return nil, fmt.Errorf("issue download token: %w", err)
	}

	return &UploadResult{FileID: entry.ID, Token: token}, nil
}

// resolveContentType prefers a meaningful caller hint, then detection,
// then the generic fallback.
func (s *FileService) resolveContentType(hint string, head []byte, filename string) string {
	if meaningfulContentType(hint) {
		return hint
	}
	if detected, ok := s.detector.Detect(head, filename); ok {
		return detected
	}
	return detect.OctetStream
}

func meaningfulContentType(ct string) bool {
	trimmed := strings.TrimSpace(ct)
	return trimmed != "" && !strings.EqualFold(trimmed, detect.OctetStream)
}

// deleteBlob is the compensating cleanup for a blob whose metadata commit
// did not happen. Failure is logged, never propagated: it must not mask
// the error that triggered the compensation.
func (s *FileService) deleteBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log.Warn(ctx, "orphan blob cleanup failed", "key", key, "error", err)
	}
}
