// Package services contains the server-side business logic: the upload
// ingestion pipeline, the deletion cascade, token-based retrieval, renames
// and listings. Correctness under concurrency comes from the metadata
// store's unique indexes, not from in-process locks; every existence
// query here is an advisory fast path only.
package services

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/djamrezki/storage-stream-api/internal/common"
	"github.com/djamrezki/storage-stream-api/internal/logging"
	"github.com/djamrezki/storage-stream-api/internal/server/detect"
	"github.com/djamrezki/storage-stream-api/internal/server/repositories/repomanager"
	"github.com/djamrezki/storage-stream-api/internal/server/scan"
	"github.com/djamrezki/storage-stream-api/internal/server/storage"
	"github.com/djamrezki/storage-stream-api/internal/streamx"
)

const (
	tokenLength         = 32
	tokenFallbackLength = 40
	tokenAttempts       = 5
)

// FileService implements the file lifecycle operations.
type FileService struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	blobs    storage.Store
	detector detect.Detector
	scanner  scan.Scanner
	log      logging.Logger
	window   int
}

// NewFileService wires the service. A non-positive sniff window falls back
// to streamx.DefaultSniffWindow.
func NewFileService(db *sql.DB, repos repomanager.RepositoryManager, blobs storage.Store,
	detector detect.Detector, scanner scan.Scanner, log logging.Logger, sniffWindow int) *FileService {
	if sniffWindow <= 0 {
		sniffWindow = streamx.DefaultSniffWindow
	}
	return &FileService{
		db:       db,
		repos:    repos,
		blobs:    blobs,
		detector: detector,
		scanner:  scanner,
		log:      log,
		window:   sniffWindow,
	}
}

// validOwner trims the owner ID and rejects blanks and anything that
// could act as a path segment once the ID is embedded in a blob key.
func validOwner(owner string) (string, error) {
	trimmed := strings.TrimSpace(owner)
	if trimmed == "" {
		return "", fmt.Errorf("%w: owner is required", common.ErrValidation)
	}
	if strings.ContainsAny(trimmed, `/\`) || strings.Contains(trimmed, "..") {
		return "", fmt.Errorf("%w: owner must not contain path separators", common.ErrValidation)
	}
	return trimmed, nil
}

// validFilename trims the name and rejects blanks and path separators.
func validFilename(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: filename is required", common.ErrValidation)
	}
	if strings.ContainsAny(trimmed, `/\`) {
		return "", fmt.Errorf("%w: filename must not contain path separators", common.ErrValidation)
	}
	return trimmed, nil
}

// storageErr tags err as a storage failure while keeping the cause in the
// chain, so errors.Is matches both.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, common.ErrStorage, err)
}
