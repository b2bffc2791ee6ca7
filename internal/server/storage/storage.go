// Package storage defines the blob store port consumed by the services
// and its S3 and local-filesystem adapters. Blobs are addressed by opaque
// keys generated fresh per write attempt and never reused.
package storage

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
)

// SaveHints carries optional request context for the write. Adapters may
// use or ignore any of it; it never affects the key.
type SaveHints struct {
	// OwnerID prefixes the generated key so blobs group by owner.
	OwnerID string
	// FilenameHint is the user-facing name, for adapter-side metadata only.
	FilenameHint string
	// ContentTypeHint is the caller-supplied media type, if any.
	ContentTypeHint string
	// Metadata is attached to the stored object where the backend supports it.
	Metadata map[string]string
}

// SaveResult reports the outcome of a completed blob write.
type SaveResult struct {
	// Key addresses the blob for Open and Delete.
	Key string
	// Size is the byte count as reported by the backend, or -1 when the
	// backend cannot report one; the caller then falls back to its own
	// observed count.
	Size int64
}

// Store is the blob store contract.
type Store interface {
	// Save consumes the stream to completion and persists it under a fresh
	// key. The write begins immediately; nothing is buffered in full.
	Save(ctx context.Context, r io.Reader, hints SaveHints) (SaveResult, error)

	// Open returns the blob's bytes and size, or common.ErrNotFound when
	// no blob exists under the key.
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// Delete removes the blob. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// NewKey generates an owner-prefixed, unguessable blob key.
func NewKey(ownerID string) string {
	return ownerID + "/" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
