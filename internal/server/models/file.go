// Package models defines the server-side records persisted in the
// metadata store. The bytes themselves live in object storage and are
// referenced by an opaque storage key.
package models

import (
	"strings"
	"time"
)

// Visibility controls whether a file appears in the cross-owner public
// listing. Private files are visible to their owner only.
type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

// MaxTags caps the normalized tag set per file.
const MaxTags = 5

// FileEntry is one durable record per successfully committed upload.
//
// Uniqueness, scoped to the owner and enforced by the metadata store:
//   - (OwnerID, FilenameLc)
//   - (OwnerID, ContentSHA256)
//
// Size and StorageKey are only ever set after the blob write completed.
type FileEntry struct {
	// ID is assigned by the metadata store on insert.
	ID string
	// OwnerID identifies the uploading user.
	OwnerID string
	// Filename as provided by the user, preserved for display.
	Filename string
	// FilenameLc is the lower-cased filename used for uniqueness checks
	// and case-insensitive sorting.
	FilenameLc string
	// ContentType is the resolved media type.
	ContentType string
	// Size in bytes.
	Size int64
	// Visibility is PUBLIC or PRIVATE.
	Visibility Visibility
	// Tags, normalized: lower-cased, trimmed, deduplicated, at most MaxTags.
	Tags []string
	// StorageKey is the opaque blob store key.
	StorageKey string
	// ContentSHA256 is the hex-encoded digest of the content.
	ContentSHA256 string

	CreatedAt time.Time
	UpdatedAt time.Time
	// Version increments on every successful update and backs the
	// optimistic-concurrency check.
	Version int64
}

// SetFilename stores the display name and derives the lower-cased form.
func (e *FileEntry) SetFilename(name string) {
	e.Filename = name
	e.FilenameLc = strings.ToLower(name)
}

// NormalizeTags lower-cases, trims, deduplicates and caps the input at
// MaxTags entries, preserving first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, min(len(tags), MaxTags))
	for _, t := range tags {
		nt := strings.ToLower(strings.TrimSpace(t))
		if nt == "" {
			continue
		}
		dup := false
		for _, seen := range out {
			if seen == nt {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		out = append(out, nt)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}
