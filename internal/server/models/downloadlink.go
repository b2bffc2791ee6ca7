package models

import "time"

// DownloadLink is an unguessable capability token granting retrieval of a
// FileEntry without authentication. Tokens are globally unique and never
// reused; expiry, when set, is enforced by the store's purge policy.
type DownloadLink struct {
	// ID is assigned by the metadata store on insert.
	ID string
	// Token is the opaque, globally unique download token.
	Token string
	// FileID references the target FileEntry.
	FileID string
	// CreatedBy is the owner who issued the link.
	CreatedBy string

	CreatedAt time.Time
	// ExpiresAt is optional; nil means the link never expires.
	ExpiresAt *time.Time
	// AccessCount tracks successful downloads, incremented best-effort.
	AccessCount int64
}
