// Package common defines sentinel errors and small helpers shared across
// the server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// ErrNotFound covers a missing file, a missing link and an ownership
	// mismatch alike, so a caller cannot distinguish "not yours" from
	// "does not exist".
	ErrNotFound = errors.New("not found")

	// Duplicate errors map to a conflict outcome. Which one is raised
	// depends on the unique index the insert or update tripped over.
	ErrDuplicateFilename = errors.New("filename already exists")
	ErrDuplicateContent  = errors.New("file content already exists")

	// ErrStaleUpdate reports a lost optimistic-concurrency race: the row
	// changed between read and version-checked write.
	ErrStaleUpdate = errors.New("stale update")

	// ErrAlreadyExists is the raw unique-violation signal for records
	// without a finer classification (e.g. a download token collision).
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation flags malformed input, e.g. a blank filename or one
	// containing path separators.
	ErrValidation = errors.New("validation error")

	// ErrVirusDetected is raised when the scanner verdict is Infected or
	// when the scan itself failed.
	ErrVirusDetected = errors.New("virus detected")

	// ErrStorage wraps blob or metadata I/O failures not otherwise
	// classified.
	ErrStorage = errors.New("storage failure")
)
