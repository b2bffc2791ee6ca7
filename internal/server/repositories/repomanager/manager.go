// Package repomanager vends repository implementations bound to a DBTX,
// so services can run them against either a connection pool or a
// transaction, and exposes the schema migration hook.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/djamrezki/storage-stream-api/internal/dbx"
	"github.com/djamrezki/storage-stream-api/internal/server/repositories/files"
	"github.com/djamrezki/storage-stream-api/internal/server/repositories/links"
)

// RepositoryManager creates repositories over the provided DBTX.
type RepositoryManager interface {
	Files(db dbx.DBTX) files.Repository
	Links(db dbx.DBTX) links.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
