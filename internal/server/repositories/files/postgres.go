package files

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/djamrezki/storage-stream-api/internal/common"
	"github.com/djamrezki/storage-stream-api/internal/dbx"
	"github.com/djamrezki/storage-stream-api/internal/server/models"
)

const (
	uniqueViolation    = "23505"
	constraintFilename = "uniq_owner_filename"
	constraintSHA256   = "uniq_owner_sha256"
)

// PostgresRepository implements Repository over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// mapUniqueViolation translates a 23505 into the typed duplicate error for
// the constraint that was hit. Any other error passes through unchanged.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case constraintFilename:
		return common.ErrDuplicateFilename
	case constraintSHA256:
		return common.ErrDuplicateContent
	default:
		return common.ErrAlreadyExists
	}
}

func (r *PostgresRepository) Insert(ctx context.Context, entry *models.FileEntry) error {
	tags, err := json.Marshal(models.NormalizeTags(entry.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	query := `
		INSERT INTO files (owner_id, filename, filename_lc, content_type, size, visibility, tags, storage_key, content_sha256)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at, version
	`
	err = r.db.QueryRowContext(ctx, query,
		entry.OwnerID, entry.Filename, entry.FilenameLc, entry.ContentType,
		entry.Size, entry.Visibility, tags, entry.StorageKey, entry.ContentSHA256).
		Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt, &entry.Version)

	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.FileEntry, error) {
	query := `
		SELECT id, owner_id, filename, filename_lc, content_type, size, visibility, tags, storage_key, content_sha256, created_at, updated_at, version
		FROM files
		WHERE id = $1
	`
	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entry, nil
}

func (r *PostgresRepository) ExistsByOwnerAndFilenameLc(ctx context.Context, ownerID, filenameLc string) (bool, error) {
	return r.exists(ctx,
		`SELECT EXISTS(SELECT 1 FROM files WHERE owner_id = $1 AND filename_lc = $2)`,
		ownerID, filenameLc)
}

func (r *PostgresRepository) ExistsByOwnerAndDigest(ctx context.Context, ownerID, sha256Hex string) (bool, error) {
	return r.exists(ctx,
		`SELECT EXISTS(SELECT 1 FROM files WHERE owner_id = $1 AND content_sha256 = $2)`,
		ownerID, sha256Hex)
}

func (r *PostgresRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

func (r *PostgresRepository) UpdateFilenameWithVersionCheck(ctx context.Context, entry *models.FileEntry) error {
	query := `
		UPDATE files
		SET filename = $1, filename_lc = $2, updated_at = now(), version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING updated_at, version
	`
	err := r.db.QueryRowContext(ctx, query,
		entry.Filename, entry.FilenameLc, entry.ID, entry.Version).
		Scan(&entry.UpdatedAt, &entry.Version)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrStaleUpdate
		}
		if mapped := mapUniqueViolation(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, tags []string) ([]*models.FileEntry, error) {
	filter, err := tagFilter(tags)
	if err != nil {
		return nil, err
	}
	// jsonb containment: an empty filter array is contained in every row.
	query := `
		SELECT id, owner_id, filename, filename_lc, content_type, size, visibility, tags, storage_key, content_sha256, created_at, updated_at, version
		FROM files
		WHERE owner_id = $1 AND tags @> $2
		ORDER BY filename_lc
	`
	return r.list(ctx, query, ownerID, filter)
}

func (r *PostgresRepository) ListPublic(ctx context.Context, tags []string) ([]*models.FileEntry, error) {
	filter, err := tagFilter(tags)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT id, owner_id, filename, filename_lc, content_type, size, visibility, tags, storage_key, content_sha256, created_at, updated_at, version
		FROM files
		WHERE visibility = $1 AND tags @> $2
		ORDER BY filename_lc
	`
	return r.list(ctx, query, models.VisibilityPublic, filter)
}

func tagFilter(tags []string) ([]byte, error) {
	filter, err := json.Marshal(models.NormalizeTags(tags))
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return filter, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.FileEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.FileEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.FileEntry, error) {
	var (
		entry models.FileEntry
		tags  []byte
	)
	err := row.Scan(&entry.ID, &entry.OwnerID, &entry.Filename, &entry.FilenameLc,
		&entry.ContentType, &entry.Size, &entry.Visibility, &tags,
		&entry.StorageKey, &entry.ContentSHA256,
		&entry.CreatedAt, &entry.UpdatedAt, &entry.Version)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tags, &entry.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return &entry, nil
}
