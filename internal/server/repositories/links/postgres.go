package links

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/djamrezki/storage-stream-api/internal/common"
	"github.com/djamrezki/storage-stream-api/internal/dbx"
	"github.com/djamrezki/storage-stream-api/internal/server/models"
)

const uniqueViolation = "23505"

// PostgresRepository implements Repository over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, link *models.DownloadLink) error {
	query := `
		INSERT INTO download_links (token, file_id, created_by, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		link.Token, link.FileID, link.CreatedBy, link.ExpiresAt).
		Scan(&link.ID, &link.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*models.DownloadLink, error) {
	query := `
		SELECT id, token, file_id, created_by, created_at, expires_at, access_count
		FROM download_links
		WHERE token = $1
	`
	link := &models.DownloadLink{}
	err := r.db.QueryRowContext(ctx, query, token).
		Scan(&link.ID, &link.Token, &link.FileID, &link.CreatedBy,
			&link.CreatedAt, &link.ExpiresAt, &link.AccessCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return link, nil
}

func (r *PostgresRepository) IncrementAccessCount(ctx context.Context, token string) error {
	// Single atomic UPDATE, never read-modify-write.
	query := `UPDATE download_links SET access_count = access_count + 1 WHERE token = $1`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteAllForFile(ctx context.Context, fileID string) error {
	query := `DELETE FROM download_links WHERE file_id = $1`
	if _, err := r.db.ExecContext(ctx, query, fileID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
