// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/qolzam/telar-drive/internal/database/postgres"
	storageErrors "github.com/qolzam/telar-drive/storage/errors"
	"github.com/qolzam/telar-drive/storage/models"
)

const fileColumns = "id, filename, original_name, mime_type, size, storage_key, provider, status, folder_id, owner_id, is_public, expires_at, created_at, updated_at"

type postgresRepository struct {
	client *postgres.Client
	schema string
}

// NewPostgresRepository creates a repository using the default schema.
func NewPostgresRepository(client *postgres.Client) Repository {
	return &postgresRepository{client: client, schema: ""}
}

// NewPostgresRepositoryWithSchema creates a repository using a specific schema.
func NewPostgresRepositoryWithSchema(client *postgres.Client, schema string) Repository {
	return &postgresRepository{client: client, schema: schema}
}

func (r *postgresRepository) getExecutor(ctx context.Context) sqlx.ExtContext {
	if txVal := ctx.Value("tx"); txVal != nil {
		if tx, ok := txVal.(*sqlx.Tx); ok {
			return tx
		}
	}
	return r.client.DB()
}

func (r *postgresRepository) prefixSchema(query string) string {
	if r.schema != "" {
		return strings.ReplaceAll(query, "%s", r.schema+".")
	}
	return strings.ReplaceAll(query, "%s", "")
}

// escapeLike neutralizes LIKE wildcards in a literal value. Folder
// names may legitimately contain '_', which would otherwise match any
// single character.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

// Create inserts a new file record
func (r *postgresRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO %sfiles (` + fileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	exec := r.getExecutor(ctx)
	_, err := exec.ExecContext(ctx, r.prefixSchema(query),
		file.ID, file.Filename, file.OriginalName, file.MimeType, file.Size, file.StorageKey,
		file.Provider, file.Status, file.FolderID, file.OwnerID, file.IsPublic, file.ExpiresAt,
		file.CreatedAt, file.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

// FindByID retrieves a file by its ID
func (r *postgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM %sfiles
		WHERE id = $1
	`

	exec := r.getExecutor(ctx)
	var file models.File
	err := exec.QueryRowxContext(ctx, r.prefixSchema(query), id).StructScan(&file)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, storageErrors.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to find file: %w", err)
	}
	return &file, nil
}

// List retrieves non-deleted files matching the filter, newest first.
func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]*models.File, int64, error) {
	conditions := []string{"owner_id = $1", "status != 'DELETED'"}
	args := []interface{}{filter.OwnerID}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(filename ILIKE $%d OR original_name ILIKE $%d)", len(args), len(args)))
	}
	if filter.FolderID != nil {
		args = append(args, *filter.FolderID)
		conditions = append(conditions, fmt.Sprintf("folder_id = $%d", len(args)))
	} else if filter.RootOnly {
		conditions = append(conditions, "folder_id IS NULL")
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")
	exec := r.getExecutor(ctx)

	countQuery := r.prefixSchema("SELECT COUNT(*) FROM %sfiles WHERE " + where)
	var total int64
	if err := exec.QueryRowxContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count files: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	listQuery := r.prefixSchema(fmt.Sprintf(
		"SELECT "+fileColumns+" FROM %%sfiles WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args),
	))

	var files []*models.File
	if err := sqlx.SelectContext(ctx, exec, &files, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list files: %w", err)
	}
	return files, total, nil
}

// Update persists the mutable file fields
func (r *postgresRepository) Update(ctx context.Context, file *models.File) error {
	query := `
		UPDATE %sfiles
		SET filename = $1, folder_id = $2, is_public = $3, storage_key = $4, updated_at = $5
		WHERE id = $6
	`

	exec := r.getExecutor(ctx)
	result, err := exec.ExecContext(ctx, r.prefixSchema(query),
		file.Filename, file.FolderID, file.IsPublic, file.StorageKey, time.Now(), file.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return storageErrors.ErrFileNotFound
	}
	return nil
}

// UpdateStatus updates the status of a file
func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE %sfiles
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	exec := r.getExecutor(ctx)
	_, err := exec.ExecContext(ctx, r.prefixSchema(query), status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update file status: %w", err)
	}
	return nil
}

// MarkUploaded transitions the file to UPLOADED and clears its expiry
func (r *postgresRepository) MarkUploaded(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE %sfiles
		SET status = 'UPLOADED', expires_at = NULL, updated_at = $1
		WHERE id = $2
	`

	exec := r.getExecutor(ctx)
	_, err := exec.ExecContext(ctx, r.prefixSchema(query), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark file uploaded: %w", err)
	}
	return nil
}

// SoftDelete sets the file status to DELETED
func (r *postgresRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.UpdateStatus(ctx, id, models.StatusDeleted)
}

// HardDelete permanently deletes a file record
func (r *postgresRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM %sfiles
		WHERE id = $1
	`

	exec := r.getExecutor(ctx)
	_, err := exec.ExecContext(ctx, r.prefixSchema(query), id)
	if err != nil {
		return fmt.Errorf("failed to hard delete file: %w", err)
	}
	return nil
}

// HardDeletePending deletes the row only while it is still PENDING.
// The status guard makes the reaper lose the race against a concurrent
// confirmation.
func (r *postgresRepository) HardDeletePending(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		DELETE FROM %sfiles
		WHERE id = $1 AND status = 'PENDING'
	`

	exec := r.getExecutor(ctx)
	result, err := exec.ExecContext(ctx, r.prefixSchema(query), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete pending file: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows > 0, nil
}

// FindExpiredPending retrieves PENDING rows whose expiry has passed
func (r *postgresRepository) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*models.File, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM %sfiles
		WHERE status = 'PENDING' AND expires_at IS NOT NULL AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2
	`

	var files []*models.File
	err := sqlx.SelectContext(ctx, r.getExecutor(ctx), &files, r.prefixSchema(query), now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired pending files: %w", err)
	}
	return files, nil
}

// CountByFolder counts non-deleted files inside a folder
func (r *postgresRepository) CountByFolder(ctx context.Context, folderID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM %sfiles
		WHERE folder_id = $1 AND status != 'DELETED'
	`

	exec := r.getExecutor(ctx)
	var count int64
	if err := exec.QueryRowxContext(ctx, r.prefixSchema(query), folderID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count files in folder: %w", err)
	}
	return count, nil
}

// FindByFolderPathPrefix retrieves UPLOADED files living in the folder
// at the path or anywhere underneath it.
func (r *postgresRepository) FindByFolderPathPrefix(ctx context.Context, ownerID uuid.UUID, path string) ([]*models.File, error) {
	query := `
		SELECT f.` + strings.ReplaceAll(fileColumns, ", ", ", f.") + `
		FROM %sfiles f
		JOIN %sfolders fo ON f.folder_id = fo.id
		WHERE fo.owner_id = $1
		  AND (fo.path = $2 OR fo.path LIKE $3 ESCAPE '\')
		  AND f.status = 'UPLOADED'
		ORDER BY f.created_at DESC
	`

	var files []*models.File
	err := sqlx.SelectContext(ctx, r.getExecutor(ctx), &files, r.prefixSchema(query),
		ownerID, path, escapeLike(path)+"/%",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find files under folder path: %w", err)
	}
	return files, nil
}

// WithTransaction executes a function within a database transaction
func (r *postgresRepository) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	tx, err := r.client.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txCtx := context.WithValue(ctx, "tx", tx)

	if err := fn(txCtx); err != nil {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			return fmt.Errorf("transaction failed and rollback failed: %w (original error: %v)", rollbackErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
