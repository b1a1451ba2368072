// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	folderErrors "github.com/qolzam/telar-drive/folders/errors"
	"github.com/qolzam/telar-drive/folders/models"
	"github.com/qolzam/telar-drive/internal/database/postgres"
)

const folderColumns = "id, name, path, parent_id, owner_id, is_public, created_at, updated_at"

// uniqueViolation is the PostgreSQL error code for a unique constraint
// violation, raised by the (owner_id, path) index.
const uniqueViolation = "23505"

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

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// escapeLike neutralizes LIKE wildcards in a literal value. Folder
// names may legitimately contain '_', which would otherwise match any
// single character.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

// Create inserts a new folder record
func (r *postgresRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := `
		INSERT INTO %sfolders (` + folderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	exec := r.getExecutor(ctx)
	_, err := exec.ExecContext(ctx, r.prefixSchema(query),
		folder.ID, folder.Name, folder.Path, folder.ParentID, folder.OwnerID,
		folder.IsPublic, folder.CreatedAt, folder.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return folderErrors.ErrFolderConflict
		}
		return fmt.Errorf("failed to create folder: %w", err)
	}
	return nil
}

// FindByID retrieves a folder by its ID
func (r *postgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Folder, error) {
	query := `
		SELECT ` + folderColumns + `
		FROM %sfolders
		WHERE id = $1
	`

	exec := r.getExecutor(ctx)
	var folder models.Folder
	err := exec.QueryRowxContext(ctx, r.prefixSchema(query), id).StructScan(&folder)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, folderErrors.ErrFolderNotFound
		}
		return nil, fmt.Errorf("failed to find folder: %w", err)
	}
	return &folder, nil
}

// FindByPath retrieves the owner's folder at an exact path
func (r *postgresRepository) FindByPath(ctx context.Context, ownerID uuid.UUID, path string) (*models.Folder, error) {
	query := `
		SELECT ` + folderColumns + `
		FROM %sfolders
		WHERE owner_id = $1 AND path = $2
	`

	exec := r.getExecutor(ctx)
	var folder models.Folder
	err := exec.QueryRowxContext(ctx, r.prefixSchema(query), ownerID, path).StructScan(&folder)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, folderErrors.ErrFolderNotFound
		}
		return nil, fmt.Errorf("failed to find folder by path: %w", err)
	}
	return &folder, nil
}

// List retrieves folders matching the filter, path order.
func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]*models.Folder, int64, error) {
	conditions := []string{"owner_id = $1"}
	args := []interface{}{filter.OwnerID}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.ParentID != nil {
		args = append(args, *filter.ParentID)
		conditions = append(conditions, fmt.Sprintf("parent_id = $%d", len(args)))
	} else if filter.RootOnly {
		conditions = append(conditions, "parent_id IS NULL")
	}

	where := strings.Join(conditions, " AND ")
	exec := r.getExecutor(ctx)

	countQuery := r.prefixSchema("SELECT COUNT(*) FROM %sfolders WHERE " + where)
	var total int64
	if err := exec.QueryRowxContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count folders: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	listQuery := r.prefixSchema(fmt.Sprintf(
		"SELECT "+folderColumns+" FROM %%sfolders WHERE %s ORDER BY path ASC LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args),
	))

	var folders []*models.Folder
	if err := sqlx.SelectContext(ctx, exec, &folders, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, total, nil
}

// ListChildren retrieves the direct children of a folder
func (r *postgresRepository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*models.Folder, error) {
	query := `
		SELECT ` + folderColumns + `
		FROM %sfolders
		WHERE parent_id = $1
		ORDER BY name ASC
	`

	var folders []*models.Folder
	err := sqlx.SelectContext(ctx, r.getExecutor(ctx), &folders, r.prefixSchema(query), parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list child folders: %w", err)
	}
	return folders, nil
}

// CountChildren counts the direct children of a folder
func (r *postgresRepository) CountChildren(ctx context.Context, parentID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM %sfolders
		WHERE parent_id = $1
	`

	exec := r.getExecutor(ctx)
	var count int64
	if err := exec.QueryRowxContext(ctx, r.prefixSchema(query), parentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count child folders: %w", err)
	}
	return count, nil
}

// Update persists name, path and parent of a folder row
func (r *postgresRepository) Update(ctx context.Context, folder *models.Folder) error {
	query := `
		UPDATE %sfolders
		SET name = $1, path = $2, parent_id = $3, is_public = $4, updated_at = $5
		WHERE id = $6
	`

	exec := r.getExecutor(ctx)
	result, err := exec.ExecContext(ctx, r.prefixSchema(query),
		folder.Name, folder.Path, folder.ParentID, folder.IsPublic, time.Now(), folder.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return folderErrors.ErrFolderConflict
		}
		return fmt.Errorf("failed to update folder: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return folderErrors.ErrFolderNotFound
	}
	return nil
}

// RewriteSubtreePaths rewrites every descendant path of the folder at
// oldPath in a single statement. The strict '/' prefix match leaves the
// folder row itself alone; Update handles that one. The pattern is
// escaped so '_' and '%' in folder names match only themselves.
func (r *postgresRepository) RewriteSubtreePaths(ctx context.Context, ownerID uuid.UUID, oldPath string, newPath string) error {
	query := `
		UPDATE %sfolders
		SET path = $1 || substr(path, length($2) + 1), updated_at = $3
		WHERE owner_id = $4 AND path LIKE $5 ESCAPE '\'
	`

	exec := r.getExecutor(ctx)
	_, err := exec.ExecContext(ctx, r.prefixSchema(query),
		newPath, oldPath, time.Now(), ownerID, escapeLike(oldPath)+"/%",
	)
	if err != nil {
		if isUniqueViolation(err) {
			return folderErrors.ErrFolderConflict
		}
		return fmt.Errorf("failed to rewrite subtree paths: %w", err)
	}
	return nil
}

// Delete removes a folder row
func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM %sfolders
		WHERE id = $1
	`

	exec := r.getExecutor(ctx)
	result, err := exec.ExecContext(ctx, r.prefixSchema(query), id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return folderErrors.ErrFolderNotFound
	}
	return nil
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
