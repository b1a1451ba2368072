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
	shareErrors "github.com/qolzam/telar-drive/sharelinks/errors"
	"github.com/qolzam/telar-drive/sharelinks/models"
)

const shareLinkColumns = "id, token, file_id, folder_id, owner_id, expires_at, max_views, views, password_hash, created_at"

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

// Create inserts a new share link record
func (r *postgresRepository) Create(ctx context.Context, link *models.ShareLink) error {
	query := `
		INSERT INTO %sshare_links (` + shareLinkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	exec := r.getExecutor(ctx)
	_, err := exec.ExecContext(ctx, r.prefixSchema(query),
		link.ID, link.Token, link.FileID, link.FolderID, link.OwnerID,
		link.ExpiresAt, link.MaxViews, link.Views, link.PasswordHash, link.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create share link: %w", err)
	}
	return nil
}

// FindByID retrieves a share link by its ID
func (r *postgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ShareLink, error) {
	query := `
		SELECT ` + shareLinkColumns + `
		FROM %sshare_links
		WHERE id = $1
	`

	exec := r.getExecutor(ctx)
	var link models.ShareLink
	err := exec.QueryRowxContext(ctx, r.prefixSchema(query), id).StructScan(&link)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shareErrors.ErrShareNotFound
		}
		return nil, fmt.Errorf("failed to find share link: %w", err)
	}
	return &link, nil
}

// FindByToken retrieves a share link by its public token
func (r *postgresRepository) FindByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	query := `
		SELECT ` + shareLinkColumns + `
		FROM %sshare_links
		WHERE token = $1
	`

	exec := r.getExecutor(ctx)
	var link models.ShareLink
	err := exec.QueryRowxContext(ctx, r.prefixSchema(query), token).StructScan(&link)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shareErrors.ErrShareNotFound
		}
		return nil, fmt.Errorf("failed to find share link by token: %w", err)
	}
	return &link, nil
}

// ListForFile retrieves every share link pointing at a file
func (r *postgresRepository) ListForFile(ctx context.Context, fileID uuid.UUID) ([]*models.ShareLink, error) {
	query := `
		SELECT ` + shareLinkColumns + `
		FROM %sshare_links
		WHERE file_id = $1
		ORDER BY created_at DESC
	`

	var links []*models.ShareLink
	err := sqlx.SelectContext(ctx, r.getExecutor(ctx), &links, r.prefixSchema(query), fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list share links for file: %w", err)
	}
	return links, nil
}

// ListForFolder retrieves every share link pointing at a folder
func (r *postgresRepository) ListForFolder(ctx context.Context, folderID uuid.UUID) ([]*models.ShareLink, error) {
	query := `
		SELECT ` + shareLinkColumns + `
		FROM %sshare_links
		WHERE folder_id = $1
		ORDER BY created_at DESC
	`

	var links []*models.ShareLink
	err := sqlx.SelectContext(ctx, r.getExecutor(ctx), &links, r.prefixSchema(query), folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list share links for folder: %w", err)
	}
	return links, nil
}

// IncrementViews bumps the view counter atomically. The WHERE guard
// makes concurrent accesses race safely against the view budget.
func (r *postgresRepository) IncrementViews(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE %sshare_links
		SET views = views + 1
		WHERE id = $1 AND (max_views IS NULL OR views < max_views)
	`

	exec := r.getExecutor(ctx)
	result, err := exec.ExecContext(ctx, r.prefixSchema(query), id)
	if err != nil {
		return false, fmt.Errorf("failed to increment share link views: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows > 0, nil
}

// Delete removes a share link record
func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM %sshare_links
		WHERE id = $1
	`

	exec := r.getExecutor(ctx)
	result, err := exec.ExecContext(ctx, r.prefixSchema(query), id)
	if err != nil {
		return fmt.Errorf("failed to delete share link: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return shareErrors.ErrShareNotFound
	}
	return nil
}

// DeleteExpired removes links past their expiry
func (r *postgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM %sshare_links
		WHERE expires_at < $1
	`

	exec := r.getExecutor(ctx)
	result, err := exec.ExecContext(ctx, r.prefixSchema(query), now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired share links: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows, nil
}
