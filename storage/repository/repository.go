// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"time"

	uuid "github.com/gofrs/uuid"

	"github.com/qolzam/telar-drive/storage/models"
)

// ListFilter holds the repository-level file listing filters. OwnerID
// is always set; the caller decides whose files are visible.
type ListFilter struct {
	OwnerID     uuid.UUID
	Search      string
	FolderID    *uuid.UUID
	RootOnly    bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// Repository defines the interface for file metadata operations
type Repository interface {
	// Create inserts a new file record
	Create(ctx context.Context, file *models.File) error

	// FindByID retrieves a file by its ID regardless of status
	FindByID(ctx context.Context, id uuid.UUID) (*models.File, error)

	// List retrieves non-deleted files matching the filter, newest
	// first, plus the total match count for pagination.
	List(ctx context.Context, filter ListFilter) ([]*models.File, int64, error)

	// Update persists the mutable file fields (filename, folder,
	// visibility) and bumps updated_at.
	Update(ctx context.Context, file *models.File) error

	// UpdateStatus updates the status of a file
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error

	// MarkUploaded transitions the file to UPLOADED and clears its
	// pending expiry.
	MarkUploaded(ctx context.Context, id uuid.UUID) error

	// SoftDelete sets the file status to DELETED
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// HardDelete permanently deletes a file record
	HardDelete(ctx context.Context, id uuid.UUID) error

	// HardDeletePending deletes the row only while it is still PENDING,
	// so a concurrent confirmation wins over the reaper. Reports
	// whether a row was deleted.
	HardDeletePending(ctx context.Context, id uuid.UUID) (bool, error)

	// FindExpiredPending retrieves PENDING rows whose expiry has passed.
	FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*models.File, error)

	// CountByFolder counts non-deleted files inside a folder.
	CountByFolder(ctx context.Context, folderID uuid.UUID) (int64, error)

	// FindByFolderPathPrefix retrieves UPLOADED files whose folder path
	// equals the prefix or sits underneath it. Used by share browsing.
	FindByFolderPathPrefix(ctx context.Context, ownerID uuid.UUID, path string) ([]*models.File, error)

	// WithTransaction executes a function within a database transaction
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}
