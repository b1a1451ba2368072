// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"

	uuid "github.com/gofrs/uuid"

	"github.com/qolzam/telar-drive/folders/models"
)

// ListFilter narrows a folder listing.
type ListFilter struct {
	OwnerID  uuid.UUID
	Search   string
	ParentID *uuid.UUID
	RootOnly bool
	Limit    int
	Offset   int
}

// Repository defines data access for folders.
type Repository interface {
	// Create inserts a new folder. A path collision for the owner
	// surfaces as ErrFolderConflict.
	Create(ctx context.Context, folder *models.Folder) error

	// FindByID retrieves a folder by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*models.Folder, error)

	// FindByPath retrieves the owner's folder at an exact path
	FindByPath(ctx context.Context, ownerID uuid.UUID, path string) (*models.Folder, error)

	// List retrieves folders matching the filter plus the total count
	List(ctx context.Context, filter ListFilter) ([]*models.Folder, int64, error)

	// ListChildren retrieves the direct children of a folder
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]*models.Folder, error)

	// CountChildren counts the direct children of a folder
	CountChildren(ctx context.Context, parentID uuid.UUID) (int64, error)

	// Update persists name, path and parent of a folder row. A path
	// collision for the owner surfaces as ErrFolderConflict.
	Update(ctx context.Context, folder *models.Folder) error

	// RewriteSubtreePaths replaces the oldPath prefix with newPath on
	// every descendant of the folder at oldPath, in one statement.
	RewriteSubtreePaths(ctx context.Context, ownerID uuid.UUID, oldPath string, newPath string) error

	// Delete removes a folder row
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTransaction executes fn within a database transaction
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}
