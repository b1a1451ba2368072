// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"

	uuid "github.com/gofrs/uuid"

	"github.com/qolzam/telar-drive/folders/models"
	"github.com/qolzam/telar-drive/internal/types"
)

// FileCounter reports how many live files a folder holds. The storage
// module provides the implementation; the narrow interface keeps the
// two modules decoupled.
type FileCounter interface {
	CountByFolder(ctx context.Context, folderID uuid.UUID) (int64, error)
}

// FolderService defines the interface for folder management
type FolderService interface {
	// CreateFolder creates a folder under an optional parent
	CreateFolder(ctx context.Context, req *models.CreateFolderRequest, user types.UserContext) (*models.Folder, error)

	// GetFolder retrieves a folder with its direct children and file count
	GetFolder(ctx context.Context, folderID uuid.UUID, user types.UserContext) (*models.FolderDetailResponse, error)

	// ListFolders retrieves a filtered, paginated folder listing
	ListFolders(ctx context.Context, query *models.ListFoldersQuery, user types.UserContext) (*models.ListFoldersResponse, error)

	// RenameFolder renames a folder and rewrites every descendant path
	RenameFolder(ctx context.Context, folderID uuid.UUID, req *models.RenameFolderRequest, user types.UserContext) (*models.Folder, error)

	// MoveFolder reparents a folder and rewrites every descendant path
	MoveFolder(ctx context.Context, folderID uuid.UUID, req *models.MoveFolderRequest, user types.UserContext) (*models.Folder, error)

	// DeleteFolder removes an empty folder
	DeleteFolder(ctx context.Context, folderID uuid.UUID, user types.UserContext) error
}
