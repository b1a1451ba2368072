// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	uuid "github.com/gofrs/uuid"

	folderErrors "github.com/qolzam/telar-drive/folders/errors"
	"github.com/qolzam/telar-drive/folders/models"
	folderRepository "github.com/qolzam/telar-drive/folders/repository"
	"github.com/qolzam/telar-drive/internal/types"
	"github.com/qolzam/telar-drive/storage/provider"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type service struct {
	repo  folderRepository.Repository
	files FileCounter
}

// NewFolderService creates a new folder service
func NewFolderService(repo folderRepository.Repository, files FileCounter) FolderService {
	return &service{
		repo:  repo,
		files: files,
	}
}

// CreateFolder creates a folder under an optional parent
func (s *service) CreateFolder(ctx context.Context, req *models.CreateFolderRequest, user types.UserContext) (*models.Folder, error) {
	name := provider.SanitizeFolderName(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: folder name is empty after sanitization", folderErrors.ErrInvalidRequest)
	}

	parentPath := ""
	if req.ParentID != nil {
		parent, err := s.ownedFolder(ctx, *req.ParentID, user)
		if err != nil {
			return nil, err
		}
		parentPath = parent.Path
	}

	now := time.Now()
	folder := &models.Folder{
		ID:        uuid.Must(uuid.NewV4()),
		Name:      name,
		Path:      provider.BuildFolderPath(parentPath, name),
		ParentID:  req.ParentID,
		OwnerID:   user.UserID,
		IsPublic:  req.IsPublic,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// GetFolder retrieves a folder with its direct children and file count
func (s *service) GetFolder(ctx context.Context, folderID uuid.UUID, user types.UserContext) (*models.FolderDetailResponse, error) {
	folder, err := s.ownedFolder(ctx, folderID, user)
	if err != nil {
		return nil, err
	}

	children, err := s.repo.ListChildren(ctx, folder.ID)
	if err != nil {
		return nil, err
	}
	fileCount, err := s.files.CountByFolder(ctx, folder.ID)
	if err != nil {
		return nil, err
	}

	resp := &models.FolderDetailResponse{
		Folder:    *folder,
		Children:  make([]models.Folder, 0, len(children)),
		FileCount: fileCount,
	}
	for _, child := range children {
		resp.Children = append(resp.Children, *child)
	}
	return resp, nil
}

// ListFolders retrieves a filtered, paginated folder listing
func (s *service) ListFolders(ctx context.Context, query *models.ListFoldersQuery, user types.UserContext) (*models.ListFoldersResponse, error) {
	if query.ParentID != nil && query.Root {
		return nil, fmt.Errorf("%w: parentId and root are mutually exclusive", folderErrors.ErrInvalidRequest)
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	folders, total, err := s.repo.List(ctx, folderRepository.ListFilter{
		OwnerID:  user.UserID,
		Search:   query.Search,
		ParentID: query.ParentID,
		RootOnly: query.Root,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}

	resp := &models.ListFoldersResponse{
		Folders: make([]models.Folder, 0, len(folders)),
		Total:   total,
		Page:    page,
		Limit:   limit,
	}
	for _, folder := range folders {
		resp.Folders = append(resp.Folders, *folder)
	}
	return resp, nil
}

// RenameFolder renames a folder and rewrites every descendant path in
// one transaction.
func (s *service) RenameFolder(ctx context.Context, folderID uuid.UUID, req *models.RenameFolderRequest, user types.UserContext) (*models.Folder, error) {
	folder, err := s.ownedFolder(ctx, folderID, user)
	if err != nil {
		return nil, err
	}

	name := provider.SanitizeFolderName(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: folder name is empty after sanitization", folderErrors.ErrInvalidRequest)
	}
	if name == folder.Name {
		return folder, nil
	}

	oldPath := folder.Path
	newPath := provider.BuildFolderPath(parentPath(oldPath), name)

	err = s.repo.WithTransaction(ctx, func(txCtx context.Context) error {
		folder.Name = name
		folder.Path = newPath
		if err := s.repo.Update(txCtx, folder); err != nil {
			return err
		}
		return s.repo.RewriteSubtreePaths(txCtx, folder.OwnerID, oldPath, newPath)
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// MoveFolder reparents a folder and rewrites every descendant path in
// one transaction.
func (s *service) MoveFolder(ctx context.Context, folderID uuid.UUID, req *models.MoveFolderRequest, user types.UserContext) (*models.Folder, error) {
	folder, err := s.ownedFolder(ctx, folderID, user)
	if err != nil {
		return nil, err
	}

	destPath := ""
	if req.ParentID != nil {
		if *req.ParentID == folder.ID {
			return nil, fmt.Errorf("%w: cannot move a folder into itself", folderErrors.ErrInvalidRequest)
		}
		dest, err := s.ownedFolder(ctx, *req.ParentID, user)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(dest.Path+"/", folder.Path+"/") {
			return nil, fmt.Errorf("%w: cannot move a folder into its own subtree", folderErrors.ErrInvalidRequest)
		}
		destPath = dest.Path
	}

	oldPath := folder.Path
	newPath := provider.BuildFolderPath(destPath, folder.Name)
	if newPath == oldPath {
		return folder, nil
	}

	err = s.repo.WithTransaction(ctx, func(txCtx context.Context) error {
		folder.ParentID = req.ParentID
		folder.Path = newPath
		if err := s.repo.Update(txCtx, folder); err != nil {
			return err
		}
		return s.repo.RewriteSubtreePaths(txCtx, folder.OwnerID, oldPath, newPath)
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// DeleteFolder removes an empty folder. Folders holding files or child
// folders are rejected.
func (s *service) DeleteFolder(ctx context.Context, folderID uuid.UUID, user types.UserContext) error {
	folder, err := s.ownedFolder(ctx, folderID, user)
	if err != nil {
		return err
	}

	fileCount, err := s.files.CountByFolder(ctx, folder.ID)
	if err != nil {
		return err
	}
	if fileCount > 0 {
		return fmt.Errorf("%w: folder holds %d files", folderErrors.ErrFolderNotEmpty, fileCount)
	}

	childCount, err := s.repo.CountChildren(ctx, folder.ID)
	if err != nil {
		return err
	}
	if childCount > 0 {
		return fmt.Errorf("%w: folder holds %d child folders", folderErrors.ErrFolderNotEmpty, childCount)
	}

	return s.repo.Delete(ctx, folder.ID)
}

// ownedFolder fetches a folder and masks foreign ones as not found.
func (s *service) ownedFolder(ctx context.Context, folderID uuid.UUID, user types.UserContext) (*models.Folder, error) {
	folder, err := s.repo.FindByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.OwnerID != user.UserID && !user.IsAdmin() {
		return nil, folderErrors.ErrFolderNotFound
	}
	return folder, nil
}

func parentPath(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[:idx]
	}
	return ""
}
