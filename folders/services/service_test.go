// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	folderErrors "github.com/qolzam/telar-drive/folders/errors"
	"github.com/qolzam/telar-drive/folders/models"
	"github.com/qolzam/telar-drive/internal/types"
)

func newTestUser() types.UserContext {
	return types.UserContext{UserID: uuid.Must(uuid.NewV4()), SystemRole: types.UserRole}
}

func testFolder(owner uuid.UUID, name, path string, parentID *uuid.UUID) *models.Folder {
	return &models.Folder{
		ID:        uuid.Must(uuid.NewV4()),
		Name:      name,
		Path:      path,
		ParentID:  parentID,
		OwnerID:   owner,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestCreateFolder(t *testing.T) {
	ctx := context.Background()
	user := newTestUser()

	t.Run("creates a root folder with a sanitized path", func(t *testing.T) {
		mockRepo := new(MockRepository)

		mockRepo.On("Create", ctx, mock.MatchedBy(func(f *models.Folder) bool {
			return f.Name == "My Documents" && f.Path == "My Documents" &&
				f.ParentID == nil && f.OwnerID == user.UserID
		})).Return(nil).Once()

		svc := NewFolderService(mockRepo, new(MockFileCounter))
		folder, err := svc.CreateFolder(ctx, &models.CreateFolderRequest{Name: "  My Documents! "}, user)

		require.NoError(t, err)
		require.Equal(t, "My Documents", folder.Path)
		mockRepo.AssertExpectations(t)
	})

	t.Run("extends the parent's materialized path", func(t *testing.T) {
		mockRepo := new(MockRepository)
		parent := testFolder(user.UserID, "docs", "docs", nil)

		mockRepo.On("FindByID", ctx, parent.ID).Return(parent, nil).Once()
		mockRepo.On("Create", ctx, mock.MatchedBy(func(f *models.Folder) bool {
			return f.Path == "docs/2024" && f.ParentID != nil && *f.ParentID == parent.ID
		})).Return(nil).Once()

		svc := NewFolderService(mockRepo, new(MockFileCounter))
		folder, err := svc.CreateFolder(ctx, &models.CreateFolderRequest{Name: "2024", ParentID: &parent.ID}, user)

		require.NoError(t, err)
		require.Equal(t, "docs/2024", folder.Path)
	})

	t.Run("masks a foreign parent as not found", func(t *testing.T) {
		mockRepo := new(MockRepository)
		parent := testFolder(uuid.Must(uuid.NewV4()), "docs", "docs", nil)

		mockRepo.On("FindByID", ctx, parent.ID).Return(parent, nil).Once()

		svc := NewFolderService(mockRepo, new(MockFileCounter))
		_, err := svc.CreateFolder(ctx, &models.CreateFolderRequest{Name: "2024", ParentID: &parent.ID}, user)

		require.ErrorIs(t, err, folderErrors.ErrFolderNotFound)
	})

	t.Run("rejects a name that sanitizes to nothing", func(t *testing.T) {
		svc := NewFolderService(new(MockRepository), new(MockFileCounter))
		_, err := svc.CreateFolder(ctx, &models.CreateFolderRequest{Name: "///"}, user)

		require.ErrorIs(t, err, folderErrors.ErrInvalidRequest)
	})

	t.Run("propagates a path conflict", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockRepo.On("Create", ctx, mock.Anything).Return(folderErrors.ErrFolderConflict).Once()

		svc := NewFolderService(mockRepo, new(MockFileCounter))
		_, err := svc.CreateFolder(ctx, &models.CreateFolderRequest{Name: "docs"}, user)

		require.ErrorIs(t, err, folderErrors.ErrFolderConflict)
	})
}

func TestRenameFolder(t *testing.T) {
	ctx := context.Background()
	user := newTestUser()

	t.Run("rewrites the folder and its subtree in one transaction", func(t *testing.T) {
		mockRepo := new(MockRepository)
		folder := testFolder(user.UserID, "docs", "docs", nil)

		mockRepo.On("FindByID", ctx, folder.ID).Return(folder, nil).Once()
		mockRepo.On("WithTransaction", ctx, mock.Anything).Return(nil).Once()
		mockRepo.On("Update", ctx, mock.MatchedBy(func(f *models.Folder) bool {
			return f.Name == "papers" && f.Path == "papers"
		})).Return(nil).Once()
		mockRepo.On("RewriteSubtreePaths", ctx, user.UserID, "docs", "papers").Return(nil).Once()

		svc := NewFolderService(mockRepo, new(MockFileCounter))
		renamed, err := svc.RenameFolder(ctx, folder.ID, &models.RenameFolderRequest{Name: "papers"}, user)

		require.NoError(t, err)
		require.Equal(t, "papers", renamed.Path)
		mockRepo.AssertExpectations(t)
	})

	t.Run("keeps the parent path segment", func(t *testing.T) {
		mockRepo := new(MockRepository)
		parentID := uuid.Must(uuid.NewV4())
		folder := testFolder(user.UserID, "2024", "docs/2024", &parentID)

		mockRepo.On("FindByID", ctx, folder.ID).Return(folder, nil).Once()
		mockRepo.On("WithTransaction", ctx, mock.Anything).Return(nil).Once()
		mockRepo.On("Update", ctx, mock.Anything).Return(nil).Once()
		mockRepo.On("RewriteSubtreePaths", ctx, user.UserID, "docs/2024", "docs/archive").Return(nil).Once()

		svc := NewFolderService(mockRepo, new(MockFileCounter))
		renamed, err := svc.RenameFolder(ctx, folder.ID, &models.RenameFolderRequest{Name: "archive"}, user)

		require.NoError(t, err)
		require.Equal(t, "docs/archive", renamed.Path)
	})

	t.Run("a failed transaction leaves no partial rewrite", func(t *testing.T) {
		mockRepo := new(MockRepository)
		folder := testFolder(user.UserID, "docs", "docs", nil)

		mockRepo.On("FindByID", ctx, folder.ID).Return(folder, nil).Once()
		// The transaction rolls back before fn runs.
		mockRepo.On("WithTransaction", ctx, mock.Anything).Return(errors.New("deadlock detected")).Once()

		svc := NewFolderService(mockRepo, new(MockFileCounter))
		_, err := svc.RenameFolder(ctx, folder.ID, &models.RenameFolderRequest{Name: "papers"}, user)

		require.Error(t, err)
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		mockRepo.AssertNotCalled(t, "RewriteSubtreePaths", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("renaming to the same name is a no-op", func(t *testing.T) {
		mockRepo := new(MockRepository)
		folder := testFolder(user.UserID, "docs", "docs", nil)

		mockRepo.On("FindByID", ctx, folder.ID).Return(folder, nil).Once()

		svc := NewFolderService(mockRepo, new(MockFileCounter))
		renamed, err := svc.RenameFolder(ctx, folder.ID, &models.RenameFolderRequest{Name: "docs"}, user)

		require.NoError(t, err)
		require.Equal(t, "docs", renamed.Path)
		mockRepo.AssertNotCalled(t, "WithTransaction", mock.Anything, mock.Anything)
	})
}

func TestMoveFolder(t *testing.T) {
	ctx := context.Background()
	user := newTestUser()

	t.Run("reparents the folder and rewrites the subtree", func(t *testing.T) {
		mockRepo := new(MockRepository)
		folder := testFolder(user.UserID, "2024", "docs/2024", nil)
		dest := testFolder(user.UserID, "archive", "archive", nil)

		mockRepo.On("FindByID", ctx, folder.ID).Return(folder, nil).Once()
		mockRepo.On("FindByID", ctx, dest.ID).Return(dest, nil).Once()
		mockRepo.On("WithTransaction", ctx, mock.Anything).Return(nil).Once()
		mockRepo.On("Update", ctx, mock.MatchedBy(func(f *models.Folder) bool {
			return f.Path == "archive/2024" && f.ParentID != nil && *f.ParentID == dest.ID
		})).Return(nil).Once()
		mockRepo.On("RewriteSubtreePaths", ctx, user.UserID, "docs/2024", "archive/2024").Return(nil).Once()

		svc := NewFolderService(mockRepo, new(MockFileCounter))
		moved, err := svc.MoveFolder(ctx, folder.ID, &models.MoveFolderRequest{ParentID: &dest.ID}, user)

		require.NoError(t, err)
		require.Equal(t, "archive/2024", moved.Path)
		mockRepo.AssertExpectations(t)
	})

	t.Run("moves to the root when no parent is given", func(t *testing.T) {
		mockRepo := new(MockRepository)
		parentID := uuid.Must(uuid.NewV4())
		folder := testFolder(user.UserID, "2024", "docs/2024", &parentID)

		mockRepo.On("FindByID", ctx, folder.ID).Return(folder, nil).Once()
		mockRepo.On("WithTransaction", ctx, mock.Anything).Return(nil).Once()
		mockRepo.On("Update", ctx, mock.MatchedBy(func(f *models.Folder) bool {
			return f.Path == "2024" && f.ParentID == nil
		})).Return(nil).Once()
		mockRepo.On("RewriteSubtreePaths", ctx, user.UserID, "docs/2024", "2024").Return(nil).Once()

		svc := NewFolderService(mockRepo, new(MockFileCounter))
		moved, err := svc.MoveFolder(ctx, folder.ID, &models.MoveFolderRequest{}, user)

		require.NoError(t, err)
		require.Equal(t, "2024", moved.Path)
	})

	t.Run("rejects moving a folder into its own subtree", func(t *testing.T) {
		mockRepo := new(MockRepository)
		folder := testFolder(user.UserID, "docs", "docs", nil)
		dest := testFolder(user.UserID, "2024", "docs/2024", &folder.ID)

		mockRepo.On("FindByID", ctx, folder.ID).Return(folder, nil).Once()
		mockRepo.On("FindByID", ctx, dest.ID).Return(dest, nil).Once()

		svc := NewFolderService(mockRepo, new(MockFileCounter))
		_, err := svc.MoveFolder(ctx, folder.ID, &models.MoveFolderRequest{ParentID: &dest.ID}, user)

		require.ErrorIs(t, err, folderErrors.ErrInvalidRequest)
		mockRepo.AssertNotCalled(t, "WithTransaction", mock.Anything, mock.Anything)
	})

	t.Run("rejects moving a folder into itself", func(t *testing.T) {
		mockRepo := new(MockRepository)
		folder := testFolder(user.UserID, "docs", "docs", nil)

		mockRepo.On("FindByID", ctx, folder.ID).Return(folder, nil).Once()

		svc := NewFolderService(mockRepo, new(MockFileCounter))
		_, err := svc.MoveFolder(ctx, folder.ID, &models.MoveFolderRequest{ParentID: &folder.ID}, user)

		require.ErrorIs(t, err, folderErrors.ErrInvalidRequest)
	})
}

func TestDeleteFolder(t *testing.T) {
	ctx := context.Background()
	user := newTestUser()

	t.Run("deletes an empty folder", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockFiles := new(MockFileCounter)
		folder := testFolder(user.UserID, "docs", "docs", nil)

		mockRepo.On("FindByID", ctx, folder.ID).Return(folder, nil).Once()
		mockFiles.On("CountByFolder", ctx, folder.ID).Return(int64(0), nil).Once()
		mockRepo.On("CountChildren", ctx, folder.ID).Return(int64(0), nil).Once()
		mockRepo.On("Delete", ctx, folder.ID).Return(nil).Once()

		svc := NewFolderService(mockRepo, mockFiles)
		require.NoError(t, svc.DeleteFolder(ctx, folder.ID, user))
		mockRepo.AssertExpectations(t)
	})

	t.Run("rejects a folder holding files", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockFiles := new(MockFileCounter)
		folder := testFolder(user.UserID, "docs", "docs", nil)

		mockRepo.On("FindByID", ctx, folder.ID).Return(folder, nil).Once()
		mockFiles.On("CountByFolder", ctx, folder.ID).Return(int64(3), nil).Once()

		svc := NewFolderService(mockRepo, mockFiles)
		err := svc.DeleteFolder(ctx, folder.ID, user)

		require.ErrorIs(t, err, folderErrors.ErrFolderNotEmpty)
		mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("rejects a folder holding child folders", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockFiles := new(MockFileCounter)
		folder := testFolder(user.UserID, "docs", "docs", nil)

		mockRepo.On("FindByID", ctx, folder.ID).Return(folder, nil).Once()
		mockFiles.On("CountByFolder", ctx, folder.ID).Return(int64(0), nil).Once()
		mockRepo.On("CountChildren", ctx, folder.ID).Return(int64(2), nil).Once()

		svc := NewFolderService(mockRepo, mockFiles)
		err := svc.DeleteFolder(ctx, folder.ID, user)

		require.ErrorIs(t, err, folderErrors.ErrFolderNotEmpty)
		mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
