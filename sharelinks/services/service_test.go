// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"testing"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	folderModels "github.com/qolzam/telar-drive/folders/models"
	folderServices "github.com/qolzam/telar-drive/folders/services"
	platformconfig "github.com/qolzam/telar-drive/internal/platform/config"
	"github.com/qolzam/telar-drive/internal/types"
	shareErrors "github.com/qolzam/telar-drive/sharelinks/errors"
	"github.com/qolzam/telar-drive/sharelinks/models"
	storageModels "github.com/qolzam/telar-drive/storage/models"
	"github.com/qolzam/telar-drive/storage/provider"
	storageServices "github.com/qolzam/telar-drive/storage/services"
)

func newTestConfig() *platformconfig.Config {
	return &platformconfig.Config{
		Server: platformconfig.ServerConfig{
			PublicBaseURL: "http://localhost:4201",
			BaseRoute:     "/api",
		},
		JWT: platformconfig.JWTConfig{Secret: "test-secret"},
	}
}

func newTestUser() types.UserContext {
	return types.UserContext{UserID: uuid.Must(uuid.NewV4()), SystemRole: types.UserRole}
}

type testDeps struct {
	repo    *MockRepository
	files   *storageServices.MockRepository
	folders *folderServices.MockRepository
	blob    *storageServices.MockBlobProvider
}

func newTestService() (ShareLinkService, *testDeps) {
	deps := &testDeps{
		repo:    new(MockRepository),
		files:   new(storageServices.MockRepository),
		folders: new(folderServices.MockRepository),
		blob:    new(storageServices.MockBlobProvider),
	}
	svc := NewShareLinkService(deps.repo, deps.files, deps.folders, deps.blob, newTestConfig())
	return svc, deps
}

func uploadedFile(owner uuid.UUID, folderID *uuid.UUID) *storageModels.File {
	return &storageModels.File{
		ID:           uuid.Must(uuid.NewV4()),
		Filename:     "report_abc.pdf",
		OriginalName: "report.pdf",
		MimeType:     "application/pdf",
		Size:         2048,
		StorageKey:   owner.String() + "/report_abc.pdf",
		Provider:     "local",
		Status:       storageModels.StatusUploaded,
		FolderID:     folderID,
		OwnerID:      owner,
	}
}

func fileLink(owner uuid.UUID, fileID uuid.UUID) *models.ShareLink {
	return &models.ShareLink{
		ID:        uuid.Must(uuid.NewV4()),
		Token:     "sharetoken",
		FileID:    &fileID,
		OwnerID:   owner,
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
}

func folderLink(owner uuid.UUID, folderID uuid.UUID) *models.ShareLink {
	return &models.ShareLink{
		ID:        uuid.Must(uuid.NewV4()),
		Token:     "sharetoken",
		FolderID:  &folderID,
		OwnerID:   owner,
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
}

func TestCreateShareLink(t *testing.T) {
	ctx := context.Background()
	user := newTestUser()

	t.Run("creates a link for an uploaded file", func(t *testing.T) {
		svc, deps := newTestService()
		file := uploadedFile(user.UserID, nil)

		deps.files.On("FindByID", ctx, file.ID).Return(file, nil).Once()
		deps.repo.On("Create", ctx, mock.MatchedBy(func(l *models.ShareLink) bool {
			return l.FileID != nil && *l.FileID == file.ID &&
				l.OwnerID == user.UserID && len(l.Token) == 64 &&
				l.ExpiresAt.After(time.Now())
		})).Return(nil).Once()

		resp, err := svc.Create(ctx, &models.CreateShareLinkRequest{FileID: &file.ID}, user)

		require.NoError(t, err)
		require.Contains(t, resp.URL, "/api/share/"+resp.Token)
		require.False(t, resp.HasPassword)
		deps.repo.AssertExpectations(t)
	})

	t.Run("rejects a file that is not uploaded", func(t *testing.T) {
		svc, deps := newTestService()
		file := uploadedFile(user.UserID, nil)
		file.Status = storageModels.StatusPending

		deps.files.On("FindByID", ctx, file.ID).Return(file, nil).Once()

		_, err := svc.Create(ctx, &models.CreateShareLinkRequest{FileID: &file.ID}, user)
		require.ErrorIs(t, err, shareErrors.ErrTargetNotAvailable)
	})

	t.Run("rejects a foreign file", func(t *testing.T) {
		svc, deps := newTestService()
		file := uploadedFile(uuid.Must(uuid.NewV4()), nil)

		deps.files.On("FindByID", ctx, file.ID).Return(file, nil).Once()

		_, err := svc.Create(ctx, &models.CreateShareLinkRequest{FileID: &file.ID}, user)
		require.ErrorIs(t, err, shareErrors.ErrOwnershipRequired)
	})

	t.Run("requires exactly one target", func(t *testing.T) {
		svc, _ := newTestService()
		fileID := uuid.Must(uuid.NewV4())
		folderID := uuid.Must(uuid.NewV4())

		_, err := svc.Create(ctx, &models.CreateShareLinkRequest{}, user)
		require.ErrorIs(t, err, shareErrors.ErrInvalidRequest)

		_, err = svc.Create(ctx, &models.CreateShareLinkRequest{FileID: &fileID, FolderID: &folderID}, user)
		require.ErrorIs(t, err, shareErrors.ErrInvalidRequest)
	})

	t.Run("rejects a weak password", func(t *testing.T) {
		svc, deps := newTestService()
		file := uploadedFile(user.UserID, nil)

		deps.files.On("FindByID", ctx, file.ID).Return(file, nil).Once()

		_, err := svc.Create(ctx, &models.CreateShareLinkRequest{FileID: &file.ID, Password: "abc"}, user)
		require.ErrorIs(t, err, shareErrors.ErrWeakPassword)
	})
}

func TestAccessShareLink(t *testing.T) {
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())

	t.Run("resolves a file share and spends a view", func(t *testing.T) {
		svc, deps := newTestService()
		file := uploadedFile(owner, nil)
		link := fileLink(owner, file.ID)

		deps.repo.On("FindByToken", ctx, link.Token).Return(link, nil).Once()
		deps.repo.On("IncrementViews", ctx, link.ID).Return(true, nil).Once()
		deps.files.On("FindByID", ctx, file.ID).Return(file, nil).Once()
		deps.blob.On("GenerateSignedDownloadURL", ctx, file.StorageKey, downloadURLTTL).
			Return(&provider.SignedDownloadURL{SignedURL: "https://backend/signed", ExpiresAt: time.Now().Add(downloadURLTTL)}, nil).Once()

		content, err := svc.Access(ctx, link.Token, "", "")

		require.NoError(t, err)
		require.Equal(t, models.ShareTypeFile, content.Type)
		require.Equal(t, "https://backend/signed", content.File.DownloadURL)
		deps.repo.AssertExpectations(t)
	})

	t.Run("a single-view link is gone after the first access", func(t *testing.T) {
		svc, deps := newTestService()
		file := uploadedFile(owner, nil)
		maxViews := 1

		first := fileLink(owner, file.ID)
		first.MaxViews = &maxViews
		deps.repo.On("FindByToken", ctx, first.Token).Return(first, nil).Once()
		deps.repo.On("IncrementViews", ctx, first.ID).Return(true, nil).Once()
		deps.files.On("FindByID", ctx, file.ID).Return(file, nil).Once()
		deps.blob.On("GenerateSignedDownloadURL", ctx, file.StorageKey, downloadURLTTL).
			Return(&provider.SignedDownloadURL{SignedURL: "https://backend/signed"}, nil).Once()

		_, err := svc.Access(ctx, first.Token, "", "")
		require.NoError(t, err)

		spent := fileLink(owner, file.ID)
		spent.ID = first.ID
		spent.MaxViews = &maxViews
		spent.Views = 1
		deps.repo.On("FindByToken", ctx, spent.Token).Return(spent, nil).Once()

		_, err = svc.Access(ctx, spent.Token, "", "")
		require.ErrorIs(t, err, shareErrors.ErrShareNotFound)
	})

	t.Run("an expired link is not found", func(t *testing.T) {
		svc, deps := newTestService()
		file := uploadedFile(owner, nil)
		link := fileLink(owner, file.ID)
		link.ExpiresAt = time.Now().Add(-time.Minute)

		deps.repo.On("FindByToken", ctx, link.Token).Return(link, nil).Once()

		_, err := svc.Access(ctx, link.Token, "", "")
		require.ErrorIs(t, err, shareErrors.ErrShareNotFound)
		deps.repo.AssertNotCalled(t, "IncrementViews", mock.Anything, mock.Anything)
	})

	t.Run("password gate", func(t *testing.T) {
		svc, deps := newTestService()
		file := uploadedFile(owner, nil)
		link := fileLink(owner, file.ID)
		hashed, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
		require.NoError(t, err)
		hashStr := string(hashed)
		link.PasswordHash = &hashStr

		deps.repo.On("FindByToken", ctx, link.Token).Return(link, nil)

		_, err = svc.Access(ctx, link.Token, "", "")
		require.ErrorIs(t, err, shareErrors.ErrPasswordRequired)

		_, err = svc.Access(ctx, link.Token, "wrong", "")
		require.ErrorIs(t, err, shareErrors.ErrPasswordInvalid)

		deps.repo.On("IncrementViews", ctx, link.ID).Return(true, nil).Once()
		deps.files.On("FindByID", ctx, file.ID).Return(file, nil).Once()
		deps.blob.On("GenerateSignedDownloadURL", ctx, file.StorageKey, downloadURLTTL).
			Return(&provider.SignedDownloadURL{SignedURL: "https://backend/signed"}, nil).Once()

		_, err = svc.Access(ctx, link.Token, "correct horse", "")
		require.NoError(t, err)
	})

	t.Run("rejects a traversal subpath on a folder share", func(t *testing.T) {
		svc, deps := newTestService()
		folder := &folderModels.Folder{ID: uuid.Must(uuid.NewV4()), Name: "docs", Path: "docs", OwnerID: owner}
		link := folderLink(owner, folder.ID)

		deps.repo.On("FindByToken", ctx, link.Token).Return(link, nil).Once()
		deps.repo.On("IncrementViews", ctx, link.ID).Return(true, nil).Once()
		deps.folders.On("FindByID", ctx, folder.ID).Return(folder, nil).Once()

		_, err := svc.Access(ctx, link.Token, "", "../secrets")
		require.ErrorIs(t, err, shareErrors.ErrInvalidRequest)
	})

	t.Run("lists a shared folder's direct files and children", func(t *testing.T) {
		svc, deps := newTestService()
		folder := &folderModels.Folder{ID: uuid.Must(uuid.NewV4()), Name: "docs", Path: "docs", OwnerID: owner}
		child := &folderModels.Folder{ID: uuid.Must(uuid.NewV4()), Name: "2024", Path: "docs/2024", ParentID: &folder.ID, OwnerID: owner}
		link := folderLink(owner, folder.ID)

		inFolder := uploadedFile(owner, &folder.ID)
		inChild := uploadedFile(owner, &child.ID)

		deps.repo.On("FindByToken", ctx, link.Token).Return(link, nil).Once()
		deps.repo.On("IncrementViews", ctx, link.ID).Return(true, nil).Once()
		deps.folders.On("FindByID", ctx, folder.ID).Return(folder, nil).Once()
		deps.folders.On("ListChildren", ctx, folder.ID).Return([]*folderModels.Folder{child}, nil).Once()
		deps.files.On("FindByFolderPathPrefix", ctx, owner, "docs").
			Return([]*storageModels.File{inFolder, inChild}, nil).Once()

		content, err := svc.Access(ctx, link.Token, "", "")

		require.NoError(t, err)
		require.Equal(t, models.ShareTypeFolder, content.Type)
		require.Len(t, content.Folder.Folders, 1)
		require.Equal(t, "2024", content.Folder.Folders[0].Path)
		// Only the folder's direct files are listed at this level.
		require.Len(t, content.Folder.Files, 1)
		require.Equal(t, inFolder.ID, content.Folder.Files[0].ID)
	})
}

func TestFetchSharedFile(t *testing.T) {
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())

	t.Run("resolves a file inside the shared subtree", func(t *testing.T) {
		svc, deps := newTestService()
		shared := &folderModels.Folder{ID: uuid.Must(uuid.NewV4()), Name: "docs", Path: "docs", OwnerID: owner}
		nested := &folderModels.Folder{ID: uuid.Must(uuid.NewV4()), Name: "2024", Path: "docs/2024", ParentID: &shared.ID, OwnerID: owner}
		link := folderLink(owner, shared.ID)
		file := uploadedFile(owner, &nested.ID)

		deps.repo.On("FindByToken", ctx, link.Token).Return(link, nil).Once()
		deps.files.On("FindByID", ctx, file.ID).Return(file, nil).Once()
		deps.folders.On("FindByID", ctx, nested.ID).Return(nested, nil).Once()
		deps.folders.On("FindByID", ctx, shared.ID).Return(shared, nil).Once()
		deps.blob.On("GenerateSignedDownloadURL", ctx, file.StorageKey, downloadURLTTL).
			Return(&provider.SignedDownloadURL{SignedURL: "https://backend/signed"}, nil).Once()

		shared2, err := svc.FetchFile(ctx, link.Token, file.ID, "")

		require.NoError(t, err)
		require.Equal(t, "https://backend/signed", shared2.DownloadURL)
	})

	t.Run("hides a file outside the shared subtree", func(t *testing.T) {
		svc, deps := newTestService()
		shared := &folderModels.Folder{ID: uuid.Must(uuid.NewV4()), Name: "docs", Path: "docs", OwnerID: owner}
		other := &folderModels.Folder{ID: uuid.Must(uuid.NewV4()), Name: "private", Path: "private", OwnerID: owner}
		link := folderLink(owner, shared.ID)
		file := uploadedFile(owner, &other.ID)

		deps.repo.On("FindByToken", ctx, link.Token).Return(link, nil).Once()
		deps.files.On("FindByID", ctx, file.ID).Return(file, nil).Once()
		deps.folders.On("FindByID", ctx, other.ID).Return(other, nil).Once()
		deps.folders.On("FindByID", ctx, shared.ID).Return(shared, nil).Once()

		_, err := svc.FetchFile(ctx, link.Token, file.ID, "")
		require.ErrorIs(t, err, shareErrors.ErrShareNotFound)
	})

	t.Run("hides a sibling path sharing the prefix", func(t *testing.T) {
		svc, deps := newTestService()
		shared := &folderModels.Folder{ID: uuid.Must(uuid.NewV4()), Name: "docs", Path: "docs", OwnerID: owner}
		lookalike := &folderModels.Folder{ID: uuid.Must(uuid.NewV4()), Name: "docs-old", Path: "docs-old", OwnerID: owner}
		link := folderLink(owner, shared.ID)
		file := uploadedFile(owner, &lookalike.ID)

		deps.repo.On("FindByToken", ctx, link.Token).Return(link, nil).Once()
		deps.files.On("FindByID", ctx, file.ID).Return(file, nil).Once()
		deps.folders.On("FindByID", ctx, lookalike.ID).Return(lookalike, nil).Once()
		deps.folders.On("FindByID", ctx, shared.ID).Return(shared, nil).Once()

		_, err := svc.FetchFile(ctx, link.Token, file.ID, "")
		require.ErrorIs(t, err, shareErrors.ErrShareNotFound)
	})

	t.Run("hides a foreign file", func(t *testing.T) {
		svc, deps := newTestService()
		file := uploadedFile(uuid.Must(uuid.NewV4()), nil)
		link := fileLink(owner, file.ID)

		deps.repo.On("FindByToken", ctx, link.Token).Return(link, nil).Once()
		deps.files.On("FindByID", ctx, file.ID).Return(file, nil).Once()

		_, err := svc.FetchFile(ctx, link.Token, file.ID, "")
		require.ErrorIs(t, err, shareErrors.ErrShareNotFound)
	})
}
