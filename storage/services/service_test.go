// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	platformconfig "github.com/qolzam/telar-drive/internal/platform/config"
	"github.com/qolzam/telar-drive/internal/types"
	storageErrors "github.com/qolzam/telar-drive/storage/errors"
	"github.com/qolzam/telar-drive/storage/models"
	"github.com/qolzam/telar-drive/storage/provider"
	"github.com/qolzam/telar-drive/storage/repository"
)

func newTestConfig(proxyMode bool) *platformconfig.Config {
	return &platformconfig.Config{
		Server: platformconfig.ServerConfig{
			PublicBaseURL: "http://localhost:4201",
			BaseRoute:     "/api",
		},
		JWT: platformconfig.JWTConfig{Secret: "test-secret"},
		Storage: platformconfig.StorageConfig{
			Provider:     "local",
			SignedURLTTL: time.Hour,
			PendingTTL:   24 * time.Hour,
			ProxyMode:    proxyMode,
		},
	}
}

func newTestUser() types.UserContext {
	return types.UserContext{UserID: uuid.Must(uuid.NewV4()), SystemRole: types.UserRole}
}

func pendingFile(owner uuid.UUID) *models.File {
	expiresAt := time.Now().Add(time.Hour)
	return &models.File{
		ID:           uuid.Must(uuid.NewV4()),
		Filename:     "photo_abc.jpg",
		OriginalName: "photo.jpg",
		MimeType:     "image/jpeg",
		Size:         1024,
		StorageKey:   owner.String() + "/photo_abc.jpg",
		Provider:     "local",
		Status:       models.StatusPending,
		OwnerID:      owner,
		ExpiresAt:    &expiresAt,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func uploadedFile(owner uuid.UUID) *models.File {
	f := pendingFile(owner)
	f.Status = models.StatusUploaded
	f.ExpiresAt = nil
	return f
}

func TestInitializeUpload(t *testing.T) {
	ctx := context.Background()
	user := newTestUser()

	t.Run("creates PENDING record with signed descriptor", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockProvider := new(MockBlobProvider)

		mockProvider.On("GenerateSignedUploadURL", ctx, mock.AnythingOfType("string"), "image/jpeg", time.Hour).
			Return(&provider.SignedUploadURL{
				SignedURL: "https://backend/upload",
				PublicURL: "https://backend/public",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil).Once()
		mockProvider.On("Name").Return("local")
		mockRepo.On("Create", ctx, mock.MatchedBy(func(f *models.File) bool {
			return f.Status == models.StatusPending &&
				f.OwnerID == user.UserID &&
				f.ExpiresAt != nil &&
				strings.HasPrefix(f.StorageKey, user.UserID.String()+"/")
		})).Return(nil).Once()

		svc := NewStorageService(mockRepo, mockProvider, new(MockFolderLookup), newTestConfig(false))
		resp, err := svc.InitializeUpload(ctx, &models.InitUploadRequest{
			Filename: "photo.jpg",
			MimeType: "image/jpeg",
			Size:     1024,
		}, user)

		require.NoError(t, err)
		require.Equal(t, "https://backend/upload", resp.SignedURL)
		require.NotEqual(t, uuid.Nil, resp.FileID)
		mockRepo.AssertExpectations(t)
		mockProvider.AssertExpectations(t)
	})

	t.Run("places file under folder path after ownership check", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockProvider := new(MockBlobProvider)
		mockFolders := new(MockFolderLookup)
		folderID := uuid.Must(uuid.NewV4())

		mockFolders.On("Lookup", ctx, folderID).
			Return(&FolderRef{ID: folderID, OwnerID: user.UserID, Path: "docs/2024"}, nil).Once()
		mockProvider.On("GenerateSignedUploadURL", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, user.UserID.String()+"/docs/2024/")
		}), "application/pdf", time.Hour).
			Return(&provider.SignedUploadURL{SignedURL: "u", ExpiresAt: time.Now().Add(time.Hour)}, nil).Once()
		mockProvider.On("Name").Return("local")
		mockRepo.On("Create", ctx, mock.Anything).Return(nil).Once()

		svc := NewStorageService(mockRepo, mockProvider, mockFolders, newTestConfig(false))
		_, err := svc.InitializeUpload(ctx, &models.InitUploadRequest{
			Filename: "report.pdf",
			MimeType: "application/pdf",
			Size:     2048,
			FolderID: &folderID,
		}, user)

		require.NoError(t, err)
		mockFolders.AssertExpectations(t)
		mockProvider.AssertExpectations(t)
	})

	t.Run("rejects another user's folder", func(t *testing.T) {
		mockFolders := new(MockFolderLookup)
		folderID := uuid.Must(uuid.NewV4())

		mockFolders.On("Lookup", ctx, folderID).
			Return(&FolderRef{ID: folderID, OwnerID: uuid.Must(uuid.NewV4()), Path: "docs"}, nil).Once()

		svc := NewStorageService(new(MockRepository), new(MockBlobProvider), mockFolders, newTestConfig(false))
		_, err := svc.InitializeUpload(ctx, &models.InitUploadRequest{
			Filename: "report.pdf",
			MimeType: "application/pdf",
			Size:     2048,
			FolderID: &folderID,
		}, user)

		require.ErrorIs(t, err, storageErrors.ErrFolderNotFound)
	})

	t.Run("rejects invalid requests", func(t *testing.T) {
		svc := NewStorageService(new(MockRepository), new(MockBlobProvider), new(MockFolderLookup), newTestConfig(false))

		_, err := svc.InitializeUpload(ctx, &models.InitUploadRequest{MimeType: "image/jpeg", Size: 1}, user)
		require.ErrorIs(t, err, storageErrors.ErrInvalidRequest)

		_, err = svc.InitializeUpload(ctx, &models.InitUploadRequest{Filename: "a.jpg", MimeType: "image/jpeg", Size: 0}, user)
		require.ErrorIs(t, err, storageErrors.ErrInvalidRequest)
	})
}

func TestConfirmUpload(t *testing.T) {
	ctx := context.Background()
	user := newTestUser()

	t.Run("marks UPLOADED when the object exists", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockProvider := new(MockBlobProvider)
		file := pendingFile(user.UserID)

		file.IsPublic = true
		mockRepo.On("FindByID", ctx, file.ID).Return(file, nil).Once()
		mockProvider.On("Exists", ctx, file.StorageKey).Return(true, nil).Once()
		mockRepo.On("MarkUploaded", ctx, file.ID).Return(nil).Once()
		mockProvider.On("PublicURL", file.StorageKey).Return("https://backend/" + file.StorageKey)

		svc := NewStorageService(mockRepo, mockProvider, new(MockFolderLookup), newTestConfig(false))
		resp, err := svc.ConfirmUpload(ctx, file.ID, user)

		require.NoError(t, err)
		require.Equal(t, models.StatusUploaded, resp.Status)
		require.Nil(t, resp.ExpiresAt)
		mockRepo.AssertExpectations(t)
	})

	t.Run("marks FAILED and errors when the object is absent", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockProvider := new(MockBlobProvider)
		file := pendingFile(user.UserID)

		mockRepo.On("FindByID", ctx, file.ID).Return(file, nil).Once()
		mockProvider.On("Exists", ctx, file.StorageKey).Return(false, nil).Once()
		mockRepo.On("UpdateStatus", ctx, file.ID, models.StatusFailed).Return(nil).Once()

		svc := NewStorageService(mockRepo, mockProvider, new(MockFolderLookup), newTestConfig(false))
		_, err := svc.ConfirmUpload(ctx, file.ID, user)

		require.ErrorIs(t, err, storageErrors.ErrFileNotUploaded)
		mockRepo.AssertNotCalled(t, "MarkUploaded", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("leaves the file PENDING when the existence check fails", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockProvider := new(MockBlobProvider)
		file := pendingFile(user.UserID)

		mockRepo.On("FindByID", ctx, file.ID).Return(file, nil).Once()
		mockProvider.On("Exists", ctx, file.StorageKey).Return(false, errors.New("backend down")).Once()

		svc := NewStorageService(mockRepo, mockProvider, new(MockFolderLookup), newTestConfig(false))
		_, err := svc.ConfirmUpload(ctx, file.ID, user)

		require.ErrorIs(t, err, storageErrors.ErrProviderUnavailable)
		mockRepo.AssertNotCalled(t, "MarkUploaded", mock.Anything, mock.Anything)
		mockRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects double confirmation", func(t *testing.T) {
		mockRepo := new(MockRepository)
		file := uploadedFile(user.UserID)

		mockRepo.On("FindByID", ctx, file.ID).Return(file, nil).Once()

		svc := NewStorageService(mockRepo, new(MockBlobProvider), new(MockFolderLookup), newTestConfig(false))
		_, err := svc.ConfirmUpload(ctx, file.ID, user)

		require.ErrorIs(t, err, storageErrors.ErrFileNotPending)
	})

	t.Run("rejects non-owner", func(t *testing.T) {
		mockRepo := new(MockRepository)
		file := pendingFile(uuid.Must(uuid.NewV4()))

		mockRepo.On("FindByID", ctx, file.ID).Return(file, nil).Once()

		svc := NewStorageService(mockRepo, new(MockBlobProvider), new(MockFolderLookup), newTestConfig(false))
		_, err := svc.ConfirmUpload(ctx, file.ID, user)

		require.ErrorIs(t, err, storageErrors.ErrOwnershipRequired)
	})
}

func TestCancelUpload(t *testing.T) {
	ctx := context.Background()
	user := newTestUser()

	t.Run("deletes the pending record and its object", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockProvider := new(MockBlobProvider)
		file := pendingFile(user.UserID)

		mockRepo.On("FindByID", ctx, file.ID).Return(file, nil).Once()
		mockProvider.On("Delete", ctx, file.StorageKey).Return(nil).Once()
		mockRepo.On("HardDelete", ctx, file.ID).Return(nil).Once()

		svc := NewStorageService(mockRepo, mockProvider, new(MockFolderLookup), newTestConfig(false))
		require.NoError(t, svc.CancelUpload(ctx, file.ID, user))
		mockRepo.AssertExpectations(t)
	})

	t.Run("rejects cancel of a non-PENDING file", func(t *testing.T) {
		mockRepo := new(MockRepository)
		file := uploadedFile(user.UserID)

		mockRepo.On("FindByID", ctx, file.ID).Return(file, nil).Once()

		svc := NewStorageService(mockRepo, new(MockBlobProvider), new(MockFolderLookup), newTestConfig(false))
		err := svc.CancelUpload(ctx, file.ID, user)

		require.ErrorIs(t, err, storageErrors.ErrFileNotPending)
	})

	t.Run("still deletes the record when the object delete fails", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockProvider := new(MockBlobProvider)
		file := pendingFile(user.UserID)

		mockRepo.On("FindByID", ctx, file.ID).Return(file, nil).Once()
		mockProvider.On("Delete", ctx, file.StorageKey).Return(errors.New("backend down")).Once()
		mockRepo.On("HardDelete", ctx, file.ID).Return(nil).Once()

		svc := NewStorageService(mockRepo, mockProvider, new(MockFolderLookup), newTestConfig(false))
		require.NoError(t, svc.CancelUpload(ctx, file.ID, user))
		mockRepo.AssertExpectations(t)
	})
}

func TestReapExpired(t *testing.T) {
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())

	t.Run("reaps expired pending files", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockProvider := new(MockBlobProvider)
		a := pendingFile(owner)
		b := pendingFile(owner)

		mockRepo.On("FindExpiredPending", ctx, mock.AnythingOfType("time.Time"), reapBatchSize).
			Return([]*models.File{a, b}, nil).Once()
		mockProvider.On("Delete", ctx, a.StorageKey).Return(nil).Once()
		mockProvider.On("Delete", ctx, b.StorageKey).Return(nil).Once()
		mockRepo.On("HardDeletePending", ctx, a.ID).Return(true, nil).Once()
		mockRepo.On("HardDeletePending", ctx, b.ID).Return(true, nil).Once()

		svc := NewStorageService(mockRepo, mockProvider, new(MockFolderLookup), newTestConfig(false))
		reaped, err := svc.ReapExpired(ctx)

		require.NoError(t, err)
		require.Equal(t, 2, reaped)
		mockRepo.AssertExpectations(t)
	})

	t.Run("keeps the object of a row confirmed mid-reap", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockProvider := new(MockBlobProvider)
		a := pendingFile(owner)

		mockRepo.On("FindExpiredPending", ctx, mock.AnythingOfType("time.Time"), reapBatchSize).
			Return([]*models.File{a}, nil).Once()
		// The guarded delete finds the row no longer PENDING: a confirm
		// won the race, so the object bytes must survive.
		mockRepo.On("HardDeletePending", ctx, a.ID).Return(false, nil).Once()

		svc := NewStorageService(mockRepo, mockProvider, new(MockFolderLookup), newTestConfig(false))
		reaped, err := svc.ReapExpired(ctx)

		require.NoError(t, err)
		require.Equal(t, 0, reaped)
		mockProvider.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("reaps the row even when the object delete fails", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockProvider := new(MockBlobProvider)
		a := pendingFile(owner)

		mockRepo.On("FindExpiredPending", ctx, mock.AnythingOfType("time.Time"), reapBatchSize).
			Return([]*models.File{a}, nil).Once()
		mockRepo.On("HardDeletePending", ctx, a.ID).Return(true, nil).Once()
		mockProvider.On("Delete", ctx, a.StorageKey).Return(errors.New("backend down")).Once()

		svc := NewStorageService(mockRepo, mockProvider, new(MockFolderLookup), newTestConfig(false))
		reaped, err := svc.ReapExpired(ctx)

		require.NoError(t, err)
		require.Equal(t, 1, reaped)
	})
}

func TestDeleteFiles(t *testing.T) {
	ctx := context.Background()
	user := newTestUser()

	t.Run("soft deletes every file despite provider failures", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockProvider := new(MockBlobProvider)
		a := uploadedFile(user.UserID)
		b := uploadedFile(user.UserID)

		mockRepo.On("FindByID", ctx, a.ID).Return(a, nil).Once()
		mockRepo.On("FindByID", ctx, b.ID).Return(b, nil).Once()
		mockProvider.On("Delete", ctx, a.StorageKey).Return(errors.New("backend down")).Once()
		mockProvider.On("Delete", ctx, b.StorageKey).Return(nil).Once()
		mockRepo.On("SoftDelete", ctx, a.ID).Return(nil).Once()
		mockRepo.On("SoftDelete", ctx, b.ID).Return(nil).Once()

		svc := NewStorageService(mockRepo, mockProvider, new(MockFolderLookup), newTestConfig(false))
		require.NoError(t, svc.DeleteFiles(ctx, []uuid.UUID{a.ID, b.ID}, user))
		mockRepo.AssertExpectations(t)
	})

	t.Run("rejects the whole batch when one file is foreign", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mine := uploadedFile(user.UserID)
		theirs := uploadedFile(uuid.Must(uuid.NewV4()))

		mockRepo.On("FindByID", ctx, mine.ID).Return(mine, nil).Once()
		mockRepo.On("FindByID", ctx, theirs.ID).Return(theirs, nil).Once()

		svc := NewStorageService(mockRepo, new(MockBlobProvider), new(MockFolderLookup), newTestConfig(false))
		err := svc.DeleteFiles(ctx, []uuid.UUID{mine.ID, theirs.ID}, user)

		require.ErrorIs(t, err, storageErrors.ErrOwnershipRequired)
		mockRepo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
	})
}

func TestResolveURL(t *testing.T) {
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())

	t.Run("masked mode proxies every URL with a view token", func(t *testing.T) {
		file := uploadedFile(owner)
		svc := NewStorageService(new(MockRepository), new(MockBlobProvider), new(MockFolderLookup), newTestConfig(true))

		resolved, err := svc.ResolveURL(ctx, file)
		require.NoError(t, err)
		require.Contains(t, resolved.URL, "/api/storage/files/"+file.ID.String()+"/content?token=")

		// The embedded token resolves back to the file.
		token := resolved.URL[strings.Index(resolved.URL, "token=")+len("token="):]
		fileID, err := svc.VerifyContentToken(token)
		require.NoError(t, err)
		require.Equal(t, file.ID, fileID)
	})

	t.Run("direct mode uses the backend public URL for public files", func(t *testing.T) {
		mockProvider := new(MockBlobProvider)
		file := uploadedFile(owner)
		file.IsPublic = true

		mockProvider.On("PublicURL", file.StorageKey).Return("https://backend/" + file.StorageKey).Once()

		svc := NewStorageService(new(MockRepository), mockProvider, new(MockFolderLookup), newTestConfig(false))
		resolved, err := svc.ResolveURL(ctx, file)

		require.NoError(t, err)
		require.Equal(t, "https://backend/"+file.StorageKey, resolved.URL)
	})

	t.Run("direct mode signs URLs for private files", func(t *testing.T) {
		mockProvider := new(MockBlobProvider)
		file := uploadedFile(owner)

		mockProvider.On("GenerateSignedDownloadURL", ctx, file.StorageKey, time.Hour).
			Return(&provider.SignedDownloadURL{SignedURL: "https://backend/signed", ExpiresAt: time.Now().Add(time.Hour)}, nil).Once()

		svc := NewStorageService(new(MockRepository), mockProvider, new(MockFolderLookup), newTestConfig(false))
		resolved, err := svc.ResolveURL(ctx, file)

		require.NoError(t, err)
		require.Equal(t, "https://backend/signed", resolved.URL)
	})

	t.Run("non-uploaded files resolve to no URL", func(t *testing.T) {
		file := pendingFile(owner)
		svc := NewStorageService(new(MockRepository), new(MockBlobProvider), new(MockFolderLookup), newTestConfig(false))

		resolved, err := svc.ResolveURL(ctx, file)
		require.NoError(t, err)
		require.Empty(t, resolved.URL)
	})
}

func TestVerifyContentToken(t *testing.T) {
	svc := NewStorageService(new(MockRepository), new(MockBlobProvider), new(MockFolderLookup), newTestConfig(true))

	_, err := svc.VerifyContentToken("garbage")
	require.ErrorIs(t, err, storageErrors.ErrPermissionDenied)
}

func TestListFiles(t *testing.T) {
	ctx := context.Background()
	user := newTestUser()

	t.Run("rejects uploadedBy override for non-admins", func(t *testing.T) {
		other := uuid.Must(uuid.NewV4())
		svc := NewStorageService(new(MockRepository), new(MockBlobProvider), new(MockFolderLookup), newTestConfig(false))

		_, err := svc.ListFiles(ctx, &models.ListFilesQuery{UploadedBy: &other}, user)
		require.ErrorIs(t, err, storageErrors.ErrPermissionDenied)
	})

	t.Run("admin can list another user's files", func(t *testing.T) {
		admin := types.UserContext{UserID: uuid.Must(uuid.NewV4()), SystemRole: types.AdminRole}
		other := uuid.Must(uuid.NewV4())
		mockRepo := new(MockRepository)

		mockRepo.On("List", ctx, mock.MatchedBy(func(f repository.ListFilter) bool { return f.OwnerID == other })).
			Return([]*models.File{}, int64(0), nil).Once()

		svc := NewStorageService(mockRepo, new(MockBlobProvider), new(MockFolderLookup), newTestConfig(false))
		resp, err := svc.ListFiles(ctx, &models.ListFilesQuery{UploadedBy: &other}, admin)

		require.NoError(t, err)
		require.Equal(t, int64(0), resp.Total)
	})
}
