// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"

	"github.com/qolzam/telar-drive/internal/pkg/log"
	platformconfig "github.com/qolzam/telar-drive/internal/platform/config"
	"github.com/qolzam/telar-drive/internal/types"
	storageErrors "github.com/qolzam/telar-drive/storage/errors"
	"github.com/qolzam/telar-drive/storage/models"
	"github.com/qolzam/telar-drive/storage/provider"
	storageRepository "github.com/qolzam/telar-drive/storage/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	reapBatchSize   = 100

	// contentTokenTTL bounds masked-mode view tokens. They are minted
	// per resolution, so a short window is enough.
	contentTokenTTL = 15 * time.Minute
)

type service struct {
	repo     storageRepository.Repository
	provider provider.BlobProvider
	folders  FolderLookup
	config   *platformconfig.Config
}

// NewStorageService creates a new storage service
func NewStorageService(repo storageRepository.Repository, blobProvider provider.BlobProvider, folders FolderLookup, config *platformconfig.Config) StorageService {
	return &service{
		repo:     repo,
		provider: blobProvider,
		folders:  folders,
		config:   config,
	}
}

// InitializeUpload creates a PENDING file record and returns the signed
// upload descriptor
func (s *service) InitializeUpload(ctx context.Context, req *models.InitUploadRequest, user types.UserContext) (*models.InitUploadResponse, error) {
	if strings.TrimSpace(req.Filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", storageErrors.ErrInvalidRequest)
	}
	if req.MimeType == "" {
		return nil, fmt.Errorf("%w: mimeType is required", storageErrors.ErrInvalidRequest)
	}
	if req.Size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive", storageErrors.ErrInvalidRequest)
	}

	folderPath := ""
	if req.FolderID != nil {
		folder, err := s.folders.Lookup(ctx, *req.FolderID)
		if err != nil {
			return nil, err
		}
		if folder.OwnerID != user.UserID {
			return nil, storageErrors.ErrFolderNotFound
		}
		folderPath = folder.Path
	}

	key := provider.GenerateStorageKey(user.UserID.String(), folderPath, req.Filename)

	signed, err := s.provider.GenerateSignedUploadURL(ctx, key, req.MimeType, s.config.Storage.SignedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storageErrors.ErrProviderUnavailable, err)
	}

	now := time.Now()
	expiresAt := now.Add(s.config.Storage.PendingTTL)
	if expiresAt.Before(signed.ExpiresAt) {
		expiresAt = signed.ExpiresAt
	}

	file := &models.File{
		ID:           uuid.Must(uuid.NewV4()),
		Filename:     key[strings.LastIndex(key, "/")+1:],
		OriginalName: req.Filename,
		MimeType:     req.MimeType,
		Size:         req.Size,
		StorageKey:   key,
		Provider:     s.provider.Name(),
		Status:       models.StatusPending,
		FolderID:     req.FolderID,
		OwnerID:      user.UserID,
		IsPublic:     req.IsPublic,
		ExpiresAt:    &expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}

	return &models.InitUploadResponse{
		FileID:     file.ID,
		SignedURL:  signed.SignedURL,
		PublicURL:  signed.PublicURL,
		StorageKey: key,
		ExpiresAt:  signed.ExpiresAt,
	}, nil
}

// ConfirmUpload verifies the object landed in the backend. The file
// only becomes UPLOADED on positive evidence; an existence-check error
// leaves it PENDING.
func (s *service) ConfirmUpload(ctx context.Context, fileID uuid.UUID, user types.UserContext) (*models.FileResponse, error) {
	file, err := s.repo.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != user.UserID {
		return nil, storageErrors.ErrOwnershipRequired
	}
	if file.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: status is %s", storageErrors.ErrFileNotPending, file.Status)
	}

	exists, err := s.provider.Exists(ctx, file.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storageErrors.ErrProviderUnavailable, err)
	}
	if !exists {
		if err := s.repo.UpdateStatus(ctx, fileID, models.StatusFailed); err != nil {
			log.Error("failed to mark file %s FAILED: %v", fileID, err)
		}
		return nil, fmt.Errorf("%w: object was never uploaded", storageErrors.ErrFileNotUploaded)
	}

	if err := s.repo.MarkUploaded(ctx, fileID); err != nil {
		return nil, err
	}

	file.Status = models.StatusUploaded
	file.ExpiresAt = nil
	return s.toFileResponse(ctx, file)
}

// CancelUpload aborts a PENDING upload and removes its record
func (s *service) CancelUpload(ctx context.Context, fileID uuid.UUID, user types.UserContext) error {
	file, err := s.repo.FindByID(ctx, fileID)
	if err != nil {
		return err
	}
	if file.OwnerID != user.UserID {
		return storageErrors.ErrOwnershipRequired
	}
	if file.Status != models.StatusPending {
		return fmt.Errorf("%w: status is %s", storageErrors.ErrFileNotPending, file.Status)
	}

	// The object may exist if the client uploaded without confirming.
	if err := s.provider.Delete(ctx, file.StorageKey); err != nil {
		log.Warn("failed to delete canceled upload object %s: %v", file.StorageKey, err)
	}

	return s.repo.HardDelete(ctx, fileID)
}

// ReapExpired removes PENDING records whose upload window has passed
func (s *service) ReapExpired(ctx context.Context) (int, error) {
	reaped := 0
	for {
		expired, err := s.repo.FindExpiredPending(ctx, time.Now(), reapBatchSize)
		if err != nil {
			return reaped, err
		}
		if len(expired) == 0 {
			return reaped, nil
		}

		for _, file := range expired {
			// The PENDING guard lets a concurrent confirmation win. The
			// row must go first: only a row we actually reaped may lose
			// its object bytes.
			deleted, err := s.repo.HardDeletePending(ctx, file.ID)
			if err != nil {
				log.Error("failed to reap pending file %s: %v", file.ID, err)
				continue
			}
			if !deleted {
				continue
			}

			if err := s.provider.Delete(ctx, file.StorageKey); err != nil {
				log.Warn("failed to delete expired upload object %s: %v", file.StorageKey, err)
			}
			reaped++
		}

		if len(expired) < reapBatchSize {
			return reaped, nil
		}
	}
}

// GetFile retrieves a single file with its resolved content URL
func (s *service) GetFile(ctx context.Context, fileID uuid.UUID, user types.UserContext) (*models.FileResponse, error) {
	file, err := s.repo.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.Status == models.StatusDeleted {
		return nil, storageErrors.ErrFileNotFound
	}
	if file.OwnerID != user.UserID && !user.IsAdmin() {
		return nil, storageErrors.ErrOwnershipRequired
	}
	return s.toFileResponse(ctx, file)
}

// ListFiles retrieves a filtered, paginated file listing
func (s *service) ListFiles(ctx context.Context, query *models.ListFilesQuery, user types.UserContext) (*models.ListFilesResponse, error) {
	owner := user.UserID
	if query.UploadedBy != nil {
		if !user.IsAdmin() {
			return nil, storageErrors.ErrPermissionDenied
		}
		owner = *query.UploadedBy
	}
	if query.FolderID != nil && query.Root {
		return nil, fmt.Errorf("%w: folderId and root are mutually exclusive", storageErrors.ErrInvalidRequest)
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

	files, total, err := s.repo.List(ctx, storageRepository.ListFilter{
		OwnerID:     owner,
		Search:      query.Search,
		FolderID:    query.FolderID,
		RootOnly:    query.Root,
		CreatedFrom: query.CreatedFrom,
		CreatedTo:   query.CreatedTo,
		Limit:       limit,
		Offset:      (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}

	responses := make([]models.FileResponse, 0, len(files))
	for _, file := range files {
		resp, err := s.toFileResponse(ctx, file)
		if err != nil {
			return nil, err
		}
		responses = append(responses, *resp)
	}

	return &models.ListFilesResponse{
		Files: responses,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

// UpdateFile updates the mutable file fields
func (s *service) UpdateFile(ctx context.Context, fileID uuid.UUID, req *models.UpdateFileRequest, user types.UserContext) (*models.FileResponse, error) {
	file, err := s.repo.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.Status == models.StatusDeleted {
		return nil, storageErrors.ErrFileNotFound
	}
	if file.OwnerID != user.UserID && !user.IsAdmin() {
		return nil, storageErrors.ErrOwnershipRequired
	}

	if req.Filename != nil {
		if strings.TrimSpace(*req.Filename) == "" {
			return nil, fmt.Errorf("%w: filename must not be empty", storageErrors.ErrInvalidRequest)
		}
		file.Filename = *req.Filename
	}

	if req.FolderID != nil {
		folder, err := s.folders.Lookup(ctx, *req.FolderID)
		if err != nil {
			return nil, err
		}
		if folder.OwnerID != file.OwnerID {
			return nil, storageErrors.ErrFolderNotFound
		}
		file.FolderID = req.FolderID
	}

	if req.IsPublic != nil && *req.IsPublic != file.IsPublic {
		file.IsPublic = *req.IsPublic
		if err := s.provider.SetVisibility(ctx, file.StorageKey, file.IsPublic); err != nil {
			log.Warn("failed to set object visibility for %s: %v", file.StorageKey, err)
		}
	}

	if err := s.repo.Update(ctx, file); err != nil {
		return nil, err
	}
	return s.toFileResponse(ctx, file)
}

// TogglePublic flips the file's public visibility
func (s *service) TogglePublic(ctx context.Context, fileID uuid.UUID, user types.UserContext) (*models.FileResponse, error) {
	file, err := s.repo.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.Status == models.StatusDeleted {
		return nil, storageErrors.ErrFileNotFound
	}
	if file.OwnerID != user.UserID && !user.IsAdmin() {
		return nil, storageErrors.ErrOwnershipRequired
	}

	file.IsPublic = !file.IsPublic
	if err := s.provider.SetVisibility(ctx, file.StorageKey, file.IsPublic); err != nil {
		log.Warn("failed to set object visibility for %s: %v", file.StorageKey, err)
	}

	if err := s.repo.Update(ctx, file); err != nil {
		return nil, err
	}
	return s.toFileResponse(ctx, file)
}

// DeleteFiles soft deletes a batch of files. Ownership is verified on
// every file before any row is touched.
func (s *service) DeleteFiles(ctx context.Context, fileIDs []uuid.UUID, user types.UserContext) error {
	if len(fileIDs) == 0 {
		return fmt.Errorf("%w: no file ids given", storageErrors.ErrInvalidRequest)
	}

	files := make([]*models.File, 0, len(fileIDs))
	for _, id := range fileIDs {
		file, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if file.Status == models.StatusDeleted {
			return storageErrors.ErrFileNotFound
		}
		if file.OwnerID != user.UserID && !user.IsAdmin() {
			return storageErrors.ErrOwnershipRequired
		}
		files = append(files, file)
	}

	for _, file := range files {
		if err := s.provider.Delete(ctx, file.StorageKey); err != nil {
			log.Warn("failed to delete object %s: %v", file.StorageKey, err)
		}
		if err := s.repo.SoftDelete(ctx, file.ID); err != nil {
			return err
		}
	}
	return nil
}

// ResolveURL produces the content URL for a file. In masked mode every
// URL points at the content proxy with a short-lived view token; in
// direct mode public files get the backend public URL and private files
// a signed download URL.
func (s *service) ResolveURL(ctx context.Context, file *models.File) (*models.ResolvedURLResponse, error) {
	if file.Status != models.StatusUploaded {
		return &models.ResolvedURLResponse{}, nil
	}

	if s.config.Storage.ProxyMode {
		token, expiresAt, err := s.signContentToken(file.ID)
		if err != nil {
			return nil, err
		}
		base := strings.TrimSuffix(s.config.Server.PublicBaseURL, "/") + s.config.Server.BaseRoute
		return &models.ResolvedURLResponse{
			URL:       fmt.Sprintf("%s/storage/files/%s/content?token=%s", base, file.ID, token),
			ExpiresAt: &expiresAt,
		}, nil
	}

	if file.IsPublic {
		return &models.ResolvedURLResponse{URL: s.provider.PublicURL(file.StorageKey)}, nil
	}

	signed, err := s.provider.GenerateSignedDownloadURL(ctx, file.StorageKey, s.config.Storage.SignedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storageErrors.ErrProviderUnavailable, err)
	}
	return &models.ResolvedURLResponse{URL: signed.SignedURL, ExpiresAt: &signed.ExpiresAt}, nil
}

func (s *service) signContentToken(fileID uuid.UUID) (string, time.Time, error) {
	expiresAt := time.Now().Add(contentTokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"fid": fileID.String(),
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(s.config.JWT.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign content token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyContentToken validates a masked-mode view token and returns the
// file ID it grants access to
func (s *service) VerifyContentToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWT.Secret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("%w: invalid content token", storageErrors.ErrPermissionDenied)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: invalid content token claims", storageErrors.ErrPermissionDenied)
	}
	fidStr, _ := claims["fid"].(string)
	fileID, err := uuid.FromString(fidStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid content token subject", storageErrors.ErrPermissionDenied)
	}
	return fileID, nil
}

// LookupUploaded retrieves an UPLOADED file record without touching the
// backend, so the proxy can authorize before paying for a stream open.
func (s *service) LookupUploaded(ctx context.Context, fileID uuid.UUID) (*models.File, error) {
	file, err := s.repo.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.Status != models.StatusUploaded {
		return nil, storageErrors.ErrFileNotFound
	}
	return file, nil
}

// OpenFileStream opens the backend object of a file
func (s *service) OpenFileStream(ctx context.Context, file *models.File) (io.ReadCloser, error) {
	stream, err := s.provider.OpenStream(ctx, file.StorageKey)
	if err != nil {
		if errors.Is(err, provider.ErrObjectNotFound) {
			return nil, storageErrors.ErrFileNotFound
		}
		return nil, fmt.Errorf("%w: %v", storageErrors.ErrProviderUnavailable, err)
	}
	return stream, nil
}

func (s *service) toFileResponse(ctx context.Context, file *models.File) (*models.FileResponse, error) {
	resolved, err := s.ResolveURL(ctx, file)
	if err != nil {
		return nil, err
	}
	return &models.FileResponse{File: *file, URL: resolved.URL}, nil
}
