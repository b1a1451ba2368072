// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/nbutton23/zxcvbn-go"
	"golang.org/x/crypto/bcrypt"

	folderErrors "github.com/qolzam/telar-drive/folders/errors"
	folderModels "github.com/qolzam/telar-drive/folders/models"
	folderRepository "github.com/qolzam/telar-drive/folders/repository"
	platformconfig "github.com/qolzam/telar-drive/internal/platform/config"
	"github.com/qolzam/telar-drive/internal/types"
	shareErrors "github.com/qolzam/telar-drive/sharelinks/errors"
	"github.com/qolzam/telar-drive/sharelinks/models"
	shareRepository "github.com/qolzam/telar-drive/sharelinks/repository"
	storageErrors "github.com/qolzam/telar-drive/storage/errors"
	storageModels "github.com/qolzam/telar-drive/storage/models"
	"github.com/qolzam/telar-drive/storage/provider"
	storageRepository "github.com/qolzam/telar-drive/storage/repository"
)

const (
	// defaultShareTTL bounds links created without an explicit expiry.
	defaultShareTTL = 7 * 24 * time.Hour

	// downloadURLTTL bounds the signed URLs handed out per download.
	downloadURLTTL = 5 * time.Minute

	// minPasswordScore is the zxcvbn floor for share passwords.
	minPasswordScore = 2

	tokenBytes = 32
)

type service struct {
	repo    shareRepository.Repository
	files   storageRepository.Repository
	folders folderRepository.Repository
	blob    provider.BlobProvider
	config  *platformconfig.Config
}

// NewShareLinkService creates a new share link service
func NewShareLinkService(repo shareRepository.Repository, files storageRepository.Repository, folders folderRepository.Repository, blob provider.BlobProvider, config *platformconfig.Config) ShareLinkService {
	return &service{
		repo:    repo,
		files:   files,
		folders: folders,
		blob:    blob,
		config:  config,
	}
}

// Create mints a share link for a file or folder the user owns
func (s *service) Create(ctx context.Context, req *models.CreateShareLinkRequest, user types.UserContext) (*models.ShareLinkResponse, error) {
	if (req.FileID == nil) == (req.FolderID == nil) {
		return nil, fmt.Errorf("%w: exactly one of fileId and folderId is required", shareErrors.ErrInvalidRequest)
	}

	if req.FileID != nil {
		file, err := s.files.FindByID(ctx, *req.FileID)
		if err != nil {
			if errors.Is(err, storageErrors.ErrFileNotFound) {
				return nil, fmt.Errorf("%w: file not found", shareErrors.ErrInvalidRequest)
			}
			return nil, err
		}
		if file.OwnerID != user.UserID {
			return nil, shareErrors.ErrOwnershipRequired
		}
		if file.Status != storageModels.StatusUploaded {
			return nil, fmt.Errorf("%w: file is not uploaded", shareErrors.ErrTargetNotAvailable)
		}
	} else {
		folder, err := s.folders.FindByID(ctx, *req.FolderID)
		if err != nil {
			if errors.Is(err, folderErrors.ErrFolderNotFound) {
				return nil, fmt.Errorf("%w: folder not found", shareErrors.ErrInvalidRequest)
			}
			return nil, err
		}
		if folder.OwnerID != user.UserID {
			return nil, shareErrors.ErrOwnershipRequired
		}
	}

	now := time.Now()
	expiresAt := now.Add(defaultShareTTL)
	if req.ExpiresAt != nil {
		if req.ExpiresAt.Before(now) {
			return nil, fmt.Errorf("%w: expiresAt is in the past", shareErrors.ErrInvalidRequest)
		}
		expiresAt = *req.ExpiresAt
	}
	if req.MaxViews != nil && *req.MaxViews < 1 {
		return nil, fmt.Errorf("%w: maxViews must be positive", shareErrors.ErrInvalidRequest)
	}

	var passwordHash *string
	if req.Password != "" {
		if zxcvbn.PasswordStrength(req.Password, nil).Score < minPasswordScore {
			return nil, shareErrors.ErrWeakPassword
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash share password: %w", err)
		}
		hashStr := string(hashed)
		passwordHash = &hashStr
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	link := &models.ShareLink{
		ID:           uuid.Must(uuid.NewV4()),
		Token:        token,
		FileID:       req.FileID,
		FolderID:     req.FolderID,
		OwnerID:      user.UserID,
		ExpiresAt:    expiresAt,
		MaxViews:     req.MaxViews,
		Views:        0,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}

	if err := s.repo.Create(ctx, link); err != nil {
		return nil, err
	}
	return s.toResponse(link), nil
}

// ListForFile retrieves the user's share links pointing at a file
func (s *service) ListForFile(ctx context.Context, fileID uuid.UUID, user types.UserContext) ([]models.ShareLinkResponse, error) {
	file, err := s.files.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != user.UserID && !user.IsAdmin() {
		return nil, shareErrors.ErrOwnershipRequired
	}

	links, err := s.repo.ListForFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return s.toResponses(links), nil
}

// ListForFolder retrieves the user's share links pointing at a folder
func (s *service) ListForFolder(ctx context.Context, folderID uuid.UUID, user types.UserContext) ([]models.ShareLinkResponse, error) {
	folder, err := s.folders.FindByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.OwnerID != user.UserID && !user.IsAdmin() {
		return nil, shareErrors.ErrOwnershipRequired
	}

	links, err := s.repo.ListForFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	return s.toResponses(links), nil
}

// Delete revokes a share link
func (s *service) Delete(ctx context.Context, linkID uuid.UUID, user types.UserContext) error {
	link, err := s.repo.FindByID(ctx, linkID)
	if err != nil {
		return err
	}
	if link.OwnerID != user.UserID && !user.IsAdmin() {
		return shareErrors.ErrOwnershipRequired
	}
	return s.repo.Delete(ctx, linkID)
}

// CleanupExpired removes links past their expiry
func (s *service) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, time.Now())
}

// Resolve describes a live share link without spending a view
func (s *service) Resolve(ctx context.Context, token string) (*models.ShareInfo, error) {
	link, err := s.liveLink(ctx, token)
	if err != nil {
		return nil, err
	}

	shareType := models.ShareTypeFile
	if link.FolderID != nil {
		shareType = models.ShareTypeFolder
	}
	return &models.ShareInfo{
		Token:            link.Token,
		Type:             shareType,
		PasswordRequired: link.PasswordHash != nil,
	}, nil
}

// Access opens a share link, spending one view
func (s *service) Access(ctx context.Context, token string, password string, subPath string) (*models.ShareContent, error) {
	link, err := s.liveLink(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(link, password); err != nil {
		return nil, err
	}

	spent, err := s.repo.IncrementViews(ctx, link.ID)
	if err != nil {
		return nil, err
	}
	if !spent {
		// Another access spent the last view first.
		return nil, shareErrors.ErrShareNotFound
	}

	if link.FileID != nil {
		return s.fileContent(ctx, link)
	}
	return s.folderContent(ctx, link, subPath)
}

// FetchFile resolves the download URL of one file reachable through a
// share. The file must be the shared file itself or live under the
// shared folder's subtree.
func (s *service) FetchFile(ctx context.Context, token string, fileID uuid.UUID, password string) (*models.SharedFile, error) {
	link, err := s.liveLink(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(link, password); err != nil {
		return nil, err
	}

	file, err := s.sharedFileRecord(ctx, link, fileID)
	if err != nil {
		return nil, err
	}
	return s.toSharedFile(ctx, file)
}

func (s *service) fileContent(ctx context.Context, link *models.ShareLink) (*models.ShareContent, error) {
	file, err := s.sharedFileRecord(ctx, link, *link.FileID)
	if err != nil {
		return nil, err
	}
	shared, err := s.toSharedFile(ctx, file)
	if err != nil {
		return nil, err
	}
	return &models.ShareContent{
		Token: link.Token,
		Type:  models.ShareTypeFile,
		Name:  file.OriginalName,
		File:  shared,
	}, nil
}

func (s *service) folderContent(ctx context.Context, link *models.ShareLink, subPath string) (*models.ShareContent, error) {
	shared, err := s.folders.FindByID(ctx, *link.FolderID)
	if err != nil {
		return nil, shareErrors.ErrShareNotFound
	}

	cleanSub, err := cleanSubPath(subPath)
	if err != nil {
		return nil, err
	}
	targetPath := shared.Path
	if cleanSub != "" {
		targetPath = shared.Path + "/" + cleanSub
	}

	target := shared
	if targetPath != shared.Path {
		target, err = s.folders.FindByPath(ctx, link.OwnerID, targetPath)
		if err != nil {
			return nil, shareErrors.ErrShareNotFound
		}
	}

	children, err := s.folders.ListChildren(ctx, target.ID)
	if err != nil {
		return nil, err
	}

	files, err := s.filesInFolder(ctx, link, target)
	if err != nil {
		return nil, err
	}

	listing := &models.SharedFolderListing{
		Path:    cleanSub,
		Folders: make([]models.SharedSubfolder, 0, len(children)),
		Files:   files,
	}
	for _, child := range children {
		childSub := child.Name
		if cleanSub != "" {
			childSub = cleanSub + "/" + child.Name
		}
		listing.Folders = append(listing.Folders, models.SharedSubfolder{
			Name: child.Name,
			Path: childSub,
		})
	}

	return &models.ShareContent{
		Token:  link.Token,
		Type:   models.ShareTypeFolder,
		Name:   shared.Name,
		Folder: listing,
	}, nil
}

// filesInFolder lists the UPLOADED files directly inside one folder of
// a shared subtree, linking each through the share download endpoint.
func (s *service) filesInFolder(ctx context.Context, link *models.ShareLink, folder *folderModels.Folder) ([]models.SharedFile, error) {
	candidates, err := s.files.FindByFolderPathPrefix(ctx, link.OwnerID, folder.Path)
	if err != nil {
		return nil, err
	}

	files := make([]models.SharedFile, 0, len(candidates))
	for _, file := range candidates {
		if file.FolderID == nil || *file.FolderID != folder.ID {
			continue
		}
		files = append(files, models.SharedFile{
			ID:          file.ID,
			Name:        file.OriginalName,
			MimeType:    file.MimeType,
			Size:        file.Size,
			DownloadURL: fmt.Sprintf("%s/download?file=%s", s.publicURL(link.Token), file.ID),
		})
	}
	return files, nil
}

// sharedFileRecord fetches a file and verifies it is reachable through
// the link. Every failure collapses into the uniform not-found answer.
func (s *service) sharedFileRecord(ctx context.Context, link *models.ShareLink, fileID uuid.UUID) (*storageModels.File, error) {
	file, err := s.files.FindByID(ctx, fileID)
	if err != nil {
		return nil, shareErrors.ErrShareNotFound
	}
	if file.OwnerID != link.OwnerID || file.Status != storageModels.StatusUploaded {
		return nil, shareErrors.ErrShareNotFound
	}

	if link.FileID != nil {
		if *link.FileID != file.ID {
			return nil, shareErrors.ErrShareNotFound
		}
		return file, nil
	}

	if file.FolderID == nil {
		return nil, shareErrors.ErrShareNotFound
	}
	folder, err := s.folders.FindByID(ctx, *file.FolderID)
	if err != nil {
		return nil, shareErrors.ErrShareNotFound
	}
	shared, err := s.folders.FindByID(ctx, *link.FolderID)
	if err != nil {
		return nil, shareErrors.ErrShareNotFound
	}
	if folder.Path != shared.Path && !strings.HasPrefix(folder.Path, shared.Path+"/") {
		return nil, shareErrors.ErrShareNotFound
	}
	return file, nil
}

func (s *service) toSharedFile(ctx context.Context, file *storageModels.File) (*models.SharedFile, error) {
	signed, err := s.blob.GenerateSignedDownloadURL(ctx, file.StorageKey, downloadURLTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shareErrors.ErrUpstreamUnavailable, err)
	}
	return &models.SharedFile{
		ID:          file.ID,
		Name:        file.OriginalName,
		MimeType:    file.MimeType,
		Size:        file.Size,
		DownloadURL: signed.SignedURL,
	}, nil
}

// liveLink fetches a link and masks expired or exhausted ones as not
// found, so probing tokens learns nothing.
func (s *service) liveLink(ctx context.Context, token string) (*models.ShareLink, error) {
	if token == "" {
		return nil, shareErrors.ErrShareNotFound
	}
	link, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if time.Now().After(link.ExpiresAt) {
		return nil, shareErrors.ErrShareNotFound
	}
	if link.MaxViews != nil && link.Views >= *link.MaxViews {
		return nil, shareErrors.ErrShareNotFound
	}
	return link, nil
}

func checkPassword(link *models.ShareLink, password string) error {
	if link.PasswordHash == nil {
		return nil
	}
	if password == "" {
		return shareErrors.ErrPasswordRequired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*link.PasswordHash), []byte(password)); err != nil {
		return shareErrors.ErrPasswordInvalid
	}
	return nil
}

// cleanSubPath validates a browse subpath segment by segment, rejecting
// anything that could escape the shared root.
func cleanSubPath(subPath string) (string, error) {
	if subPath == "" {
		return "", nil
	}
	segments := strings.Split(subPath, "/")
	for _, segment := range segments {
		if segment == "" || segment == "." || segment == ".." {
			return "", fmt.Errorf("%w: invalid path", shareErrors.ErrInvalidRequest)
		}
	}
	return strings.Join(segments, "/"), nil
}

func (s *service) publicURL(token string) string {
	base := strings.TrimSuffix(s.config.Server.PublicBaseURL, "/") + s.config.Server.BaseRoute
	return fmt.Sprintf("%s/share/%s", base, token)
}

func (s *service) toResponse(link *models.ShareLink) *models.ShareLinkResponse {
	return &models.ShareLinkResponse{
		ShareLink:   *link,
		URL:         s.publicURL(link.Token),
		HasPassword: link.PasswordHash != nil,
	}
}

func (s *service) toResponses(links []*models.ShareLink) []models.ShareLinkResponse {
	responses := make([]models.ShareLinkResponse, 0, len(links))
	for _, link := range links {
		responses = append(responses, *s.toResponse(link))
	}
	return responses
}

func generateToken() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate share token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
