// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"

	uuid "github.com/gofrs/uuid"

	"github.com/qolzam/telar-drive/internal/types"
	"github.com/qolzam/telar-drive/sharelinks/models"
)

// ShareLinkService defines the interface for share link management and
// public share access.
type ShareLinkService interface {
	// Create mints a share link for a file or folder the user owns
	Create(ctx context.Context, req *models.CreateShareLinkRequest, user types.UserContext) (*models.ShareLinkResponse, error)

	// ListForFile retrieves the user's share links pointing at a file
	ListForFile(ctx context.Context, fileID uuid.UUID, user types.UserContext) ([]models.ShareLinkResponse, error)

	// ListForFolder retrieves the user's share links pointing at a folder
	ListForFolder(ctx context.Context, folderID uuid.UUID, user types.UserContext) ([]models.ShareLinkResponse, error)

	// Delete revokes a share link
	Delete(ctx context.Context, linkID uuid.UUID, user types.UserContext) error

	// CleanupExpired removes links past their expiry, returning the
	// number of rows removed
	CleanupExpired(ctx context.Context) (int64, error)

	// Resolve describes a live share link without spending a view.
	// Missing, expired and exhausted links are indistinguishable.
	Resolve(ctx context.Context, token string) (*models.ShareInfo, error)

	// Access opens a share link, spending one view. subPath browses
	// below a shared folder's root; it is ignored for file shares.
	Access(ctx context.Context, token string, password string, subPath string) (*models.ShareContent, error)

	// FetchFile resolves the download URL of one file reachable through
	// a share, validating the file actually lives under the share root
	FetchFile(ctx context.Context, token string, fileID uuid.UUID, password string) (*models.SharedFile, error)
}
