// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"time"

	uuid "github.com/gofrs/uuid"

	"github.com/qolzam/telar-drive/sharelinks/models"
)

// Repository defines data access for share links.
type Repository interface {
	// Create inserts a new share link
	Create(ctx context.Context, link *models.ShareLink) error

	// FindByID retrieves a share link by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*models.ShareLink, error)

	// FindByToken retrieves a share link by its public token
	FindByToken(ctx context.Context, token string) (*models.ShareLink, error)

	// ListForFile retrieves every share link pointing at a file
	ListForFile(ctx context.Context, fileID uuid.UUID) ([]*models.ShareLink, error)

	// ListForFolder retrieves every share link pointing at a folder
	ListForFolder(ctx context.Context, folderID uuid.UUID) ([]*models.ShareLink, error)

	// IncrementViews bumps the view counter atomically, guarded by the
	// link's view budget. It reports false once the budget is spent.
	IncrementViews(ctx context.Context, id uuid.UUID) (bool, error)

	// Delete removes a share link
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteExpired removes links past their expiry, returning the
	// number of rows removed
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
