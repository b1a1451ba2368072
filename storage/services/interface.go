// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"io"

	uuid "github.com/gofrs/uuid"

	"github.com/qolzam/telar-drive/internal/types"
	"github.com/qolzam/telar-drive/storage/models"
)

// FolderRef is the slice of folder state the storage service needs to
// place files and validate ownership.
type FolderRef struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Path    string
}

// FolderLookup resolves folder references for file placement. The
// folders module provides the implementation; the narrow interface
// keeps the two modules decoupled.
type FolderLookup interface {
	Lookup(ctx context.Context, id uuid.UUID) (*FolderRef, error)
}

// StorageService defines the interface for upload lifecycle and file
// operations
type StorageService interface {
	// InitializeUpload creates a PENDING file record and returns the
	// signed upload descriptor
	InitializeUpload(ctx context.Context, req *models.InitUploadRequest, user types.UserContext) (*models.InitUploadResponse, error)

	// ConfirmUpload verifies the object landed in the backend and
	// transitions the file to UPLOADED, or to FAILED when it is absent
	ConfirmUpload(ctx context.Context, fileID uuid.UUID, user types.UserContext) (*models.FileResponse, error)

	// CancelUpload aborts a PENDING upload and removes its record
	CancelUpload(ctx context.Context, fileID uuid.UUID, user types.UserContext) error

	// ReapExpired removes PENDING records whose upload window has
	// passed, returning the number of rows reaped
	ReapExpired(ctx context.Context) (int, error)

	// GetFile retrieves a single file with its resolved content URL
	GetFile(ctx context.Context, fileID uuid.UUID, user types.UserContext) (*models.FileResponse, error)

	// ListFiles retrieves a filtered, paginated file listing
	ListFiles(ctx context.Context, query *models.ListFilesQuery, user types.UserContext) (*models.ListFilesResponse, error)

	// UpdateFile updates the mutable file fields
	UpdateFile(ctx context.Context, fileID uuid.UUID, req *models.UpdateFileRequest, user types.UserContext) (*models.FileResponse, error)

	// TogglePublic flips the file's public visibility
	TogglePublic(ctx context.Context, fileID uuid.UUID, user types.UserContext) (*models.FileResponse, error)

	// DeleteFiles soft deletes a batch of files after verifying
	// ownership of every one
	DeleteFiles(ctx context.Context, fileIDs []uuid.UUID, user types.UserContext) error

	// ResolveURL produces the content URL for a file according to the
	// configured delivery mode
	ResolveURL(ctx context.Context, file *models.File) (*models.ResolvedURLResponse, error)

	// VerifyContentToken validates a masked-mode view token and returns
	// the file ID it grants access to
	VerifyContentToken(token string) (uuid.UUID, error)

	// LookupUploaded retrieves an UPLOADED file record so the content
	// proxy can authorize before opening any backend stream
	LookupUploaded(ctx context.Context, fileID uuid.UUID) (*models.File, error)

	// OpenFileStream opens the backend object of a file for the content
	// proxy
	OpenFileStream(ctx context.Context, file *models.File) (io.ReadCloser, error)
}
