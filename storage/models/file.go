// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"time"

	uuid "github.com/gofrs/uuid"
)

// File status lifecycle. PENDING rows become UPLOADED on confirmation,
// FAILED when confirmation finds no object, DELETED on soft delete.
const (
	StatusPending  = "PENDING"
	StatusUploaded = "UPLOADED"
	StatusFailed   = "FAILED"
	StatusDeleted  = "DELETED"
)

// File represents a file record in the database
type File struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Filename     string     `db:"filename" json:"filename"`
	OriginalName string     `db:"original_name" json:"originalName"`
	MimeType     string     `db:"mime_type" json:"mimeType"`
	Size         int64      `db:"size" json:"size"`
	StorageKey   string     `db:"storage_key" json:"-"`
	Provider     string     `db:"provider" json:"provider"`
	Status       string     `db:"status" json:"status"`
	FolderID     *uuid.UUID `db:"folder_id" json:"folderId,omitempty"`
	OwnerID      uuid.UUID  `db:"owner_id" json:"ownerId"`
	IsPublic     bool       `db:"is_public" json:"isPublic"`
	ExpiresAt    *time.Time `db:"expires_at" json:"expiresAt,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// InitUploadRequest represents the request payload for initializing an upload
type InitUploadRequest struct {
	Filename string     `json:"filename"`
	MimeType string     `json:"mimeType"`
	Size     int64      `json:"size"`
	FolderID *uuid.UUID `json:"folderId,omitempty"`
	IsPublic bool       `json:"isPublic"`
}

// InitUploadResponse carries the upload descriptor back to the client.
// SignedURL is either a plain PUT URL or a JSON descriptor of a signed
// POST, depending on the backend.
type InitUploadResponse struct {
	FileID     uuid.UUID `json:"fileId"`
	SignedURL  string    `json:"signedUrl"`
	PublicURL  string    `json:"publicUrl"`
	StorageKey string    `json:"storageKey"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// ConfirmUploadRequest represents the request to confirm an upload
type ConfirmUploadRequest struct {
	FileID uuid.UUID `json:"fileId"`
}

// CancelUploadRequest represents the request to cancel a pending upload
type CancelUploadRequest struct {
	FileID uuid.UUID `json:"fileId"`
}

// FileResponse is a file record with its resolved content URL.
type FileResponse struct {
	File
	URL string `json:"url"`
}

// ListFilesQuery holds the supported file listing filters, decoded from
// the query string.
type ListFilesQuery struct {
	Search   string     `schema:"search"`
	FolderID *uuid.UUID `schema:"folderId"`
	// Root limits the listing to files outside any folder. FolderID and
	// Root are mutually exclusive.
	Root        bool       `schema:"root"`
	CreatedFrom *time.Time `schema:"createdFrom"`
	CreatedTo   *time.Time `schema:"createdTo"`
	// UploadedBy lets admins list another user's files.
	UploadedBy *uuid.UUID `schema:"uploadedBy"`
	Page       int        `schema:"page"`
	Limit      int        `schema:"limit"`
}

// ListFilesResponse is a paginated file listing.
type ListFilesResponse struct {
	Files []FileResponse `json:"files"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// UpdateFileRequest carries the mutable file fields. Nil pointers leave
// the field unchanged.
type UpdateFileRequest struct {
	Filename *string    `json:"filename,omitempty"`
	FolderID *uuid.UUID `json:"folderId,omitempty"`
	IsPublic *bool      `json:"isPublic,omitempty"`
}

// BatchDeleteRequest identifies the files to soft delete.
type BatchDeleteRequest struct {
	FileIDs []uuid.UUID `json:"fileIds"`
}

// ResolvedURLResponse is the answer to a single-file URL resolution.
type ResolvedURLResponse struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
