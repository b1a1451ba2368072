// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"time"

	uuid "github.com/gofrs/uuid"
)

// Folder represents a folder record in the database. Path is the
// materialized path from the owner's root, e.g. "docs/2024/reports";
// it is unique per owner.
type Folder struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Path      string     `db:"path" json:"path"`
	ParentID  *uuid.UUID `db:"parent_id" json:"parentId,omitempty"`
	OwnerID   uuid.UUID  `db:"owner_id" json:"ownerId"`
	IsPublic  bool       `db:"is_public" json:"isPublic"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}

// CreateFolderRequest represents the request payload for creating a folder
type CreateFolderRequest struct {
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parentId,omitempty"`
	IsPublic bool       `json:"isPublic"`
}

// RenameFolderRequest carries the new folder name.
type RenameFolderRequest struct {
	Name string `json:"name"`
}

// MoveFolderRequest identifies the destination parent. A nil ParentID
// moves the folder to the owner's root.
type MoveFolderRequest struct {
	ParentID *uuid.UUID `json:"parentId,omitempty"`
}

// ListFoldersQuery holds the supported folder listing filters, decoded
// from the query string.
type ListFoldersQuery struct {
	Search   string     `schema:"search"`
	ParentID *uuid.UUID `schema:"parentId"`
	// Root limits the listing to top-level folders. ParentID and Root
	// are mutually exclusive.
	Root  bool `schema:"root"`
	Page  int  `schema:"page"`
	Limit int  `schema:"limit"`
}

// ListFoldersResponse is a paginated folder listing.
type ListFoldersResponse struct {
	Folders []Folder `json:"folders"`
	Total   int64    `json:"total"`
	Page    int      `json:"page"`
	Limit   int      `json:"limit"`
}

// FolderDetailResponse is a folder with its direct children and the
// number of files it holds. File listings themselves go through the
// file listing endpoint with a folderId filter.
type FolderDetailResponse struct {
	Folder
	Children  []Folder `json:"children"`
	FileCount int64    `json:"fileCount"`
}
