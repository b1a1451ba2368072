// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"time"

	uuid "github.com/gofrs/uuid"
)

// ShareLink represents a share link record in the database. Exactly one
// of FileID and FolderID is set.
type ShareLink struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Token        string     `db:"token" json:"token"`
	FileID       *uuid.UUID `db:"file_id" json:"fileId,omitempty"`
	FolderID     *uuid.UUID `db:"folder_id" json:"folderId,omitempty"`
	OwnerID      uuid.UUID  `db:"owner_id" json:"ownerId"`
	ExpiresAt    time.Time  `db:"expires_at" json:"expiresAt"`
	MaxViews     *int       `db:"max_views" json:"maxViews,omitempty"`
	Views        int        `db:"views" json:"views"`
	PasswordHash *string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

// CreateShareLinkRequest represents the request payload for creating a
// share link. ExpiresAt defaults to seven days out when absent.
type CreateShareLinkRequest struct {
	FileID    *uuid.UUID `json:"fileId,omitempty"`
	FolderID  *uuid.UUID `json:"folderId,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	MaxViews  *int       `json:"maxViews,omitempty"`
	Password  string     `json:"password,omitempty"`
}

// ShareLinkResponse is a share link with its public URL.
type ShareLinkResponse struct {
	ShareLink
	URL         string `json:"url"`
	HasPassword bool   `json:"hasPassword"`
}

// ShareInfo is the password-free view of a share link, enough for a
// client to decide whether to prompt before accessing.
type ShareInfo struct {
	Token            string `json:"token"`
	Type             string `json:"type"`
	PasswordRequired bool   `json:"passwordRequired"`
}

// Share target types
const (
	ShareTypeFile   = "file"
	ShareTypeFolder = "folder"
)

// SharedFile is a file exposed through a share link.
type SharedFile struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	MimeType    string    `json:"mimeType"`
	Size        int64     `json:"size"`
	DownloadURL string    `json:"downloadUrl"`
}

// SharedSubfolder is a child folder exposed through a share link. Path
// is relative to the share root.
type SharedSubfolder struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// SharedFolderListing is the content of a shared folder at one subpath.
type SharedFolderListing struct {
	// Path is the browsed subpath within the share, empty at the root.
	Path    string            `json:"path"`
	Folders []SharedSubfolder `json:"folders"`
	Files   []SharedFile      `json:"files"`
}

// ShareContent is the resolved target of a successful share access.
type ShareContent struct {
	Token  string               `json:"token"`
	Type   string               `json:"type"`
	Name   string               `json:"name"`
	File   *SharedFile          `json:"file,omitempty"`
	Folder *SharedFolderListing `json:"folder,omitempty"`
}
