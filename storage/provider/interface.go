// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by OpenStream when the backing object
// does not exist.
var ErrObjectNotFound = errors.New("storage object not found")

// SignedUploadURL describes how a client uploads a file directly to the
// backend. SignedURL is either a plain URL (PUT) or a JSON descriptor
// with the target URL and signed form fields for multi-field signed
// POST backends.
type SignedUploadURL struct {
	SignedURL  string    `json:"signedUrl"`
	PublicURL  string    `json:"publicUrl"`
	StorageKey string    `json:"storageKey"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// SignedDownloadURL is a short-lived URL granting read access to a
// single object.
type SignedDownloadURL struct {
	SignedURL string    `json:"signedUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// BlobProvider defines the interface for blob storage backends.
// This interface is provider-agnostic, allowing easy switching between
// the local filesystem, S3-compatible stores, Cloudinary and ImageKit.
type BlobProvider interface {
	// GenerateSignedUploadURL generates a URL for the client to upload
	// the object directly. The URL expires after the specified duration.
	GenerateSignedUploadURL(ctx context.Context, key string, contentType string, expiresIn time.Duration) (*SignedUploadURL, error)

	// GenerateSignedDownloadURL generates a URL for the client to
	// view/download the object. The URL expires after the specified duration.
	GenerateSignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (*SignedDownloadURL, error)

	// Delete physically deletes the object. Deleting an absent object
	// is not an error.
	Delete(ctx context.Context, key string) error

	// PublicURL returns the canonical public URL for the object without
	// any network call.
	PublicURL(key string) string

	// Exists checks whether the object is present in the backend.
	Exists(ctx context.Context, key string) (bool, error)

	// SetVisibility applies the object-level ACL where the backend has
	// one. Backends without a per-object ACL primitive treat this as a
	// no-op.
	SetVisibility(ctx context.Context, key string, isPublic bool) error

	// OpenStream opens the object content for reading. Returns
	// ErrObjectNotFound when the object is absent.
	OpenStream(ctx context.Context, key string) (io.ReadCloser, error)

	// Name returns the backend identifier ("local", "s3", ...).
	Name() string
}
