// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qolzam/telar-drive/storage/provider/tokenstore"
)

// LocalProvider stores objects on the local filesystem. Signed URLs are
// emulated with random bearer tokens pointing at this service's own
// /storage/local endpoints; the tokens live in the configured token
// store until they expire.
type LocalProvider struct {
	storagePath string
	storageURL  string
	apiBaseURL  string
	tokens      tokenstore.Store
}

var _ BlobProvider = (*LocalProvider)(nil)

// NewLocalProvider creates a filesystem-backed provider. apiBaseURL is
// the externally reachable base of this service's API (public base URL
// plus base route); upload and download token URLs are built on it.
func NewLocalProvider(storagePath, storageURL, apiBaseURL string, tokens tokenstore.Store) (*LocalProvider, error) {
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory: %w", err)
	}

	return &LocalProvider{
		storagePath: storagePath,
		storageURL:  strings.TrimSuffix(storageURL, "/"),
		apiBaseURL:  strings.TrimSuffix(apiBaseURL, "/"),
		tokens:      tokens,
	}, nil
}

func (p *LocalProvider) Name() string {
	return "local"
}

func (p *LocalProvider) GenerateSignedUploadURL(ctx context.Context, key string, contentType string, expiresIn time.Duration) (*SignedUploadURL, error) {
	token, expiresAt, err := p.issueToken(ctx, key, tokenstore.KindUpload, expiresIn)
	if err != nil {
		return nil, err
	}

	return &SignedUploadURL{
		SignedURL:  fmt.Sprintf("%s/storage/local/upload?token=%s", p.apiBaseURL, token),
		PublicURL:  p.PublicURL(key),
		StorageKey: key,
		ExpiresAt:  expiresAt,
	}, nil
}

func (p *LocalProvider) GenerateSignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (*SignedDownloadURL, error) {
	token, expiresAt, err := p.issueToken(ctx, key, tokenstore.KindDownload, expiresIn)
	if err != nil {
		return nil, err
	}

	return &SignedDownloadURL{
		SignedURL: fmt.Sprintf("%s/storage/local/download?token=%s", p.apiBaseURL, token),
		ExpiresAt: expiresAt,
	}, nil
}

func (p *LocalProvider) issueToken(ctx context.Context, key string, kind tokenstore.Kind, expiresIn time.Duration) (string, time.Time, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(raw)
	expiresAt := time.Now().Add(expiresIn)

	if err := p.tokens.Save(ctx, token, tokenstore.Entry{Key: key, Kind: kind, ExpiresAt: expiresAt}); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ValidateUploadToken returns the storage key bound to a live upload
// token without consuming it.
func (p *LocalProvider) ValidateUploadToken(ctx context.Context, token string) (string, bool, error) {
	return p.validateToken(ctx, token, tokenstore.KindUpload)
}

// ValidateDownloadToken returns the storage key bound to a live
// download token. Download tokens stay valid until expiry.
func (p *LocalProvider) ValidateDownloadToken(ctx context.Context, token string) (string, bool, error) {
	return p.validateToken(ctx, token, tokenstore.KindDownload)
}

func (p *LocalProvider) validateToken(ctx context.Context, token string, kind tokenstore.Kind) (string, bool, error) {
	entry, found, err := p.tokens.Peek(ctx, token)
	if err != nil || !found {
		return "", false, err
	}
	if entry.Kind != kind {
		return "", false, nil
	}
	return entry.Key, true, nil
}

// ConsumeUploadToken invalidates an upload token after the object body
// has been written. Upload tokens are single-use.
func (p *LocalProvider) ConsumeUploadToken(ctx context.Context, token string) error {
	_, _, err := p.tokens.Consume(ctx, token)
	return err
}

// SaveObject writes the object body under the storage key.
func (p *LocalProvider) SaveObject(key string, body io.Reader) error {
	filePath, err := p.objectPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create object file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("failed to write object body: %w", err)
	}
	return nil
}

func (p *LocalProvider) Delete(ctx context.Context, key string) error {
	filePath, err := p.objectPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (p *LocalProvider) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", p.storageURL, key)
}

func (p *LocalProvider) Exists(ctx context.Context, key string) (bool, error) {
	filePath, err := p.objectPath(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(filePath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}

func (p *LocalProvider) SetVisibility(ctx context.Context, key string, isPublic bool) error {
	// The filesystem backend has no per-object ACL; visibility is
	// enforced by the content resolver.
	return nil
}

func (p *LocalProvider) OpenStream(ctx context.Context, key string) (io.ReadCloser, error) {
	filePath, err := p.objectPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return f, nil
}

// objectPath resolves the key inside the storage root and rejects keys
// that would escape it.
func (p *LocalProvider) objectPath(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(p.storagePath, cleaned), nil
}
