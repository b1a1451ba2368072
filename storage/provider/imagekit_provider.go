// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	platformconfig "github.com/qolzam/telar-drive/internal/platform/config"
)

const (
	imagekitUploadURL = "https://upload.imagekit.io/api/v1/files/upload"
	imagekitAPIBase   = "https://api.imagekit.io/v1"
)

// imagekitProvider implements BlobProvider against the ImageKit REST
// API. Like Cloudinary, uploads are browser-direct signed POSTs
// described by a JSON descriptor.
type imagekitProvider struct {
	publicKey   string
	privateKey  string
	urlEndpoint string
	httpClient  *http.Client
}

var _ BlobProvider = (*imagekitProvider)(nil)

// NewImageKitProvider creates a new ImageKit provider from configuration.
func NewImageKitProvider(cfg *platformconfig.ImageKitConfig) (BlobProvider, error) {
	if cfg.PublicKey == "" || cfg.PrivateKey == "" || cfg.URLEndpoint == "" {
		return nil, fmt.Errorf("IMAGEKIT_PUBLIC_KEY, IMAGEKIT_PRIVATE_KEY and IMAGEKIT_URL_ENDPOINT are required")
	}

	return &imagekitProvider{
		publicKey:   cfg.PublicKey,
		privateKey:  cfg.PrivateKey,
		urlEndpoint: strings.TrimSuffix(cfg.URLEndpoint, "/"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (p *imagekitProvider) Name() string {
	return "imagekit"
}

func (p *imagekitProvider) GenerateSignedUploadURL(ctx context.Context, key string, contentType string, expiresIn time.Duration) (*SignedUploadURL, error) {
	// ImageKit caps upload auth expiry at one hour from issuance.
	authExpiry := expiresIn
	if authExpiry > time.Hour {
		authExpiry = time.Hour
	}
	token := uuid.Must(uuid.NewV4()).String()
	expire := time.Now().Add(authExpiry).Unix()
	signature := p.hmacSHA1(fmt.Sprintf("%s%d", token, expire))

	folder := keyFolder(key)
	fileName := keyFilename(key)

	descriptor, err := json.Marshal(map[string]interface{}{
		"url": imagekitUploadURL,
		"params": map[string]interface{}{
			"token":     token,
			"expire":    expire,
			"signature": signature,
			"fileName":  fileName,
			"folder":    "/" + folder,
			"publicKey": p.publicKey,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upload descriptor: %w", err)
	}

	return &SignedUploadURL{
		SignedURL:  string(descriptor),
		PublicURL:  p.PublicURL(key),
		StorageKey: key,
		ExpiresAt:  time.Now().Add(expiresIn),
	}, nil
}

// GenerateSignedDownloadURL builds a signed delivery URL with the
// ik-t expiry and ik-s signature query parameters.
func (p *imagekitProvider) GenerateSignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (*SignedDownloadURL, error) {
	expiresAt := time.Now().Add(expiresIn)
	expiry := expiresAt.Unix()
	signature := p.hmacSHA1(fmt.Sprintf("%s%d", key, expiry))

	return &SignedDownloadURL{
		SignedURL: fmt.Sprintf("%s/%s?ik-t=%d&ik-s=%s", p.urlEndpoint, key, expiry, signature),
		ExpiresAt: expiresAt,
	}, nil
}

func (p *imagekitProvider) Delete(ctx context.Context, key string) error {
	fileID, err := p.lookupFileID(ctx, key)
	if err != nil {
		return err
	}
	if fileID == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/files/%s", imagekitAPIBase, fileID), nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	req.SetBasicAuth(p.privateKey, "")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("imagekit delete request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("imagekit delete returned %d", resp.StatusCode)
	}
	return nil
}

func (p *imagekitProvider) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", p.urlEndpoint, key)
}

func (p *imagekitProvider) Exists(ctx context.Context, key string) (bool, error) {
	fileID, err := p.lookupFileID(ctx, key)
	if err != nil {
		return false, err
	}
	return fileID != "", nil
}

func (p *imagekitProvider) SetVisibility(ctx context.Context, key string, isPublic bool) error {
	// ImageKit manages visibility at the media library level, not per
	// object through this API surface.
	return nil
}

func (p *imagekitProvider) OpenStream(ctx context.Context, key string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.PublicURL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagekit download request failed: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrObjectNotFound
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("imagekit download returned %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// lookupFileID finds the media-library file id for a storage key, or
// "" when no file matches.
func (p *imagekitProvider) lookupFileID(ctx context.Context, key string) (string, error) {
	folder := keyFolder(key)
	fileName := keyFilename(key)

	query := url.Values{}
	query.Set("path", "/"+folder)
	query.Set("searchQuery", fmt.Sprintf(`name = %q`, fileName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/files?%s", imagekitAPIBase, query.Encode()), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build list request: %w", err)
	}
	req.SetBasicAuth(p.privateKey, "")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("imagekit list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("imagekit list returned %d", resp.StatusCode)
	}

	var files []struct {
		FileID string `json:"fileId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		return "", fmt.Errorf("failed to decode imagekit list response: %w", err)
	}
	if len(files) == 0 {
		return "", nil
	}
	return files[0].FileID, nil
}

func (p *imagekitProvider) hmacSHA1(message string) string {
	mac := hmac.New(sha1.New, []byte(p.privateKey))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
