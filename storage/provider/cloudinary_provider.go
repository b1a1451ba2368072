// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	platformconfig "github.com/qolzam/telar-drive/internal/platform/config"
)

const cloudinaryAPIBase = "https://api.cloudinary.com/v1_1"

// cloudinaryProvider implements BlobProvider against the Cloudinary
// REST API. Uploads are browser-direct signed POSTs, so the signed
// upload "URL" is a JSON descriptor carrying the endpoint and the
// signed form fields.
type cloudinaryProvider struct {
	cloudName  string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

var _ BlobProvider = (*cloudinaryProvider)(nil)

// NewCloudinaryProvider creates a new Cloudinary provider from configuration.
func NewCloudinaryProvider(cfg *platformconfig.CloudinaryConfig) (BlobProvider, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required")
	}

	return &cloudinaryProvider{
		cloudName:  cfg.CloudName,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (p *cloudinaryProvider) Name() string {
	return "cloudinary"
}

func (p *cloudinaryProvider) GenerateSignedUploadURL(ctx context.Context, key string, contentType string, expiresIn time.Duration) (*SignedUploadURL, error) {
	timestamp := time.Now().Unix()
	folder := keyFolder(key)
	publicID := stripExtension(keyFilename(key))

	signature := p.signParams(map[string]string{
		"timestamp": fmt.Sprintf("%d", timestamp),
		"folder":    folder,
		"public_id": publicID,
	})

	descriptor, err := json.Marshal(map[string]interface{}{
		"url": fmt.Sprintf("%s/%s/auto/upload", cloudinaryAPIBase, p.cloudName),
		"params": map[string]interface{}{
			"api_key":   p.apiKey,
			"timestamp": timestamp,
			"signature": signature,
			"folder":    folder,
			"public_id": publicID,
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

// GenerateSignedDownloadURL builds an authenticated delivery URL. The
// URL signature covers the public id, so swapping the key invalidates it.
func (p *cloudinaryProvider) GenerateSignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (*SignedDownloadURL, error) {
	toSign := key + p.apiSecret
	digest := sha1.Sum([]byte(toSign))
	sig := base64.RawURLEncoding.EncodeToString(digest[:])[:8]

	return &SignedDownloadURL{
		SignedURL: fmt.Sprintf("https://res.cloudinary.com/%s/image/authenticated/s--%s--/%s", p.cloudName, sig, key),
		ExpiresAt: time.Now().Add(expiresIn),
	}, nil
}

func (p *cloudinaryProvider) Delete(ctx context.Context, key string) error {
	publicID := stripExtension(key)
	timestamp := time.Now().Unix()

	signature := p.signParams(map[string]string{
		"public_id": publicID,
		"timestamp": fmt.Sprintf("%d", timestamp),
	})

	form := url.Values{}
	form.Set("public_id", publicID)
	form.Set("timestamp", fmt.Sprintf("%d", timestamp))
	form.Set("api_key", p.apiKey)
	form.Set("signature", signature)

	destroyURL := fmt.Sprintf("%s/%s/image/destroy", cloudinaryAPIBase, p.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destroyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build destroy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cloudinary destroy request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("cloudinary destroy returned %d: %s", resp.StatusCode, body)
	}
	return nil
}

func (p *cloudinaryProvider) PublicURL(key string) string {
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/%s", p.cloudName, key)
}

func (p *cloudinaryProvider) Exists(ctx context.Context, key string) (bool, error) {
	publicID := stripExtension(key)
	resourceURL := fmt.Sprintf("%s/%s/resources/image/upload/%s", cloudinaryAPIBase, p.cloudName, url.PathEscape(publicID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build resource request: %w", err)
	}
	req.SetBasicAuth(p.apiKey, p.apiSecret)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("cloudinary resource request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("cloudinary resource check returned %d", resp.StatusCode)
	}
}

func (p *cloudinaryProvider) SetVisibility(ctx context.Context, key string, isPublic bool) error {
	// Cloudinary scopes visibility to the delivery type chosen at
	// upload, not a mutable per-object ACL.
	return nil
}

func (p *cloudinaryProvider) OpenStream(ctx context.Context, key string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.PublicURL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary download request failed: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrObjectNotFound
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("cloudinary download returned %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// signParams produces Cloudinary's API signature: parameters sorted by
// name, joined as key=value with &, the API secret appended, SHA-1 hex.
func (p *cloudinaryProvider) signParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	toSign := strings.Join(pairs, "&") + p.apiSecret
	return fmt.Sprintf("%x", sha1.Sum([]byte(toSign)))
}

func keyFolder(key string) string {
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[:idx]
	}
	return ""
}

func keyFilename(key string) string {
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[idx+1:]
	}
	return key
}

func stripExtension(key string) string {
	if idx := strings.LastIndex(key, "."); idx > strings.LastIndex(key, "/") {
		return key[:idx]
	}
	return key
}
