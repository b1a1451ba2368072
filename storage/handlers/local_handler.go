// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/qolzam/telar-drive/internal/pkg/log"
	storageErrors "github.com/qolzam/telar-drive/storage/errors"
	"github.com/qolzam/telar-drive/storage/provider"
)

// LocalHandler serves the token-gated upload and download endpoints the
// filesystem backend hands out in place of real signed URLs. It is only
// registered when the local provider is active.
type LocalHandler struct {
	provider *provider.LocalProvider
}

// NewLocalHandler creates a new LocalHandler with injected dependencies
func NewLocalHandler(localProvider *provider.LocalProvider) *LocalHandler {
	return &LocalHandler{
		provider: localProvider,
	}
}

// Upload receives an object body against a single-use upload token
// PUT /storage/local/upload?token=...
func (h *LocalHandler) Upload(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return storageErrors.HandleValidationError(c, "token is required")
	}

	key, valid, err := h.provider.ValidateUploadToken(c.Context(), token)
	if err != nil {
		return storageErrors.HandleServiceError(c, fmt.Errorf("%w: %v", storageErrors.ErrProviderUnavailable, err))
	}
	if !valid {
		return storageErrors.HandleServiceError(c, storageErrors.ErrPermissionDenied)
	}

	if err := h.provider.SaveObject(key, bytes.NewReader(c.Body())); err != nil {
		return storageErrors.HandleServiceError(c, fmt.Errorf("%w: %v", storageErrors.ErrProviderUnavailable, err))
	}

	// The token is burned only after the body landed, so a failed write
	// leaves the upload retryable.
	if err := h.provider.ConsumeUploadToken(c.Context(), token); err != nil {
		log.Warn("failed to consume upload token: %v", err)
	}

	return c.JSON(fiber.Map{"key": key})
}

// Download streams an object against a download token
// GET /storage/local/download?token=...
func (h *LocalHandler) Download(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return storageErrors.HandleValidationError(c, "token is required")
	}

	key, valid, err := h.provider.ValidateDownloadToken(c.Context(), token)
	if err != nil {
		return storageErrors.HandleServiceError(c, fmt.Errorf("%w: %v", storageErrors.ErrProviderUnavailable, err))
	}
	if !valid {
		return storageErrors.HandleServiceError(c, storageErrors.ErrPermissionDenied)
	}

	stream, err := h.provider.OpenStream(c.Context(), key)
	if err != nil {
		if errors.Is(err, provider.ErrObjectNotFound) {
			return storageErrors.HandleServiceError(c, storageErrors.ErrFileNotFound)
		}
		return storageErrors.HandleServiceError(c, fmt.Errorf("%w: %v", storageErrors.ErrProviderUnavailable, err))
	}

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Status(http.StatusOK)
	return c.SendStream(stream)
}
