// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	uuid "github.com/gofrs/uuid"

	platformconfig "github.com/qolzam/telar-drive/internal/platform/config"
	"github.com/qolzam/telar-drive/internal/types"
	storageErrors "github.com/qolzam/telar-drive/storage/errors"
	"github.com/qolzam/telar-drive/storage/services"
)

const defaultStreamTimeout = 30 * time.Second

// ContentHandler proxies file content from the blob backend. It is the
// only surface that touches object bytes when the service runs in
// masked delivery mode.
type ContentHandler struct {
	storageService services.StorageService
	config         *platformconfig.Config
}

// NewContentHandler creates a new ContentHandler with injected dependencies
func NewContentHandler(storageService services.StorageService, config *platformconfig.Config) *ContentHandler {
	return &ContentHandler{
		storageService: storageService,
		config:         config,
	}
}

// ServeContent streams the object bytes of an uploaded file
// GET /storage/files/:fileId/content
func (h *ContentHandler) ServeContent(c *fiber.Ctx) error {
	fileID, err := uuid.FromString(c.Params("fileId"))
	if err != nil {
		return storageErrors.HandleUUIDError(c, "fileId")
	}

	file, err := h.storageService.LookupUploaded(c.Context(), fileID)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	// A view token grants access to exactly the file it was minted for.
	// Otherwise the caller must be the owner or an admin, unless the
	// file is public and the relaxed proxy policy is enabled. The
	// backend is not touched until the caller is authorized.
	authorized := false
	identified := false
	if token := c.Query("token"); token != "" {
		if tokenFileID, err := h.storageService.VerifyContentToken(token); err == nil {
			identified = true
			authorized = tokenFileID == fileID
		}
	}
	if user, ok := c.Locals(types.UserCtxName).(types.UserContext); ok {
		identified = true
		if !authorized {
			authorized = user.UserID == file.OwnerID || user.IsAdmin()
		}
	}
	if !authorized && file.IsPublic && h.config.Storage.ProxyPublicSkipsAuth {
		authorized = true
	}
	if !authorized {
		if !identified {
			return storageErrors.HandleUserContextError(c, "Authentication required")
		}
		return storageErrors.HandleServiceError(c, storageErrors.ErrPermissionDenied)
	}

	etag := fmt.Sprintf(`"%x"`, md5.Sum([]byte(fmt.Sprintf("%s-%d", file.ID, file.Size))))
	c.Set(fiber.HeaderETag, etag)
	if file.IsPublic {
		c.Set(fiber.HeaderCacheControl, "public, max-age=300")
	} else {
		c.Set(fiber.HeaderCacheControl, "private, no-store")
	}

	if c.Get(fiber.HeaderIfNoneMatch) == etag {
		return c.SendStatus(http.StatusNotModified)
	}

	timeout := h.config.Storage.StreamTimeout
	if timeout <= 0 {
		timeout = defaultStreamTimeout
	}

	// The context must outlive this handler: fasthttp drains the body
	// stream after it returns. Cancellation is tied to stream close.
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	stream, err := h.storageService.OpenFileStream(ctx, file)
	if err != nil {
		cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			return c.Status(http.StatusGatewayTimeout).SendString("content stream timed out")
		}
		return storageErrors.HandleServiceError(c, err)
	}
	body := &deadlineReader{rc: stream, deadline: time.Now().Add(timeout), cancel: cancel}

	c.Set(fiber.HeaderContentType, file.MimeType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", file.OriginalName))
	return c.SendStream(body, int(file.Size))
}

// deadlineReader aborts a backend stream that outlives its deadline, so
// a stalled backend cannot pin the proxy connection open.
type deadlineReader struct {
	rc       io.ReadCloser
	deadline time.Time
	cancel   context.CancelFunc
}

func (r *deadlineReader) Read(p []byte) (int, error) {
	if time.Now().After(r.deadline) {
		return 0, storageErrors.ErrStreamTimeout
	}
	return r.rc.Read(p)
}

func (r *deadlineReader) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	return r.rc.Close()
}
