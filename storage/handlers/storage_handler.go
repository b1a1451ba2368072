// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"net/http"
	"reflect"
	"time"

	"github.com/gofiber/fiber/v2"
	uuid "github.com/gofrs/uuid"
	"github.com/gorilla/schema"

	"github.com/qolzam/telar-drive/internal/types"
	storageErrors "github.com/qolzam/telar-drive/storage/errors"
	"github.com/qolzam/telar-drive/storage/models"
	"github.com/qolzam/telar-drive/storage/services"
)

var queryDecoder = schema.NewDecoder()

func init() {
	queryDecoder.IgnoreUnknownKeys(true)
	queryDecoder.RegisterConverter(uuid.UUID{}, func(value string) reflect.Value {
		id, err := uuid.FromString(value)
		if err != nil {
			return reflect.Value{}
		}
		return reflect.ValueOf(id)
	})
	queryDecoder.RegisterConverter(time.Time{}, func(value string) reflect.Value {
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return reflect.Value{}
		}
		return reflect.ValueOf(t)
	})
}

// StorageHandler handles the upload lifecycle and file management
// endpoints.
type StorageHandler struct {
	storageService services.StorageService
}

// NewStorageHandler creates a new StorageHandler with injected dependencies
func NewStorageHandler(storageService services.StorageService) *StorageHandler {
	return &StorageHandler{
		storageService: storageService,
	}
}

func requireUser(c *fiber.Ctx) (types.UserContext, bool) {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	return user, ok
}

// InitializeUpload handles upload initialization
// POST /storage/upload/init
func (h *StorageHandler) InitializeUpload(c *fiber.Ctx) error {
	var req models.InitUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return storageErrors.HandleValidationError(c, "Invalid request body", err.Error())
	}

	user, ok := requireUser(c)
	if !ok {
		return storageErrors.HandleUserContextError(c, "Invalid user context")
	}

	result, err := h.storageService.InitializeUpload(c.Context(), &req, user)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(result)
}

// ConfirmUpload handles upload confirmation
// POST /storage/upload/confirm
func (h *StorageHandler) ConfirmUpload(c *fiber.Ctx) error {
	var req models.ConfirmUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return storageErrors.HandleValidationError(c, "Invalid request body", err.Error())
	}
	if req.FileID == uuid.Nil {
		return storageErrors.HandleValidationError(c, "fileId is required")
	}

	user, ok := requireUser(c)
	if !ok {
		return storageErrors.HandleUserContextError(c, "Invalid user context")
	}

	result, err := h.storageService.ConfirmUpload(c.Context(), req.FileID, user)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.JSON(result)
}

// CancelUpload aborts a pending upload
// POST /storage/upload/cancel
func (h *StorageHandler) CancelUpload(c *fiber.Ctx) error {
	var req models.CancelUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return storageErrors.HandleValidationError(c, "Invalid request body", err.Error())
	}
	if req.FileID == uuid.Nil {
		return storageErrors.HandleValidationError(c, "fileId is required")
	}

	user, ok := requireUser(c)
	if !ok {
		return storageErrors.HandleUserContextError(c, "Invalid user context")
	}

	if err := h.storageService.CancelUpload(c.Context(), req.FileID, user); err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.SendStatus(http.StatusNoContent)
}

// ListFiles handles the filtered, paginated file listing
// GET /storage/files
func (h *StorageHandler) ListFiles(c *fiber.Ctx) error {
	user, ok := requireUser(c)
	if !ok {
		return storageErrors.HandleUserContextError(c, "Invalid user context")
	}

	values := make(map[string][]string)
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		values[string(key)] = append(values[string(key)], string(value))
	})

	var query models.ListFilesQuery
	if err := queryDecoder.Decode(&query, values); err != nil {
		return storageErrors.HandleValidationError(c, "Invalid query parameters", err.Error())
	}

	result, err := h.storageService.ListFiles(c.Context(), &query, user)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.JSON(result)
}

// GetFile retrieves a single file with its resolved content URL
// GET /storage/files/:fileId
func (h *StorageHandler) GetFile(c *fiber.Ctx) error {
	fileID, err := uuid.FromString(c.Params("fileId"))
	if err != nil {
		return storageErrors.HandleUUIDError(c, "fileId")
	}

	user, ok := requireUser(c)
	if !ok {
		return storageErrors.HandleUserContextError(c, "Invalid user context")
	}

	result, err := h.storageService.GetFile(c.Context(), fileID, user)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.JSON(result)
}

// GetFileURL resolves the content URL for a file
// GET /storage/files/:fileId/url
func (h *StorageHandler) GetFileURL(c *fiber.Ctx) error {
	fileID, err := uuid.FromString(c.Params("fileId"))
	if err != nil {
		return storageErrors.HandleUUIDError(c, "fileId")
	}

	user, ok := requireUser(c)
	if !ok {
		return storageErrors.HandleUserContextError(c, "Invalid user context")
	}

	file, err := h.storageService.GetFile(c.Context(), fileID, user)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	resolved, err := h.storageService.ResolveURL(c.Context(), &file.File)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.JSON(resolved)
}

// UpdateFile updates the mutable file fields
// PATCH /storage/files/:fileId
func (h *StorageHandler) UpdateFile(c *fiber.Ctx) error {
	fileID, err := uuid.FromString(c.Params("fileId"))
	if err != nil {
		return storageErrors.HandleUUIDError(c, "fileId")
	}

	var req models.UpdateFileRequest
	if err := c.BodyParser(&req); err != nil {
		return storageErrors.HandleValidationError(c, "Invalid request body", err.Error())
	}

	user, ok := requireUser(c)
	if !ok {
		return storageErrors.HandleUserContextError(c, "Invalid user context")
	}

	result, err := h.storageService.UpdateFile(c.Context(), fileID, &req, user)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.JSON(result)
}

// TogglePublic flips the file's public visibility
// PATCH /storage/files/:fileId/toggle-public
func (h *StorageHandler) TogglePublic(c *fiber.Ctx) error {
	fileID, err := uuid.FromString(c.Params("fileId"))
	if err != nil {
		return storageErrors.HandleUUIDError(c, "fileId")
	}

	user, ok := requireUser(c)
	if !ok {
		return storageErrors.HandleUserContextError(c, "Invalid user context")
	}

	result, err := h.storageService.TogglePublic(c.Context(), fileID, user)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.JSON(result)
}

// DeleteFile handles single file deletion
// DELETE /storage/files/:fileId
func (h *StorageHandler) DeleteFile(c *fiber.Ctx) error {
	fileID, err := uuid.FromString(c.Params("fileId"))
	if err != nil {
		return storageErrors.HandleUUIDError(c, "fileId")
	}

	user, ok := requireUser(c)
	if !ok {
		return storageErrors.HandleUserContextError(c, "Invalid user context")
	}

	if err := h.storageService.DeleteFiles(c.Context(), []uuid.UUID{fileID}, user); err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.SendStatus(http.StatusNoContent)
}

// DeleteFiles handles batch file deletion
// DELETE /storage/files/batch
func (h *StorageHandler) DeleteFiles(c *fiber.Ctx) error {
	var req models.BatchDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return storageErrors.HandleValidationError(c, "Invalid request body", err.Error())
	}
	if len(req.FileIDs) == 0 {
		return storageErrors.HandleValidationError(c, "fileIds must not be empty")
	}

	user, ok := requireUser(c)
	if !ok {
		return storageErrors.HandleUserContextError(c, "Invalid user context")
	}

	if err := h.storageService.DeleteFiles(c.Context(), req.FileIDs, user); err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.SendStatus(http.StatusNoContent)
}
