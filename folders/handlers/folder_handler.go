// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"net/http"
	"reflect"

	"github.com/gofiber/fiber/v2"
	uuid "github.com/gofrs/uuid"
	"github.com/gorilla/schema"

	folderErrors "github.com/qolzam/telar-drive/folders/errors"
	"github.com/qolzam/telar-drive/folders/models"
	"github.com/qolzam/telar-drive/folders/services"
	"github.com/qolzam/telar-drive/internal/types"
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
}

// FolderHandler handles the folder management endpoints.
type FolderHandler struct {
	folderService services.FolderService
}

// NewFolderHandler creates a new FolderHandler with injected dependencies
func NewFolderHandler(folderService services.FolderService) *FolderHandler {
	return &FolderHandler{
		folderService: folderService,
	}
}

func requireUser(c *fiber.Ctx) (types.UserContext, bool) {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	return user, ok
}

// CreateFolder creates a folder under an optional parent
// POST /folders
func (h *FolderHandler) CreateFolder(c *fiber.Ctx) error {
	var req models.CreateFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return folderErrors.HandleValidationError(c, "Invalid request body", err.Error())
	}

	user, ok := requireUser(c)
	if !ok {
		return folderErrors.HandleUserContextError(c, "Invalid user context")
	}

	folder, err := h.folderService.CreateFolder(c.Context(), &req, user)
	if err != nil {
		return folderErrors.HandleServiceError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(folder)
}

// GetFolder retrieves a folder with its children and file count
// GET /folders/:folderId
func (h *FolderHandler) GetFolder(c *fiber.Ctx) error {
	folderID, err := uuid.FromString(c.Params("folderId"))
	if err != nil {
		return folderErrors.HandleUUIDError(c, "folderId")
	}

	user, ok := requireUser(c)
	if !ok {
		return folderErrors.HandleUserContextError(c, "Invalid user context")
	}

	folder, err := h.folderService.GetFolder(c.Context(), folderID, user)
	if err != nil {
		return folderErrors.HandleServiceError(c, err)
	}

	return c.JSON(folder)
}

// ListFolders handles the filtered, paginated folder listing
// GET /folders
func (h *FolderHandler) ListFolders(c *fiber.Ctx) error {
	user, ok := requireUser(c)
	if !ok {
		return folderErrors.HandleUserContextError(c, "Invalid user context")
	}

	values := make(map[string][]string)
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		values[string(key)] = append(values[string(key)], string(value))
	})

	var query models.ListFoldersQuery
	if err := queryDecoder.Decode(&query, values); err != nil {
		return folderErrors.HandleValidationError(c, "Invalid query parameters", err.Error())
	}

	result, err := h.folderService.ListFolders(c.Context(), &query, user)
	if err != nil {
		return folderErrors.HandleServiceError(c, err)
	}

	return c.JSON(result)
}

// RenameFolder renames a folder
// PATCH /folders/:folderId/rename
func (h *FolderHandler) RenameFolder(c *fiber.Ctx) error {
	folderID, err := uuid.FromString(c.Params("folderId"))
	if err != nil {
		return folderErrors.HandleUUIDError(c, "folderId")
	}

	var req models.RenameFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return folderErrors.HandleValidationError(c, "Invalid request body", err.Error())
	}

	user, ok := requireUser(c)
	if !ok {
		return folderErrors.HandleUserContextError(c, "Invalid user context")
	}

	folder, err := h.folderService.RenameFolder(c.Context(), folderID, &req, user)
	if err != nil {
		return folderErrors.HandleServiceError(c, err)
	}

	return c.JSON(folder)
}

// MoveFolder reparents a folder
// PATCH /folders/:folderId/move
func (h *FolderHandler) MoveFolder(c *fiber.Ctx) error {
	folderID, err := uuid.FromString(c.Params("folderId"))
	if err != nil {
		return folderErrors.HandleUUIDError(c, "folderId")
	}

	var req models.MoveFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return folderErrors.HandleValidationError(c, "Invalid request body", err.Error())
	}

	user, ok := requireUser(c)
	if !ok {
		return folderErrors.HandleUserContextError(c, "Invalid user context")
	}

	folder, err := h.folderService.MoveFolder(c.Context(), folderID, &req, user)
	if err != nil {
		return folderErrors.HandleServiceError(c, err)
	}

	return c.JSON(folder)
}

// DeleteFolder removes an empty folder
// DELETE /folders/:folderId
func (h *FolderHandler) DeleteFolder(c *fiber.Ctx) error {
	folderID, err := uuid.FromString(c.Params("folderId"))
	if err != nil {
		return folderErrors.HandleUUIDError(c, "folderId")
	}

	user, ok := requireUser(c)
	if !ok {
		return folderErrors.HandleUserContextError(c, "Invalid user context")
	}

	if err := h.folderService.DeleteFolder(c.Context(), folderID, user); err != nil {
		return folderErrors.HandleServiceError(c, err)
	}

	return c.SendStatus(http.StatusNoContent)
}
