// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	uuid "github.com/gofrs/uuid"

	"github.com/qolzam/telar-drive/internal/types"
	shareErrors "github.com/qolzam/telar-drive/sharelinks/errors"
	"github.com/qolzam/telar-drive/sharelinks/models"
	"github.com/qolzam/telar-drive/sharelinks/services"
)

// ShareLinkHandler handles the authenticated share link management
// endpoints.
type ShareLinkHandler struct {
	shareService services.ShareLinkService
}

// NewShareLinkHandler creates a new ShareLinkHandler with injected dependencies
func NewShareLinkHandler(shareService services.ShareLinkService) *ShareLinkHandler {
	return &ShareLinkHandler{
		shareService: shareService,
	}
}

func requireUser(c *fiber.Ctx) (types.UserContext, bool) {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	return user, ok
}

// CreateShareLink mints a share link for a file or folder
// POST /share-links
func (h *ShareLinkHandler) CreateShareLink(c *fiber.Ctx) error {
	var req models.CreateShareLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return shareErrors.HandleValidationError(c, "Invalid request body", err.Error())
	}

	user, ok := requireUser(c)
	if !ok {
		return shareErrors.HandleUserContextError(c, "Invalid user context")
	}

	link, err := h.shareService.Create(c.Context(), &req, user)
	if err != nil {
		return shareErrors.HandleServiceError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(link)
}

// ListShareLinks lists the share links pointing at one file or folder
// GET /share-links?fileId=... | ?folderId=...
func (h *ShareLinkHandler) ListShareLinks(c *fiber.Ctx) error {
	user, ok := requireUser(c)
	if !ok {
		return shareErrors.HandleUserContextError(c, "Invalid user context")
	}

	fileParam := c.Query("fileId")
	folderParam := c.Query("folderId")
	if (fileParam == "") == (folderParam == "") {
		return shareErrors.HandleValidationError(c, "Exactly one of fileId and folderId is required")
	}

	if fileParam != "" {
		fileID, err := uuid.FromString(fileParam)
		if err != nil {
			return shareErrors.HandleUUIDError(c, "fileId")
		}
		links, err := h.shareService.ListForFile(c.Context(), fileID, user)
		if err != nil {
			return shareErrors.HandleServiceError(c, err)
		}
		return c.JSON(fiber.Map{"shareLinks": links})
	}

	folderID, err := uuid.FromString(folderParam)
	if err != nil {
		return shareErrors.HandleUUIDError(c, "folderId")
	}
	links, err := h.shareService.ListForFolder(c.Context(), folderID, user)
	if err != nil {
		return shareErrors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"shareLinks": links})
}

// DeleteShareLink revokes a share link
// DELETE /share-links/:linkId
func (h *ShareLinkHandler) DeleteShareLink(c *fiber.Ctx) error {
	linkID, err := uuid.FromString(c.Params("linkId"))
	if err != nil {
		return shareErrors.HandleUUIDError(c, "linkId")
	}

	user, ok := requireUser(c)
	if !ok {
		return shareErrors.HandleUserContextError(c, "Invalid user context")
	}

	if err := h.shareService.Delete(c.Context(), linkID, user); err != nil {
		return shareErrors.HandleServiceError(c, err)
	}

	return c.SendStatus(http.StatusNoContent)
}
