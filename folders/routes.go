// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package folders

import (
	"github.com/gofiber/fiber/v2"

	"github.com/qolzam/telar-drive/folders/handlers"
	"github.com/qolzam/telar-drive/internal/middleware/authjwt"
	constraints "github.com/qolzam/telar-drive/internal/middleware/constraints"
	platformconfig "github.com/qolzam/telar-drive/internal/platform/config"
)

// FolderHandlers holds all the handlers this router needs.
type FolderHandlers struct {
	FolderHandler *handlers.FolderHandler
}

// RegisterRoutes is the single entry point for setting up folder routes.
func RegisterRoutes(app *fiber.App, h *FolderHandlers, cfg *platformconfig.Config) {
	if h == nil || h.FolderHandler == nil {
		panic("FolderHandlers is required")
	}

	authRequired := authjwt.New(authjwt.Config{Secret: cfg.JWT.Secret})

	folderRoutes := app.Group(cfg.Server.BaseRoute).Group("/folders", authRequired)

	folderRoutes.Post("/", h.FolderHandler.CreateFolder)
	folderRoutes.Get("/", h.FolderHandler.ListFolders)

	folderRoutes.Get("/:folderId",
		constraints.RequireUUID("folderId"),
		h.FolderHandler.GetFolder,
	)
	folderRoutes.Patch("/:folderId/rename",
		constraints.RequireUUID("folderId"),
		h.FolderHandler.RenameFolder,
	)
	folderRoutes.Patch("/:folderId/move",
		constraints.RequireUUID("folderId"),
		h.FolderHandler.MoveFolder,
	)
	folderRoutes.Delete("/:folderId",
		constraints.RequireUUID("folderId"),
		h.FolderHandler.DeleteFolder,
	)
}
