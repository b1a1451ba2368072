// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package storage

import (
	"github.com/gofiber/fiber/v2"

	"github.com/qolzam/telar-drive/internal/middleware/authjwt"
	constraints "github.com/qolzam/telar-drive/internal/middleware/constraints"
	"github.com/qolzam/telar-drive/internal/middleware/ratelimit"
	platformconfig "github.com/qolzam/telar-drive/internal/platform/config"
	"github.com/qolzam/telar-drive/storage/handlers"
)

// StorageHandlers holds all the handlers this router needs.
type StorageHandlers struct {
	StorageHandler *handlers.StorageHandler
	ContentHandler *handlers.ContentHandler
	// LocalHandler is nil unless the filesystem backend is active.
	LocalHandler *handlers.LocalHandler
}

// RegisterRoutes is the single entry point for setting up storage routes.
func RegisterRoutes(app *fiber.App, h *StorageHandlers, cfg *platformconfig.Config) {
	if h == nil || h.StorageHandler == nil || h.ContentHandler == nil {
		panic("StorageHandlers is required")
	}

	authRequired := authjwt.New(authjwt.Config{Secret: cfg.JWT.Secret})
	// The content proxy authenticates opportunistically: a view token in
	// the query string is checked by the handler itself.
	authOptional := authjwt.Optional(authjwt.Config{Secret: cfg.JWT.Secret})

	storageRoutes := app.Group(cfg.Server.BaseRoute).Group("/storage")

	// Local backend endpoints are gated by their own single-purpose
	// tokens, not by caller identity.
	if h.LocalHandler != nil {
		storageRoutes.Put("/local/upload", h.LocalHandler.Upload)
		storageRoutes.Get("/local/download", h.LocalHandler.Download)
	}

	storageRoutes.Get("/files/:fileId/content",
		constraints.RequireUUID("fileId"),
		authOptional,
		h.ContentHandler.ServeContent,
	)

	userGroup := storageRoutes.Group("", authRequired)

	userGroup.Post("/upload/init",
		ratelimit.NewUploadInitLimiter(nil),
		h.StorageHandler.InitializeUpload,
	)
	userGroup.Post("/upload/confirm", h.StorageHandler.ConfirmUpload)
	userGroup.Post("/upload/cancel", h.StorageHandler.CancelUpload)

	userGroup.Get("/files", h.StorageHandler.ListFiles)
	userGroup.Delete("/files/batch", h.StorageHandler.DeleteFiles)

	userGroup.Get("/files/:fileId",
		constraints.RequireUUID("fileId"),
		h.StorageHandler.GetFile,
	)
	userGroup.Get("/files/:fileId/url",
		constraints.RequireUUID("fileId"),
		h.StorageHandler.GetFileURL,
	)
	userGroup.Patch("/files/:fileId",
		constraints.RequireUUID("fileId"),
		h.StorageHandler.UpdateFile,
	)
	userGroup.Patch("/files/:fileId/toggle-public",
		constraints.RequireUUID("fileId"),
		h.StorageHandler.TogglePublic,
	)
	userGroup.Delete("/files/:fileId",
		constraints.RequireUUID("fileId"),
		h.StorageHandler.DeleteFile,
	)
}
