// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package sharelinks

import (
	"github.com/gofiber/fiber/v2"

	"github.com/qolzam/telar-drive/internal/middleware/authjwt"
	constraints "github.com/qolzam/telar-drive/internal/middleware/constraints"
	"github.com/qolzam/telar-drive/internal/middleware/ratelimit"
	platformconfig "github.com/qolzam/telar-drive/internal/platform/config"
	"github.com/qolzam/telar-drive/sharelinks/handlers"
)

// ShareLinkHandlers holds all the handlers this router needs.
type ShareLinkHandlers struct {
	ShareLinkHandler   *handlers.ShareLinkHandler
	PublicShareHandler *handlers.PublicShareHandler
}

// RegisterRoutes is the single entry point for setting up share routes.
// The management API requires authentication, the share pages are open
// by design and gated by the link token itself.
func RegisterRoutes(app *fiber.App, h *ShareLinkHandlers, cfg *platformconfig.Config) {
	if h == nil || h.ShareLinkHandler == nil || h.PublicShareHandler == nil {
		panic("ShareLinkHandlers is required")
	}

	authRequired := authjwt.New(authjwt.Config{Secret: cfg.JWT.Secret})

	base := app.Group(cfg.Server.BaseRoute)

	ownerRoutes := base.Group("/share-links", authRequired)
	ownerRoutes.Post("/", h.ShareLinkHandler.CreateShareLink)
	ownerRoutes.Get("/", h.ShareLinkHandler.ListShareLinks)
	ownerRoutes.Delete("/:linkId",
		constraints.RequireUUID("linkId"),
		h.ShareLinkHandler.DeleteShareLink,
	)

	// Token probing and password guessing are the two abuse vectors on
	// the public surface, each gets its own limiter.
	accessLimiter := ratelimit.NewShareAccessLimiter(nil)
	passwordLimiter := ratelimit.NewSharePasswordLimiter(nil)

	publicRoutes := base.Group("/share")
	publicRoutes.Get("/:token/download", accessLimiter, h.PublicShareHandler.DownloadSharedFile)
	// Protected downloads POST the password in the form body so it
	// stays out of URLs, and they count against the password limiter.
	publicRoutes.Post("/:token/download", passwordLimiter, h.PublicShareHandler.DownloadSharedFile)
	publicRoutes.Get("/:token", accessLimiter, h.PublicShareHandler.ViewShare)
	publicRoutes.Post("/:token", passwordLimiter, h.PublicShareHandler.SubmitPassword)
}
