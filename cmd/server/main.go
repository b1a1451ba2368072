package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/qolzam/telar-drive/folders"
	folderHandlers "github.com/qolzam/telar-drive/folders/handlers"
	folderRepository "github.com/qolzam/telar-drive/folders/repository"
	folderServices "github.com/qolzam/telar-drive/folders/services"
	"github.com/qolzam/telar-drive/internal/database/postgres"
	"github.com/qolzam/telar-drive/internal/middleware/requestid"
	pkglog "github.com/qolzam/telar-drive/internal/pkg/log"
	platformconfig "github.com/qolzam/telar-drive/internal/platform/config"
	"github.com/qolzam/telar-drive/sharelinks"
	shareHandlers "github.com/qolzam/telar-drive/sharelinks/handlers"
	shareRepository "github.com/qolzam/telar-drive/sharelinks/repository"
	shareServices "github.com/qolzam/telar-drive/sharelinks/services"
	"github.com/qolzam/telar-drive/storage"
	storageHandlers "github.com/qolzam/telar-drive/storage/handlers"
	"github.com/qolzam/telar-drive/storage/provider"
	"github.com/qolzam/telar-drive/storage/provider/tokenstore"
	storageRepository "github.com/qolzam/telar-drive/storage/repository"
	storageServices "github.com/qolzam/telar-drive/storage/services"
)

func main() {
	cfg, err := platformconfig.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load platform config: %v", err)
	}

	ctx := context.Background()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database.Postgres)
	if err != nil {
		log.Fatalf("Failed to create postgres client: %v", err)
	}

	tokens, err := newTokenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create token store: %v", err)
	}

	blob, err := provider.New(cfg, tokens)
	if err != nil {
		log.Fatalf("Failed to create storage provider: %v", err)
	}
	pkglog.Info("storage backend: %s", blob.Name())

	schema := cfg.Database.Postgres.Schema
	var fileRepo storageRepository.Repository
	var folderRepo folderRepository.Repository
	var shareRepo shareRepository.Repository
	if schema != "" {
		fileRepo = storageRepository.NewPostgresRepositoryWithSchema(pgClient, schema)
		folderRepo = folderRepository.NewPostgresRepositoryWithSchema(pgClient, schema)
		shareRepo = shareRepository.NewPostgresRepositoryWithSchema(pgClient, schema)
	} else {
		fileRepo = storageRepository.NewPostgresRepository(pgClient)
		folderRepo = folderRepository.NewPostgresRepository(pgClient)
		shareRepo = shareRepository.NewPostgresRepository(pgClient)
	}

	// The file repository doubles as the folder module's file counter,
	// and the folders module hands the storage service its lookup.
	storageService := storageServices.NewStorageService(fileRepo, blob, folderServices.NewLookup(folderRepo), cfg)
	folderService := folderServices.NewFolderService(folderRepo, fileRepo)
	shareService := shareServices.NewShareLinkService(shareRepo, fileRepo, folderRepo, blob, cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			// If the handler already wrote a response, pass it through.
			if len(c.Response().Body()) > 0 {
				return nil
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.WebDomain,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, PATCH, OPTIONS",
	}))

	storageRoutes := &storage.StorageHandlers{
		StorageHandler: storageHandlers.NewStorageHandler(storageService),
		ContentHandler: storageHandlers.NewContentHandler(storageService, cfg),
	}
	if local, ok := blob.(*provider.LocalProvider); ok {
		storageRoutes.LocalHandler = storageHandlers.NewLocalHandler(local)
	}
	storage.RegisterRoutes(app, storageRoutes, cfg)

	folders.RegisterRoutes(app, &folders.FolderHandlers{
		FolderHandler: folderHandlers.NewFolderHandler(folderService),
	}, cfg)

	sharelinks.RegisterRoutes(app, &sharelinks.ShareLinkHandlers{
		ShareLinkHandler:   shareHandlers.NewShareLinkHandler(shareService),
		PublicShareHandler: shareHandlers.NewPublicShareHandler(shareService),
	}, cfg)

	reapCtx, stopReapers := context.WithCancel(context.Background())
	go reapPendingUploads(reapCtx, cfg.Storage.ReapInterval, storageService)
	go cleanupExpiredShares(reapCtx, cfg.Storage.ReapInterval, shareService)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		pkglog.Info("shutdown signal received")
		if err := app.Shutdown(); err != nil {
			pkglog.Error("server shutdown: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	pkglog.Info("Telar Drive API listening on %s%s", addr, cfg.Server.BaseRoute)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}

	stopReapers()
	if err := tokens.Close(); err != nil {
		pkglog.Warn("token store close: %v", err)
	}
	if err := pgClient.Close(); err != nil {
		pkglog.Warn("postgres close: %v", err)
	}
	pkglog.Info("bye")
}

func newTokenStore(ctx context.Context, cfg *platformconfig.Config) (tokenstore.Store, error) {
	switch cfg.Storage.TokenStore.Backend {
	case "redis":
		return tokenstore.NewRedisStore(ctx,
			cfg.Storage.TokenStore.RedisAddress,
			cfg.Storage.TokenStore.RedisPassword,
			cfg.Storage.TokenStore.RedisDB,
		)
	default:
		return tokenstore.NewMemoryStore(cfg.Storage.TokenStore.SweepInterval), nil
	}
}

// reapPendingUploads periodically removes PENDING uploads whose window
// has passed, together with any object bytes that landed for them.
func reapPendingUploads(ctx context.Context, interval time.Duration, svc storageServices.StorageService) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reaped, err := svc.ReapExpired(ctx)
			if err != nil {
				pkglog.Error("pending upload reaper: %v", err)
				continue
			}
			if reaped > 0 {
				pkglog.Info("reaped %d expired pending uploads", reaped)
			}
		}
	}
}

func cleanupExpiredShares(ctx context.Context, interval time.Duration, svc shareServices.ShareLinkService) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := svc.CleanupExpired(ctx)
			if err != nil {
				pkglog.Error("share link cleanup: %v", err)
				continue
			}
			if removed > 0 {
				pkglog.Info("removed %d expired share links", removed)
			}
		}
	}
}
