// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"fmt"
	"strings"

	platformconfig "github.com/qolzam/telar-drive/internal/platform/config"
	"github.com/qolzam/telar-drive/storage/provider/tokenstore"
)

// New selects and constructs the configured blob backend. The token
// store is only used by the local backend; other backends ignore it.
func New(cfg *platformconfig.Config, tokens tokenstore.Store) (BlobProvider, error) {
	switch cfg.Storage.Provider {
	case "local":
		apiBaseURL := strings.TrimSuffix(cfg.Server.PublicBaseURL, "/") + cfg.Server.BaseRoute
		return NewLocalProvider(cfg.Storage.Local.Path, cfg.Storage.Local.URL, apiBaseURL, tokens)
	case "s3":
		return NewS3Provider(&cfg.Storage.S3)
	case "cloudinary":
		return NewCloudinaryProvider(&cfg.Storage.Cloudinary)
	case "imagekit":
		return NewImageKitProvider(&cfg.Storage.ImageKit)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}
