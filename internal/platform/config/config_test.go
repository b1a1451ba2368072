// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestLoadFromMap tests configuration loading from an in-memory map.
// This test is 100% parallel-safe and has no side effects.
func TestLoadFromMap(t *testing.T) {
	t.Parallel()

	t.Run("Loads all provided values correctly", func(t *testing.T) {
		t.Parallel()

		testEnv := map[string]string{
			"JWT_SECRET":            "test-secret",
			"STORAGE_TYPE":          "s3",
			"AWS_ACCESS_KEY_ID":     "ak",
			"AWS_SECRET_ACCESS_KEY": "sk",
			"AWS_S3_BUCKET":         "media",
			"AWS_S3_ENDPOINT":       "https://minio.local:9000",
			"AWS_S3_FORCE_PATH_STYLE": "true",
			"POSTGRES_HOST":         "test-host",
			"POSTGRES_PORT":         "5433",
			"POSTGRES_DATABASE":     "test-db",
			"SERVER_PORT":           "9090",
			"SIGNED_URL_TTL":        "30m",
			"PENDING_FILE_TTL":      "12h",
			"STREAM_TIMEOUT":        "45s",
			"FILE_PROXY_MODE":       "true",
		}

		cfg, err := LoadFromMap(testEnv)
		require.NoError(t, err)

		require.Equal(t, "test-secret", cfg.JWT.Secret)
		require.Equal(t, "s3", cfg.Storage.Provider)
		require.Equal(t, "media", cfg.Storage.S3.Bucket)
		require.Equal(t, "https://minio.local:9000", cfg.Storage.S3.Endpoint)
		require.True(t, cfg.Storage.S3.ForcePathStyle)
		require.Equal(t, "test-host", cfg.Database.Postgres.Host)
		require.Equal(t, 5433, cfg.Database.Postgres.Port)
		require.Equal(t, "test-db", cfg.Database.Postgres.Database)
		require.Equal(t, 9090, cfg.Server.Port)
		require.Equal(t, 30*time.Minute, cfg.Storage.SignedURLTTL)
		require.Equal(t, 12*time.Hour, cfg.Storage.PendingTTL)
		require.Equal(t, 45*time.Second, cfg.Storage.StreamTimeout)
		require.True(t, cfg.Storage.ProxyMode)
	})

	t.Run("Applies defaults when values are missing", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadFromMap(map[string]string{
			"JWT_SECRET": "test-secret",
		})
		require.NoError(t, err)

		require.Equal(t, "local", cfg.Storage.Provider)
		require.Equal(t, "./uploads", cfg.Storage.Local.Path)
		require.Equal(t, time.Hour, cfg.Storage.SignedURLTTL)
		require.Equal(t, 24*time.Hour, cfg.Storage.PendingTTL)
		require.False(t, cfg.Storage.ProxyMode)
		require.False(t, cfg.Storage.ProxyPublicSkipsAuth)
		require.Equal(t, "memory", cfg.Storage.TokenStore.Backend)
		require.Equal(t, 4201, cfg.Server.Port)
	})

	t.Run("Fails without JWT secret", func(t *testing.T) {
		t.Parallel()

		_, err := LoadFromMap(map[string]string{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "JWT_SECRET")
	})

	t.Run("Fails on incomplete provider credentials", func(t *testing.T) {
		t.Parallel()

		_, err := LoadFromMap(map[string]string{
			"JWT_SECRET":   "test-secret",
			"STORAGE_TYPE": "cloudinary",
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "CLOUDINARY")
	})

	t.Run("Fails on unknown provider", func(t *testing.T) {
		t.Parallel()

		_, err := LoadFromMap(map[string]string{
			"JWT_SECRET":   "test-secret",
			"STORAGE_TYPE": "gcs",
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "STORAGE_TYPE")
	})
}
