// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full service configuration, loaded once at startup and
// passed down explicitly. No package reads the environment on its own.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	JWT      JWTConfig      `json:"jwt"`
	Storage  StorageConfig  `json:"storage"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	BaseRoute string `json:"baseRoute"`
	// PublicBaseURL is the externally reachable base of this service,
	// used to build proxy, share and local signed URLs.
	PublicBaseURL string `json:"publicBaseUrl"`
	WebDomain     string `json:"webDomain"`
	Debug         bool   `json:"debug"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Postgres PostgreSQLConfig `json:"postgres"`
}

// PostgreSQLConfig holds PostgreSQL-specific configuration
type PostgreSQLConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	Database        string        `json:"database"`
	SSLMode         string        `json:"sslMode"`
	Schema          string        `json:"schema"`
	MaxOpenConns    int           `json:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
	ConnectTimeout  int           `json:"connectTimeout"`
}

// JWTConfig holds the signing secret for caller identity tokens and the
// short-lived file view tokens minted in masked mode.
type JWTConfig struct {
	Secret string `json:"secret"`
}

// StorageConfig selects the active blob backend and carries every
// backend's credentials plus the lifecycle/proxy tunables.
type StorageConfig struct {
	// Provider is one of "local", "s3", "cloudinary", "imagekit".
	Provider string `json:"provider"`

	SignedURLTTL  time.Duration `json:"signedUrlTtl"`
	PendingTTL    time.Duration `json:"pendingTtl"`
	ReapInterval  time.Duration `json:"reapInterval"`
	StreamTimeout time.Duration `json:"streamTimeout"`

	// ProxyMode masks every resolved file URL behind the /content
	// proxy endpoint. When false public files get the backend public
	// URL and private files a short-lived signed URL.
	ProxyMode bool `json:"proxyMode"`
	// ProxyPublicSkipsAuth relaxes the proxy to serve public files
	// without a caller identity. Off by default.
	ProxyPublicSkipsAuth bool `json:"proxyPublicSkipsAuth"`

	Local      LocalStorageConfig `json:"local"`
	S3         S3Config           `json:"s3"`
	Cloudinary CloudinaryConfig   `json:"cloudinary"`
	ImageKit   ImageKitConfig     `json:"imagekit"`
	TokenStore TokenStoreConfig   `json:"tokenStore"`
}

// LocalStorageConfig holds filesystem backend configuration
type LocalStorageConfig struct {
	Path string `json:"path"`
	// URL is the public base under which stored objects are served.
	URL string `json:"url"`
}

// S3Config holds S3/R2/MinIO-compatible backend configuration
type S3Config struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	Region          string `json:"region"`
	Bucket          string `json:"bucket"`
	Endpoint        string `json:"endpoint"`
	ForcePathStyle  bool   `json:"forcePathStyle"`
	PublicURL       string `json:"publicUrl"`
}

// CloudinaryConfig holds Cloudinary backend configuration
type CloudinaryConfig struct {
	CloudName string `json:"cloudName"`
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
}

// ImageKitConfig holds ImageKit backend configuration
type ImageKitConfig struct {
	PublicKey   string `json:"publicKey"`
	PrivateKey  string `json:"privateKey"`
	URLEndpoint string `json:"urlEndpoint"`
}

// TokenStoreConfig selects where the local backend keeps its one-time
// upload/download tokens. "memory" is single-instance only; "redis"
// is required when more than one instance serves local uploads.
type TokenStoreConfig struct {
	Backend       string        `json:"backend"`
	SweepInterval time.Duration `json:"sweepInterval"`
	RedisAddress  string        `json:"redisAddress"`
	RedisPassword string        `json:"redisPassword"`
	RedisDB       int           `json:"redisDb"`
}

// LoadFromEnv loads configuration from the environment.
// Precedence: explicit environment variables, then .env values, then
// hardcoded defaults.
func LoadFromEnv() (*Config, error) {
	// godotenv only fills variables that are not already set, which
	// gives the precedence above for free.
	if err := godotenv.Load(); err != nil {
		fmt.Println("INFO: .env file not found, using environment variables and defaults.")
	}

	return load(func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	})
}

// LoadFromMap loads configuration from an in-memory map. This is the
// primary helper for testing configuration logic in isolation without
// manipulating global environment variables.
func LoadFromMap(envMap map[string]string) (*Config, error) {
	return load(func(key, def string) string {
		if v, ok := envMap[key]; ok {
			return v
		}
		return def
	})
}

func load(get func(key, def string) string) (*Config, error) {
	getInt := func(key string, def int) int {
		if v, err := strconv.Atoi(get(key, "")); err == nil {
			return v
		}
		return def
	}
	getBool := func(key string, def bool) bool {
		if v, err := strconv.ParseBool(get(key, "")); err == nil {
			return v
		}
		return def
	}
	getDuration := func(key string, def time.Duration) time.Duration {
		if v, err := time.ParseDuration(get(key, "")); err == nil {
			return v
		}
		return def
	}

	config := &Config{
		Server: ServerConfig{
			Host:          get("HOST", "localhost"),
			Port:          getInt("SERVER_PORT", 4201),
			BaseRoute:     get("BASE_ROUTE", "/api"),
			PublicBaseURL: get("STORAGE_PUBLIC_URL", "http://localhost:4201"),
			WebDomain:     get("WEB_DOMAIN", "http://localhost:3000"),
			Debug:         getBool("DEBUG", false),
		},
		Database: DatabaseConfig{
			Postgres: PostgreSQLConfig{
				Host:            get("POSTGRES_HOST", "localhost"),
				Port:            getInt("POSTGRES_PORT", 5432),
				Username:        get("POSTGRES_USERNAME", ""),
				Password:        get("POSTGRES_PASSWORD", ""),
				Database:        get("POSTGRES_DATABASE", "telar_drive"),
				SSLMode:         get("POSTGRES_SSL_MODE", "disable"),
				Schema:          get("POSTGRES_SCHEMA", ""),
				MaxOpenConns:    getInt("POSTGRES_MAX_OPEN_CONNS", 25),
				MaxIdleConns:    getInt("POSTGRES_MAX_IDLE_CONNS", 25),
				ConnMaxLifetime: time.Duration(getInt("POSTGRES_CONN_MAX_LIFETIME", 300)) * time.Second,
				ConnectTimeout:  getInt("POSTGRES_CONNECT_TIMEOUT", 10),
			},
		},
		JWT: JWTConfig{
			Secret: get("JWT_SECRET", ""),
		},
		Storage: StorageConfig{
			Provider:             get("STORAGE_TYPE", "local"),
			SignedURLTTL:         getDuration("SIGNED_URL_TTL", time.Hour),
			PendingTTL:           getDuration("PENDING_FILE_TTL", 24*time.Hour),
			ReapInterval:         getDuration("PENDING_REAP_INTERVAL", time.Hour),
			StreamTimeout:        getDuration("STREAM_TIMEOUT", 30*time.Second),
			ProxyMode:            getBool("FILE_PROXY_MODE", false),
			ProxyPublicSkipsAuth: getBool("PROXY_PUBLIC_SKIPS_AUTH", false),
			Local: LocalStorageConfig{
				Path: get("LOCAL_STORAGE_PATH", "./uploads"),
				URL:  get("LOCAL_STORAGE_URL", "http://localhost:4201/uploads"),
			},
			S3: S3Config{
				AccessKeyID:     get("AWS_ACCESS_KEY_ID", ""),
				SecretAccessKey: get("AWS_SECRET_ACCESS_KEY", ""),
				Region:          get("AWS_REGION", "us-east-1"),
				Bucket:          get("AWS_S3_BUCKET", ""),
				Endpoint:        get("AWS_S3_ENDPOINT", ""),
				ForcePathStyle:  getBool("AWS_S3_FORCE_PATH_STYLE", false),
				PublicURL:       get("AWS_S3_PUBLIC_URL", ""),
			},
			Cloudinary: CloudinaryConfig{
				CloudName: get("CLOUDINARY_CLOUD_NAME", ""),
				APIKey:    get("CLOUDINARY_API_KEY", ""),
				APISecret: get("CLOUDINARY_API_SECRET", ""),
			},
			ImageKit: ImageKitConfig{
				PublicKey:   get("IMAGEKIT_PUBLIC_KEY", ""),
				PrivateKey:  get("IMAGEKIT_PRIVATE_KEY", ""),
				URLEndpoint: get("IMAGEKIT_URL_ENDPOINT", ""),
			},
			TokenStore: TokenStoreConfig{
				Backend:       get("TOKEN_STORE_BACKEND", "memory"),
				SweepInterval: getDuration("TOKEN_STORE_SWEEP_INTERVAL", 5*time.Minute),
				RedisAddress:  get("REDIS_ADDRESS", "localhost:6379"),
				RedisPassword: get("REDIS_PASSWORD", ""),
				RedisDB:       getInt("REDIS_DB", 0),
			},
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks cross-field consistency of the loaded configuration.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("required configuration JWT_SECRET is not set")
	}

	switch c.Storage.Provider {
	case "local":
		if c.Storage.Local.Path == "" {
			return fmt.Errorf("LOCAL_STORAGE_PATH is required for the local provider")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("AWS_S3_BUCKET is required for the s3 provider")
		}
		if c.Storage.S3.AccessKeyID == "" || c.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are required for the s3 provider")
		}
	case "cloudinary":
		if c.Storage.Cloudinary.CloudName == "" || c.Storage.Cloudinary.APIKey == "" || c.Storage.Cloudinary.APISecret == "" {
			return fmt.Errorf("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required for the cloudinary provider")
		}
	case "imagekit":
		if c.Storage.ImageKit.PublicKey == "" || c.Storage.ImageKit.PrivateKey == "" || c.Storage.ImageKit.URLEndpoint == "" {
			return fmt.Errorf("IMAGEKIT_PUBLIC_KEY, IMAGEKIT_PRIVATE_KEY and IMAGEKIT_URL_ENDPOINT are required for the imagekit provider")
		}
	default:
		return fmt.Errorf("unknown STORAGE_TYPE %q", c.Storage.Provider)
	}

	switch c.Storage.TokenStore.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown TOKEN_STORE_BACKEND %q", c.Storage.TokenStore.Backend)
	}

	return nil
}
