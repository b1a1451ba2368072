// Package ratelimit provides rate limiting middleware for the
// abuse-prone endpoints: share token probing, share password guessing
// and upload initialization.
package ratelimit

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/qolzam/telar-drive/internal/pkg/log"
)

// EndpointLimits defines rate limiting configuration for specific endpoints
type EndpointLimits struct {
	// Share page access: 60 per 15 minutes per IP
	ShareAccessMaxRequests    int
	ShareAccessWindowDuration time.Duration

	// Share password attempts: 10 per 15 minutes per token
	SharePasswordMaxRequests    int
	SharePasswordWindowDuration time.Duration

	// Upload initialization: 120 per hour per IP
	UploadInitMaxRequests    int
	UploadInitWindowDuration time.Duration
}

// DefaultEndpointLimits returns the default rate limits
func DefaultEndpointLimits() EndpointLimits {
	return EndpointLimits{
		ShareAccessMaxRequests:    60,
		ShareAccessWindowDuration: 15 * time.Minute,

		SharePasswordMaxRequests:    10,
		SharePasswordWindowDuration: 15 * time.Minute,

		UploadInitMaxRequests:    120,
		UploadInitWindowDuration: 1 * time.Hour,
	}
}

// EndpointType represents the endpoints subject to rate limiting
type EndpointType int

const (
	EndpointShareAccess EndpointType = iota
	EndpointSharePassword
	EndpointUploadInit
)

// Config holds the configuration for rate limiting middleware
type Config struct {
	// Endpoint type to determine which limits to apply
	EndpointType EndpointType

	// Custom limits (optional - uses defaults if not provided)
	Limits *EndpointLimits

	// Next defines a function to skip this middleware when returned true
	Next func(c *fiber.Ctx) bool

	// Custom key generator (optional - uses default IP-based if not provided)
	KeyGenerator func(c *fiber.Ctx) string

	// LimitReached defines the response when rate limit is exceeded
	LimitReached func(c *fiber.Ctx) error
}

// configDefault sets default configuration values
func configDefault(config Config) Config {
	if config.Limits == nil {
		limits := DefaultEndpointLimits()
		config.Limits = &limits
	}

	// Default key: rate limit by IP + endpoint path
	if config.KeyGenerator == nil {
		config.KeyGenerator = func(c *fiber.Ctx) string {
			return c.IP() + ":" + c.Path()
		}
	}

	if config.LimitReached == nil {
		config.LimitReached = func(c *fiber.Ctx) error {
			endpointName := getEndpointName(config.EndpointType)
			windowDuration := getWindowDuration(config.EndpointType, config.Limits)

			log.Warn("[RateLimit] Rate limit exceeded for %s from IP: %s", endpointName, c.IP())

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":      "Rate limit exceeded",
				"code":       "RATE_LIMIT_EXCEEDED",
				"message":    fmt.Sprintf("Too many %s attempts. Please try again later.", endpointName),
				"retryAfter": int(windowDuration.Seconds()),
			})
		}
	}

	return config
}

// getEndpointName returns human-readable endpoint name for logging
func getEndpointName(endpointType EndpointType) string {
	switch endpointType {
	case EndpointShareAccess:
		return "share access"
	case EndpointSharePassword:
		return "share password"
	case EndpointUploadInit:
		return "upload"
	default:
		return "unknown"
	}
}

// getMaxRequests returns the max requests for the endpoint type
func getMaxRequests(endpointType EndpointType, limits *EndpointLimits) int {
	switch endpointType {
	case EndpointShareAccess:
		return limits.ShareAccessMaxRequests
	case EndpointSharePassword:
		return limits.SharePasswordMaxRequests
	case EndpointUploadInit:
		return limits.UploadInitMaxRequests
	default:
		return 10
	}
}

// getWindowDuration returns the window duration for the endpoint type
func getWindowDuration(endpointType EndpointType, limits *EndpointLimits) time.Duration {
	switch endpointType {
	case EndpointShareAccess:
		return limits.ShareAccessWindowDuration
	case EndpointSharePassword:
		return limits.SharePasswordWindowDuration
	case EndpointUploadInit:
		return limits.UploadInitWindowDuration
	default:
		return 15 * time.Minute
	}
}

// New creates a new rate limiting middleware handler
func New(config Config) fiber.Handler {
	cfg := configDefault(config)

	maxRequests := getMaxRequests(cfg.EndpointType, cfg.Limits)
	windowDuration := getWindowDuration(cfg.EndpointType, cfg.Limits)

	limiterConfig := limiter.Config{
		Max:          maxRequests,
		Expiration:   windowDuration,
		KeyGenerator: cfg.KeyGenerator,
		LimitReached: cfg.LimitReached,
		Next:         cfg.Next,
	}

	return limiter.New(limiterConfig)
}

// NewShareAccessLimiter creates a rate limiter for the public share pages
func NewShareAccessLimiter(customLimits *EndpointLimits) fiber.Handler {
	return New(Config{
		EndpointType: EndpointShareAccess,
		Limits:       customLimits,
	})
}

// NewSharePasswordLimiter creates a rate limiter for share password
// attempts, keyed by the link token so one IP cannot be used to lock
// out a link and one link cannot be brute forced from many IPs.
func NewSharePasswordLimiter(customLimits *EndpointLimits) fiber.Handler {
	return New(Config{
		EndpointType: EndpointSharePassword,
		Limits:       customLimits,
		KeyGenerator: func(c *fiber.Ctx) string {
			token := c.Params("token")
			if token == "" {
				token = c.IP()
			}
			return fmt.Sprintf("share-password:%s", token)
		},
	})
}

// NewUploadInitLimiter creates a rate limiter for upload initialization
func NewUploadInitLimiter(customLimits *EndpointLimits) fiber.Handler {
	return New(Config{
		EndpointType: EndpointUploadInit,
		Limits:       customLimits,
	})
}
