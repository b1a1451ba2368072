// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package errors

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Share link service specific errors. ErrShareNotFound deliberately
// covers missing, expired and exhausted links alike, so a caller
// probing tokens learns nothing about which it was.
var (
	ErrShareNotFound       = errors.New("share link not found")
	ErrPasswordRequired    = errors.New("share link password required")
	ErrPasswordInvalid     = errors.New("share link password invalid")
	ErrWeakPassword        = errors.New("share link password is too weak")
	ErrTargetNotAvailable  = errors.New("share target is not available")
	ErrOwnershipRequired   = errors.New("share link ownership required")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUpstreamUnavailable = errors.New("storage backend unavailable")
	ErrInvalidUserContext  = errors.New("invalid user context")
	ErrDatabaseOperation   = errors.New("database operation failed")
)

// Error codes
const (
	CodeShareNotFound       = "SHARE_NOT_FOUND"
	CodePasswordRequired    = "SHARE_PASSWORD_REQUIRED"
	CodePasswordInvalid     = "SHARE_PASSWORD_INVALID"
	CodeWeakPassword        = "SHARE_PASSWORD_TOO_WEAK"
	CodeTargetNotAvailable  = "SHARE_TARGET_NOT_AVAILABLE"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeInvalidUUID         = "INVALID_UUID"
	CodeUpstreamUnavailable = "PROVIDER_UNAVAILABLE"
	CodeDatabaseOperation   = "DATABASE_OPERATION_FAILED"
	CodeInternalError       = "INTERNAL_ERROR"
)

// ErrorResponse represents the standardized error response format
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// HandleServiceError handles service errors and returns appropriate HTTP responses
func HandleServiceError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrShareNotFound):
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Code:    CodeShareNotFound,
			Message: "Share link not found",
		})
	case errors.Is(err, ErrPasswordRequired):
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Code:    CodePasswordRequired,
			Message: "This share link is password protected",
		})
	case errors.Is(err, ErrPasswordInvalid):
		return c.Status(http.StatusForbidden).JSON(ErrorResponse{
			Code:    CodePasswordInvalid,
			Message: "Invalid share link password",
		})
	case errors.Is(err, ErrWeakPassword):
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Code:    CodeWeakPassword,
			Message: "The share link password is too weak",
			Details: err.Error(),
		})
	case errors.Is(err, ErrTargetNotAvailable):
		return c.Status(http.StatusConflict).JSON(ErrorResponse{
			Code:    CodeTargetNotAvailable,
			Message: "The share target is not available",
			Details: err.Error(),
		})
	case errors.Is(err, ErrOwnershipRequired):
		return c.Status(http.StatusForbidden).JSON(ErrorResponse{
			Code:    CodePermissionDenied,
			Message: "Permission denied",
			Details: err.Error(),
		})
	case errors.Is(err, ErrInvalidRequest):
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Code:    CodeInvalidRequest,
			Message: "Invalid request",
			Details: err.Error(),
		})
	case errors.Is(err, ErrInvalidUserContext):
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Code:    "UNAUTHORIZED",
			Message: "Invalid user context",
			Details: err.Error(),
		})
	case errors.Is(err, ErrUpstreamUnavailable):
		return c.Status(http.StatusServiceUnavailable).JSON(ErrorResponse{
			Code:    CodeUpstreamUnavailable,
			Message: "Storage backend unavailable",
			Details: err.Error(),
		})
	case errors.Is(err, ErrDatabaseOperation):
		return c.Status(http.StatusServiceUnavailable).JSON(ErrorResponse{
			Code:    CodeDatabaseOperation,
			Message: "Database operation failed",
			Details: err.Error(),
		})
	default:
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Code:    CodeInternalError,
			Message: "An unexpected error occurred",
			Details: err.Error(),
		})
	}
}

// HandleValidationError handles validation errors with 400 Bad Request
func HandleValidationError(c *fiber.Ctx, message string, details ...string) error {
	response := ErrorResponse{
		Code:    CodeValidationFailed,
		Message: message,
	}
	if len(details) > 0 {
		response.Details = details[0]
	}
	return c.Status(http.StatusBadRequest).JSON(response)
}

// HandleUserContextError returns an error for invalid user context
func HandleUserContextError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
		Code:    "UNAUTHORIZED",
		Message: message,
	})
}

// HandleUUIDError handles UUID parsing errors with 400 Bad Request
func HandleUUIDError(c *fiber.Ctx, fieldName string) error {
	return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
		Code:    CodeInvalidUUID,
		Message: "Invalid " + fieldName + " format",
	})
}
