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

// Storage service specific errors
var (
	ErrFileNotFound       = errors.New("file not found")
	ErrFolderNotFound     = errors.New("folder not found")
	ErrFileNotPending     = errors.New("file is not in pending state")
	ErrFileNotUploaded    = errors.New("file is not uploaded")
	ErrOwnershipRequired  = errors.New("file ownership required")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidUserContext = errors.New("invalid user context")

	// Backend and system errors
	ErrProviderUnavailable = errors.New("storage backend unavailable")
	ErrStreamTimeout       = errors.New("content stream timed out")
	ErrDatabaseOperation   = errors.New("database operation failed")
)

// Error codes
const (
	CodeFileNotFound        = "FILE_NOT_FOUND"
	CodeFileNotPending      = "FILE_NOT_PENDING"
	CodeFileNotUploaded     = "FILE_NOT_UPLOADED"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeInvalidUUID         = "INVALID_UUID"
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeStreamTimeout       = "STREAM_TIMEOUT"
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
	case errors.Is(err, ErrFileNotFound), errors.Is(err, ErrFolderNotFound):
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Code:    CodeFileNotFound,
			Message: "Resource not found",
			Details: err.Error(),
		})
	case errors.Is(err, ErrFileNotPending):
		return c.Status(http.StatusConflict).JSON(ErrorResponse{
			Code:    CodeFileNotPending,
			Message: "File is not awaiting upload",
			Details: err.Error(),
		})
	case errors.Is(err, ErrFileNotUploaded):
		return c.Status(http.StatusConflict).JSON(ErrorResponse{
			Code:    CodeFileNotUploaded,
			Message: "File content is not available",
			Details: err.Error(),
		})
	case errors.Is(err, ErrOwnershipRequired), errors.Is(err, ErrPermissionDenied):
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
	case errors.Is(err, ErrProviderUnavailable):
		return c.Status(http.StatusServiceUnavailable).JSON(ErrorResponse{
			Code:    CodeProviderUnavailable,
			Message: "Storage backend unavailable",
			Details: err.Error(),
		})
	case errors.Is(err, ErrStreamTimeout):
		return c.Status(http.StatusGatewayTimeout).JSON(ErrorResponse{
			Code:    CodeStreamTimeout,
			Message: "Content stream timed out",
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
