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

// Folder service specific errors
var (
	ErrFolderNotFound     = errors.New("folder not found")
	ErrFolderConflict     = errors.New("a folder with this path already exists")
	ErrFolderNotEmpty     = errors.New("folder is not empty")
	ErrOwnershipRequired  = errors.New("folder ownership required")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidUserContext = errors.New("invalid user context")
	ErrDatabaseOperation  = errors.New("database operation failed")
)

// Error codes
const (
	CodeFolderNotFound    = "FOLDER_NOT_FOUND"
	CodeFolderConflict    = "FOLDER_CONFLICT"
	CodeFolderNotEmpty    = "FOLDER_NOT_EMPTY"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeInvalidUUID       = "INVALID_UUID"
	CodeDatabaseOperation = "DATABASE_OPERATION_FAILED"
	CodeInternalError     = "INTERNAL_ERROR"
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
	case errors.Is(err, ErrFolderNotFound):
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Code:    CodeFolderNotFound,
			Message: "Folder not found",
			Details: err.Error(),
		})
	case errors.Is(err, ErrFolderConflict):
		return c.Status(http.StatusConflict).JSON(ErrorResponse{
			Code:    CodeFolderConflict,
			Message: "A folder with this path already exists",
			Details: err.Error(),
		})
	case errors.Is(err, ErrFolderNotEmpty):
		return c.Status(http.StatusConflict).JSON(ErrorResponse{
			Code:    CodeFolderNotEmpty,
			Message: "Folder is not empty",
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
