package testutil

import (
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/qolzam/telar-drive/internal/types"
)

// SignTestJWT signs an HS256 token carrying the given user identity,
// valid for one hour.
func SignTestJWT(t *testing.T, secret string, userCtx types.UserContext) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":         userCtx.UserID.String(),
		"username":    userCtx.Username,
		"displayName": userCtx.DisplayName,
		"role":        userCtx.SystemRole,
		"exp":         time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

// CreateTestUserContext creates a test user context for testing purposes.
func CreateTestUserContext() types.UserContext {
	return types.UserContext{
		UserID:      uuid.Must(uuid.NewV4()),
		Username:    "test@example.com",
		DisplayName: "Test User",
		SystemRole:  types.UserRole,
	}
}

// CreateTestAdminContext creates an admin user context for testing purposes.
func CreateTestAdminContext() types.UserContext {
	return types.UserContext{
		UserID:      uuid.Must(uuid.NewV4()),
		Username:    "admin@example.com",
		DisplayName: "Test Admin",
		SystemRole:  types.AdminRole,
	}
}
