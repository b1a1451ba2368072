package authjwt

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/qolzam/telar-drive/internal/types"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newTestApp(handler fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/protected", handler, func(c *fiber.Ctx) error {
		user, ok := c.Locals(types.UserCtxName).(types.UserContext)
		if !ok {
			return c.SendString("anonymous")
		}
		return c.SendString(user.UserID.String())
	})
	return app
}

func TestNew(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())

	t.Run("Accepts valid bearer token", func(t *testing.T) {
		app := newTestApp(New(Config{Secret: testSecret}))

		token := signToken(t, testSecret, jwt.MapClaims{
			"uid":  userID.String(),
			"role": types.UserRole,
			"exp":  time.Now().Add(time.Hour).Unix(),
		})

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set(types.HeaderAuthorization, types.BearerPrefix+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("Rejects missing token", func(t *testing.T) {
		app := newTestApp(New(Config{Secret: testSecret}))

		req := httptest.NewRequest("GET", "/protected", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Rejects token signed with wrong secret", func(t *testing.T) {
		app := newTestApp(New(Config{Secret: testSecret}))

		token := signToken(t, "other-secret", jwt.MapClaims{
			"uid": userID.String(),
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set(types.HeaderAuthorization, types.BearerPrefix+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Rejects expired token", func(t *testing.T) {
		app := newTestApp(New(Config{Secret: testSecret}))

		token := signToken(t, testSecret, jwt.MapClaims{
			"uid": userID.String(),
			"exp": time.Now().Add(-time.Hour).Unix(),
		})

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set(types.HeaderAuthorization, types.BearerPrefix+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Accepts query token when enabled", func(t *testing.T) {
		app := newTestApp(New(Config{Secret: testSecret, AllowQueryToken: true}))

		token := signToken(t, testSecret, jwt.MapClaims{
			"uid": userID.String(),
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		req := httptest.NewRequest("GET", "/protected?token="+token, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("Ignores query token when disabled", func(t *testing.T) {
		app := newTestApp(New(Config{Secret: testSecret}))

		token := signToken(t, testSecret, jwt.MapClaims{
			"uid": userID.String(),
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		req := httptest.NewRequest("GET", "/protected?token="+token, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestOptional(t *testing.T) {
	t.Run("Continues anonymously without token", func(t *testing.T) {
		app := newTestApp(Optional(Config{Secret: testSecret}))

		req := httptest.NewRequest("GET", "/protected", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("Still rejects an invalid token", func(t *testing.T) {
		app := newTestApp(Optional(Config{Secret: testSecret}))

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set(types.HeaderAuthorization, types.BearerPrefix+"not-a-token")
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestValidateToken(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())

	token := signToken(t, testSecret, jwt.MapClaims{
		"uid":         userID.String(),
		"username":    "alice@example.com",
		"displayName": "Alice",
		"role":        types.AdminRole,
		"exp":         time.Now().Add(time.Hour).Unix(),
	})

	userCtx, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, userID, userCtx.UserID)
	require.Equal(t, "alice@example.com", userCtx.Username)
	require.Equal(t, "Alice", userCtx.DisplayName)
	require.True(t, userCtx.IsAdmin())

	t.Run("Rejects token without uid", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		_, err := ValidateToken(token, testSecret)
		require.Error(t, err)
	})
}
