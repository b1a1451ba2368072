package authjwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"

	"github.com/qolzam/telar-drive/internal/types"
)

// Config defines the config for the JWT middleware.
type Config struct {
	// The shared HS256 signing secret.
	Secret string
	// The context key to store the UserContext. Defaults to types.UserCtxName.
	UserCtxName string
	// AllowQueryToken also accepts the token from the "token" query
	// parameter. Used by browser-facing endpoints (content proxy,
	// local download) where setting headers is impractical.
	AllowQueryToken bool
}

// New creates a middleware handler that requires a valid token.
func New(cfg Config) fiber.Handler {
	if cfg.Secret == "" {
		panic("authjwt: signing secret must not be empty")
	}
	if cfg.UserCtxName == "" {
		cfg.UserCtxName = types.UserCtxName
	}

	return func(c *fiber.Ctx) error {
		tokenString := extractToken(c, cfg.AllowQueryToken)
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":    "UNAUTHORIZED",
				"message": "Missing or invalid JWT",
			})
		}

		userCtx, err := ValidateToken(tokenString, cfg.Secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":    "UNAUTHORIZED",
				"message": "Invalid token",
				"details": err.Error(),
			})
		}

		c.Locals(cfg.UserCtxName, userCtx)
		return c.Next()
	}
}

// Optional creates a middleware handler that attaches the UserContext
// when a valid token is present and continues anonymously otherwise.
// An invalid (as opposed to absent) token is still rejected.
func Optional(cfg Config) fiber.Handler {
	if cfg.Secret == "" {
		panic("authjwt: signing secret must not be empty")
	}
	if cfg.UserCtxName == "" {
		cfg.UserCtxName = types.UserCtxName
	}

	return func(c *fiber.Ctx) error {
		tokenString := extractToken(c, cfg.AllowQueryToken)
		if tokenString == "" {
			return c.Next()
		}

		userCtx, err := ValidateToken(tokenString, cfg.Secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":    "UNAUTHORIZED",
				"message": "Invalid token",
				"details": err.Error(),
			})
		}

		c.Locals(cfg.UserCtxName, userCtx)
		return c.Next()
	}
}

func extractToken(c *fiber.Ctx, allowQuery bool) string {
	authHeader := c.Get(types.HeaderAuthorization)
	if strings.HasPrefix(authHeader, types.BearerPrefix) {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 {
			return parts[1]
		}
	}

	if token := c.Cookies("access_token"); token != "" {
		return token
	}

	if allowQuery {
		return c.Query("token")
	}

	return ""
}

// ValidateToken validates a JWT and returns the UserContext if valid.
// This is a pure validation function that does NOT write to the response,
// so handlers can validate tokens from non-header sources themselves.
func ValidateToken(tokenString string, secret string) (types.UserContext, error) {
	var userCtx types.UserContext

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return userCtx, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return userCtx, errors.New("invalid token")
	}

	if exp, ok := claims["exp"].(float64); ok {
		if int64(exp) < time.Now().Unix() {
			return userCtx, errors.New("token has expired")
		}
	}

	return mapToUserContext(claims)
}

// mapToUserContext converts token claims to UserContext
func mapToUserContext(claims jwt.MapClaims) (types.UserContext, error) {
	var userCtx types.UserContext

	userIDStr, ok := claims[types.HeaderUID].(string)
	if !ok {
		return userCtx, errors.New("missing or invalid uid in claim")
	}
	userID, err := uuid.FromString(userIDStr)
	if err != nil {
		return userCtx, fmt.Errorf("invalid user ID: %v", err)
	}
	userCtx.UserID = userID

	if username, ok := claims["username"].(string); ok {
		userCtx.Username = username
	}
	if displayName, ok := claims["displayName"].(string); ok {
		userCtx.DisplayName = displayName
	}
	if systemRole, ok := claims["role"].(string); ok {
		userCtx.SystemRole = systemRole
	}

	return userCtx, nil
}
