package auth

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// GenerateToken mints an HS256 token for the catalog user. Tokens are
// normally issued by the catalog API; this is used by the CLI and tests.
func GenerateToken(userID int64, role, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// JWTMiddleware verifies the bearer token and stores the caller's user id
// and role in the echo context.
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Authorization header is required"})
			}

			if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid token format"})
			}

			tokenString := authHeader[7:]
			if tokenString == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid token format"})
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok || !token.Valid {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
			}

			userID, ok := claims["user_id"].(float64)
			if !ok || userID <= 0 {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
			}
			role, _ := claims["role"].(string)

			c.Set(ctxUserID, int64(userID))
			c.Set(ctxRole, role)
			return next(c)
		}
	}
}

// RequireRole lets the request through only when the caller holds one of roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !slices.Contains(roles, Role(c)) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Insufficient permissions"})
			}
			return next(c)
		}
	}
}

// UserID returns the authenticated caller, or 0.
func UserID(c echo.Context) int64 {
	id, _ := c.Get(ctxUserID).(int64)
	return id
}

func Role(c echo.Context) string {
	role, _ := c.Get(ctxRole).(string)
	return role
}
