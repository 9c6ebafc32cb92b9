package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"skincareReco/pkg/logger"
	"skincareReco/pkg/utils"

	"github.com/labstack/echo/v4"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, errorBody{Code: "UNAUTHORIZED", Message: msg})
}

func forbidden(c echo.Context, msg string) error {
	return c.JSON(http.StatusForbidden, errorBody{Code: "FORBIDDEN", Message: msg})
}

// bearerToken returns the token from the Authorization header, "" when absent.
func bearerToken(c echo.Context) (string, bool) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return "", true
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return "", false
	}
	return tokenParts[1], true
}

// authenticate sets user_id and role. On failure it writes the error
// response itself and reports false.
func authenticate(c echo.Context, tokenString, secret string) (bool, error) {
	claims, err := utils.ParseJWT(tokenString, secret)
	if err != nil {
		logger.Debug("Failed to parse JWT", "error", err)
		return false, unauthorized(c, "Invalid token")
	}

	userIDUint, err := strconv.ParseUint(claims.UserID, 10, 64)
	if err != nil {
		logger.Warn("Invalid user ID in token", "error", err)
		return false, forbidden(c, "Invalid user ID in token")
	}

	c.Set("user_id", uint(userIDUint))
	c.Set("role", claims.Role)
	return true, nil
}

// AuthMiddleware requires a valid bearer token.
func AuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, ok := bearerToken(c)
			if !ok {
				return unauthorized(c, "Invalid authorization format")
			}
			if tokenString == "" {
				return unauthorized(c, "Missing authorization header")
			}

			if ok, err := authenticate(c, tokenString, secret); !ok {
				return err
			}

			return next(c)
		}
	}
}

// OptionalAuth attributes the request to a user when a token is sent, and
// lets anonymous requests through. A token that is sent but invalid is
// still rejected with 401.
func OptionalAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, ok := bearerToken(c)
			if !ok {
				return unauthorized(c, "Invalid authorization format")
			}
			if tokenString == "" {
				return next(c)
			}

			if ok, err := authenticate(c, tokenString, secret); !ok {
				return err
			}

			return next(c)
		}
	}
}

func AdminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := c.Get("role")
			roleStr, ok := role.(string)
			if !ok || strings.ToUpper(roleStr) != "ADMIN" {
				return forbidden(c, "Admin access required")
			}

			return next(c)
		}
	}
}
