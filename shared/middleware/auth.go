package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"storyteller-server/shared/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// ContextKeyParentUID - ключ echo-контекста, под которым middleware кладет
// uid родителя из токена.
const ContextKeyParentUID = "parentUid"

// JWTAuthMiddleware создает middleware для проверки JWT access токена
// родительского аккаунта. Проверяет подпись и срок действия, извлекает
// parent_uid. Отзыв токенов - ответственность auth-сервиса, здесь не
// проверяется.
func JWTAuthMiddleware(secretKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header missing")
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
			}

			claims := &models.Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secretKey), nil
			})

			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Token has expired")
				}
				if errors.Is(err, jwt.ErrTokenMalformed) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Token is malformed")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Token validation failed")
			}

			if !token.Valid || claims.ParentUID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token is invalid")
			}

			c.Set(ContextKeyParentUID, claims.ParentUID)
			return next(c)
		}
	}
}

// ParentUIDFromContext достает uid родителя, положенный JWTAuthMiddleware.
func ParentUIDFromContext(c echo.Context) (string, error) {
	uid, ok := c.Get(ContextKeyParentUID).(string)
	if !ok || uid == "" {
		return "", models.ErrUnauthorized
	}
	return uid, nil
}
