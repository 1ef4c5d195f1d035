package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
)

const ctxClientKey = "client_id"

// ClientIDFromCtx returns the caller identity set by APIKeyMiddleware.
func ClientIDFromCtx(c echo.Context) (string, bool) {
	id, ok := c.Get(ctxClientKey).(string)
	return id, ok && id != ""
}

// APIKeyMiddleware authenticates requests using the X-API-Key header against a
// static key. The stored client id is a short digest of the key, never the key.
func APIKeyMiddleware(apiKey string) echo.MiddlewareFunc {
	want := []byte(apiKey)
	sum := sha256.Sum256(want)
	clientID := hex.EncodeToString(sum[:8])

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}
			if len(want) == 0 || subtle.ConstantTimeCompare([]byte(key), want) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			}
			c.Set(ctxClientKey, clientID)
			return next(c)
		}
	}
}
