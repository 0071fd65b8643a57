package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// CronSecretHeader carries the shared secret of the external scheduler.
const CronSecretHeader = "X-Cron-Secret"

// CronSecret admits a request only when its X-Cron-Secret header equals
// secret. The comparison runs in constant time. An empty secret rejects
// everything.
func CronSecret(secret string) echo.MiddlewareFunc {
	want := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := []byte(c.Request().Header.Get(CronSecretHeader))
			if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid cron secret"})
			}
			return next(c)
		}
	}
}
