package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLog emits one structured http_request record per request. It must
// run after echo's RequestID middleware so the id is already on the response.
func RequestLog() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			res := c.Response()
			level := slog.LevelInfo
			if res.Status >= 500 {
				level = slog.LevelError
			}
			slog.Log(c.Request().Context(), level, "http_request",
				"method", c.Request().Method,
				"route", c.Path(),
				"path", c.Request().URL.Path,
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
				"user", userKey(c),
			)
			return nil
		}
	}
}
