package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	xlogger "EconDash/pkg/logger"
)

// RequestLogging logs HTTP requests at debug level.
func RequestLogging(l *xlogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)

			l.Debug("http request",
				xlogger.String("method", req.Method),
				xlogger.String("uri", req.RequestURI),
				xlogger.String("remote", req.RemoteAddr),
				xlogger.Int("status", c.Response().Status),
				xlogger.Duration("duration_ms", time.Since(start)),
			)
			return err
		}
	}
}
