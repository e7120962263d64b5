package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	applogger "github.com/ingl3585/xgb-model/pkg/logger"
)

// RequestLogging logs one line per request at debug level.
func RequestLogging(log *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			log.Debug("http request",
				applogger.String("method", c.Request().Method),
				applogger.String("uri", c.Request().RequestURI),
				applogger.String("remote", c.Request().RemoteAddr),
				applogger.Int("status", c.Response().Status),
				applogger.Duration("latency", time.Since(start)),
			)
			return err
		}
	}
}
