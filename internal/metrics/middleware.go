package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// Middleware records request counts and latencies by route template.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			RequestCount.WithLabelValues(path, method, strconv.Itoa(c.Response().Status)).Inc()
			RequestDuration.WithLabelValues(path, method).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
