package auth

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	limiterpkg "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// NewRateLimiter builds a per-key limiter from a rate such as "300-M".
func NewRateLimiter(formatted string) (*limiterpkg.Limiter, error) {
	rate, err := limiterpkg.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", formatted, err)
	}
	return limiterpkg.New(memory.NewStore(), rate), nil
}

// RateLimitMiddleware limits requests per client IP.
func RateLimitMiddleware(limiter *limiterpkg.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			context, err := limiter.Get(c.Request().Context(), ip)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{
					"error": "rate limit error",
				})
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(context.Limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(context.Remaining, 10))

			if context.Reached {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded",
				})
			}

			return next(c)
		}
	}
}
