package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Allower decides whether a request keyed by client address may proceed.
type Allower interface {
	Allow(key string) bool
}

// RateLimit rejects requests over the client's budget with 429.
// onThrottle, when set, is called for every rejected request.
func RateLimit(a Allower, onThrottle func()) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if a == nil || a.Allow(c.RealIP()) {
				return next(c)
			}
			if onThrottle != nil {
				onThrottle()
			}
			c.Response().Header().Set("Retry-After", "1")
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"status":  http.StatusTooManyRequests,
				"message": http.StatusText(http.StatusTooManyRequests),
			})
		}
	}
}
