package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses by endpoint
// unless the handler already set one. Lifetimes follow the provider cache:
// geocodes are stable, venues and ETAs shift, weather is short lived.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}
		if c.Response().StatusCode() >= 400 {
			c.Set(fiber.HeaderCacheControl, "no-store")
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics", path == "/ws":
			ttl = "no-cache"

		case path == "/v1/midpoint", path == "/v1/label":
			ttl = "public, max-age=3600"

		case path == "/v1/venues", path == "/v1/eta":
			ttl = "public, max-age=300"

		case path == "/v1/weather":
			ttl = "public, max-age=120"

		case strings.HasPrefix(path, "/v1/searches"):
			ttl = "private, no-cache"

		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=3600"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
