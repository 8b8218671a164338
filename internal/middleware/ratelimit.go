package middleware

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds the export endpoint's rate limiting settings.
type RateLimitConfig struct {
	ExportMax        int // Max export requests per window, per caller
	ExportExpiration time.Duration
}

// DefaultRateLimitConfig returns production-safe defaults: generous
// enough for a batch client polling collections, tight enough to keep
// one caller from monopolizing the evaluator.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		ExportMax:        60,
		ExportExpiration: 1 * time.Minute,
	}
}

// LoadRateLimitConfig loads config from environment variables with
// defaults, relaxing the limit in development the same way the
// teacher's LoadRateLimitConfig does.
func LoadRateLimitConfig() *RateLimitConfig {
	config := DefaultRateLimitConfig()

	if v := os.Getenv("RATE_LIMIT_EXPORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.ExportMax = n
		}
	}

	if os.Getenv("ENVIRONMENT") == "development" {
		config.ExportMax = 1000
		log.Println("⚠️  [RATE-LIMIT] Development mode: using relaxed export rate limit")
	}

	return config
}

// ExportRateLimiter limits POST /export requests per caller, keyed by
// the authenticated user ID when auth middleware has run, falling back
// to IP for unauthenticated requests.
func ExportRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.ExportMax,
		Expiration: config.ExportExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
				return "export:" + userID
			}
			return "export-ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] Export limit reached for %v on %s", c.Locals("user_id"), c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many export requests. Please slow down.",
				"retry_after": int(config.ExportExpiration.Seconds()),
			})
		},
	})
}
