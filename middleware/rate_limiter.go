package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitors = make(map[string]*visitor)
	mu       sync.Mutex
)

// RateLimitMiddleware applies a per-IP token bucket to the public read
// endpoints (leaderboard polling is the hot path).
func RateLimitMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.Get("X-Forwarded-For")
		if ip == "" {
			ip = c.IP()
		}

		if !getLimiter(ip).Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests",
			})
		}
		return c.Next()
	}
}

func getLimiter(ip string) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	v, exists := visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(5, 30)}
		visitors[ip] = v
	}
	v.lastSeen = time.Now()

	// Opportunistic cleanup of idle entries.
	if len(visitors) > 10000 {
		for k, vv := range visitors {
			if time.Since(vv.lastSeen) > 10*time.Minute {
				delete(visitors, k)
			}
		}
	}
	return v.limiter
}
