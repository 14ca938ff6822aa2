package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen lets the request through without a counter.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

// CodeRateLimited is the error code of a 429 response.
const CodeRateLimited = "RATE_LIMITED"

var errNoLimiterStore = errors.New("rate limit store unavailable")

// Quota is the state of one fixed window after counting a request.
type Quota struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// limitsEnforced is false for local and test environments.
func limitsEnforced() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return false
	}
	return true
}

// Consume counts one request of id against resource's fixed window.
func Consume(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (Quota, error) {
	if rdb == nil {
		return Quota{}, errNoLimiterStore
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	if _, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	}); err != nil {
		return Quota{}, err
	}

	resetIn := ttl.Val()
	if resetIn < 0 {
		// First hit of the window, or a key left without expiry.
		if err := rdb.PExpire(ctx, key, window).Err(); err != nil {
			return Quota{}, err
		}
		resetIn = window
	}

	count := int(incr.Val())
	return Quota{
		Allowed:   count <= limit,
		Remaining: max(limit-count, 0),
		ResetIn:   resetIn,
	}, nil
}

// RateLimit limits requests per authenticated user, or per client IP for anonymous
// callers, to limit per window. name keys the counter; it defaults to the route path.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit behavior for a missing store.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !limitsEnforced() {
			return c.Next()
		}

		id := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
			id = "user:" + strconv.FormatUint(uint64(uid), 10)
		}
		resource := c.Route().Path
		if len(name) > 0 {
			resource = name[0]
		}

		quota, err := Consume(c.UserContext(), rdb, resource, id, limit, window)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable",
				slog.String("resource", resource),
				slog.String("error", err.Error()),
			)
			if policy == FailClosed {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "Rate limiting unavailable",
					"code":  CodeRateLimited,
				})
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(quota.Remaining))
		if !quota.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(quota.ResetIn.Round(time.Second)/time.Second)))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests",
				"code":  CodeRateLimited,
			})
		}
		return c.Next()
	}
}
