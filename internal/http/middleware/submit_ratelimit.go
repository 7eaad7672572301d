package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// SubmitRateLimit limits score submissions per wallet (not per IP) using Redis.
// Uses the wallet from context. Requires JWT middleware to run before this.
func SubmitRateLimit(maxSubmissions int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			// Redis not configured, fail-open
			c.Next()
			return
		}

		walletVal, exists := c.Get("wallet")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		wallet, ok := walletVal.(string)
		if !ok || wallet == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid wallet"})
			return
		}

		key := "submit_rl:" + wallet + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		ctx := context.Background()

		val, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			// On Redis error, fail-open but flag it
			c.Header("X-SubmitRateLimit-Error", "redis-error")
			c.Next()
			return
		}

		if val == 1 {
			redisClient.Expire(ctx, key, window)
		}

		c.Header("X-SubmitRateLimit-Limit", strconv.Itoa(maxSubmissions))
		c.Header("X-SubmitRateLimit-Remaining", strconv.FormatInt(max(0, int64(maxSubmissions)-val), 10))

		if val > int64(maxSubmissions) {
			RLBlocked.WithLabelValues("submit:" + c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "submission rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues("submit:" + c.FullPath()).Inc()
		c.Next()
	}
}

func max(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
