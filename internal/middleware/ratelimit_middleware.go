package middleware

import (
	"math"
	"net/http"
	"strconv"

	"craftlink-chat/internal/ratelimit"
	"craftlink-chat/internal/services"
	"craftlink-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware consumes one slot from the caller's bucket for the
// given class. Apply after AuthMiddleware; without a user context it is a
// no-op and leaves enforcement to the auth layer.
func RateLimitMiddleware(limiter *ratelimit.Limiter, class ratelimit.Class) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		decision, err := limiter.CheckAndConsume(c.Request.Context(), class, userID.String())
		if err != nil {
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("rate limit error", "INTERNAL_ERROR"))
			c.Abort()
			return
		}

		setRateLimitHeaders(c, decision)

		if !decision.Allowed {
			retry := retryAfterSeconds(decision)
			c.Header("Retry-After", strconv.Itoa(retry))
			c.JSON(http.StatusTooManyRequests, httpdto.NewRateLimitedResponse(retry))
			c.Abort()
			return
		}

		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, d ratelimit.Decision) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	c.Header("X-RateLimit-Reset", strconv.Itoa(retryAfterSeconds(d)))
}

func retryAfterSeconds(d ratelimit.Decision) int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 && !d.Allowed {
		secs = 1
	}
	if secs < 0 {
		secs = 0
	}
	return secs
}
