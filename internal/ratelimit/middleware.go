package ratelimit

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionHeader carries the caller's session token. Callers without one
// are attributed by client IP.
const SessionHeader = "X-Session-ID"

// Identity resolves the rate-limit identity for a request: session token
// if present, network address otherwise.
func Identity(c *gin.Context) string {
	if id := c.GetHeader(SessionHeader); id != "" {
		return id
	}
	return c.ClientIP()
}

// Middleware returns a gin middleware enforcing the quota for one
// endpoint category. The rate check runs before any handler work; denied
// requests are answered with 429 and never reach the handler. The
// rate-limit headers are attached on every response, allowed or not.
func Middleware(l *Limiter, category string) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := l.Check(Identity(c), category)
		for k, v := range Headers(d) {
			c.Header(k, v)
		}

		if !d.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
