package middleware

import (
	"net/http"
	"sync"
	"time"

	"ResidentPulse-Server/model"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Global per-IP limiter table.
var (
	IpLimiters = struct {
		sync.RWMutex
		m map[string]*model.IpLimiter
	}{
		m: make(map[string]*model.IpLimiter),
	}
)

// Periodically reclaim limiters that have gone idle.
func cleanupLimiters() {
	for {
		time.Sleep(1 * time.Hour)
		IpLimiters.Lock()
		now := time.Now()
		for ip, limiter := range IpLimiters.m {
			if now.Sub(limiter.LastActive) > 2*time.Hour {
				delete(IpLimiters.m, ip)
			}
		}
		IpLimiters.Unlock()
	}
}

// RateLimitMiddleware throttles requests per client IP. This is coarse
// service protection; the chat engine applies its own per-session window
// on top of it.
func RateLimitMiddleware() gin.HandlerFunc {
	go cleanupLimiters()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		IpLimiters.Lock()
		limiter, exists := IpLimiters.m[ip]
		if !exists {
			limiter = &model.IpLimiter{
				Limiter:    rate.NewLimiter(rate.Limit(50), 100),
				LastActive: time.Now(),
			}
			IpLimiters.m[ip] = limiter
		}
		limiter.LastActive = time.Now()
		IpLimiters.Unlock()

		if !limiter.Limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, slow down",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
