package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// ipLimiter pairs a token bucket with the last time the IP was seen.
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit returns middleware that allows maxRequests per IP per window,
// refilled continuously, with bursts up to maxRequests. Returns 429 when
// exceeded. Mounted on the vote endpoint, where one client hammering a
// change request is the abuse worth stopping.
func RateLimit(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	var mu sync.Mutex
	limiters := make(map[string]*ipLimiter)
	every := rate.Every(window / time.Duration(maxRequests))

	// Background cleanup of idle limiters.
	go func() {
		for {
			time.Sleep(time.Minute)
			mu.Lock()
			for ip, l := range limiters {
				if time.Since(l.lastSeen) > window*2 {
					delete(limiters, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			mu.Lock()
			l, ok := limiters[ip]
			if !ok {
				l = &ipLimiter{limiter: rate.NewLimiter(every, maxRequests)}
				limiters[ip] = l
			}
			l.lastSeen = time.Now()
			allowed := l.limiter.Allow()
			mu.Unlock()

			if !allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error":   http.StatusText(http.StatusTooManyRequests),
					"message": "Rate limit exceeded. Please try again later.",
				})
			}
			return next(c)
		}
	}
}
