package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/homelearnhq/homelearn/pkg/errors"
	"github.com/homelearnhq/homelearn/pkg/response"
)

var errTooManyRequests = errors.New("RATE_LIMITED", "Too many requests, slow down", http.StatusTooManyRequests)

type rateWindow struct {
	count int
	until time.Time
}

// RateLimit caps requests per client IP and route within a fixed window. The
// state lives in memory, which is enough for a single-instance deployment.
func RateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	var (
		mu      sync.Mutex
		windows = make(map[string]*rateWindow)
	)

	// Sweep expired windows so the map does not grow without bound.
	go func() {
		for range time.Tick(window) {
			now := time.Now()
			mu.Lock()
			for key, w := range windows {
				if now.After(w.until) {
					delete(windows, key)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		if maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		key := c.ClientIP() + "|" + c.FullPath()
		now := time.Now()

		mu.Lock()
		w, ok := windows[key]
		if !ok || now.After(w.until) {
			w = &rateWindow{until: now.Add(window)}
			windows[key] = w
		}
		w.count++
		count := w.count
		reset := time.Until(w.until)
		mu.Unlock()

		remaining := maxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(reset.Seconds())))

		if count > maxRequests {
			response.Error(c, errTooManyRequests)
			c.Abort()
			return
		}

		c.Next()
	}
}
