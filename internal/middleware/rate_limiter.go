package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/rmitchellscott/marquee/internal/config"
	"github.com/rmitchellscott/marquee/internal/logging"
)

// DeviceRateLimiter throttles device-originated report endpoints per device.
// Progress reports and cache reports are chatty on flaky networks; the
// limiter bounds how hard one device can hammer the orchestrator.
type DeviceRateLimiter struct {
	limiters map[string]*deviceLimiter
	mutex    sync.Mutex
	rps      rate.Limit
	burst    int
}

type deviceLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewDeviceRateLimiter() *DeviceRateLimiter {
	rps := config.GetInt("DEVICE_REPORT_RATE_PER_SEC", 5)
	burst := config.GetInt("DEVICE_REPORT_BURST", 10)

	limiter := &DeviceRateLimiter{
		limiters: make(map[string]*deviceLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
	go limiter.cleanupRoutine()
	return limiter
}

// RateLimit throttles by the :id URL parameter.
func (drl *DeviceRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := c.Param("id")
		if deviceID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "device id is required"})
			c.Abort()
			return
		}

		if !drl.limiterFor(deviceID).Allow() {
			logging.WarnWithComponent(logging.ComponentAPISync, "device rate limit exceeded",
				"device_id", deviceID, "ip", c.ClientIP())
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (drl *DeviceRateLimiter) limiterFor(deviceID string) *rate.Limiter {
	drl.mutex.Lock()
	defer drl.mutex.Unlock()

	entry, exists := drl.limiters[deviceID]
	if !exists {
		entry = &deviceLimiter{limiter: rate.NewLimiter(drl.rps, drl.burst)}
		drl.limiters[deviceID] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (drl *DeviceRateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		drl.cleanup()
	}
}

func (drl *DeviceRateLimiter) cleanup() {
	drl.mutex.Lock()
	defer drl.mutex.Unlock()

	cutoff := time.Now().Add(-time.Hour)
	for deviceID, entry := range drl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(drl.limiters, deviceID)
		}
	}
}
