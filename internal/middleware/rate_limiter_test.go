package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	t.Setenv("DEVICE_REPORT_RATE_PER_SEC", "1")
	t.Setenv("DEVICE_REPORT_BURST", "2")

	gin.SetMode(gin.TestMode)
	router := gin.New()
	limiter := NewDeviceRateLimiter()
	router.POST("/devices/:id/report", limiter.RateLimit(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func post(router *gin.Engine, path string) int {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	router.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiterBlocksBeyondBurst(t *testing.T) {
	router := newTestRouter(t)

	if code := post(router, "/devices/d1/report"); code != http.StatusOK {
		t.Fatalf("first request: %d", code)
	}
	if code := post(router, "/devices/d1/report"); code != http.StatusOK {
		t.Fatalf("second request: %d", code)
	}
	if code := post(router, "/devices/d1/report"); code != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429 past the burst", code)
	}
}

func TestRateLimiterIsPerDevice(t *testing.T) {
	router := newTestRouter(t)

	post(router, "/devices/d1/report")
	post(router, "/devices/d1/report")
	post(router, "/devices/d1/report")

	if code := post(router, "/devices/d2/report"); code != http.StatusOK {
		t.Errorf("another device must have its own budget, got %d", code)
	}
}

func TestRateLimiterRefills(t *testing.T) {
	t.Setenv("DEVICE_REPORT_RATE_PER_SEC", "100")
	t.Setenv("DEVICE_REPORT_BURST", "1")

	gin.SetMode(gin.TestMode)
	router := gin.New()
	limiter := NewDeviceRateLimiter()
	router.POST("/devices/:id/report", limiter.RateLimit(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	post(router, "/devices/d1/report")
	if code := post(router, "/devices/d1/report"); code != http.StatusTooManyRequests {
		t.Fatalf("burst of 1 should reject the immediate second request, got %d", code)
	}
	time.Sleep(20 * time.Millisecond)
	if code := post(router, "/devices/d1/report"); code != http.StatusOK {
		t.Errorf("limiter must refill over time, got %d", code)
	}
}
