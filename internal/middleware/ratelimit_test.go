package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"uk-eta-backend/internal/metrics"
	"uk-eta-backend/internal/middleware"
)

func TestRateLimiter_Allow(t *testing.T) {
	l := middleware.NewRateLimiter(0.01, 2, nil)

	ok, _ := l.Allow("1.1.1.1")
	assert.True(t, ok)
	ok, _ = l.Allow("1.1.1.1")
	assert.True(t, ok)
	ok, wait := l.Allow("1.1.1.1")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	ok, _ = l.Allow("2.2.2.2")
	assert.True(t, ok, "clients have separate buckets")

	l.Reset()
	ok, _ = l.Allow("1.1.1.1")
	assert.True(t, ok)
}

func TestRateLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New(prometheus.NewRegistry())
	l := middleware.NewRateLimiter(0.01, 1, m)

	router := gin.New()
	router.Use(l.Middleware())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 2)
	var last *httptest.ResponseRecorder
	for range 2 {
		req, _ := http.NewRequest("GET", "/x", nil)
		req.RemoteAddr = "203.0.113.9:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		last = w
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitDrops))
}

func TestRateLimiter_Sweep(t *testing.T) {
	l := middleware.NewRateLimiter(1, 1, nil)
	l.Allow("a")
	l.Allow("b")

	assert.Equal(t, 0, l.Sweep(time.Hour))
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 2, l.Sweep(time.Millisecond))
}
