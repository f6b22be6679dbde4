package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func newRateLimitedEngine(config RateLimiterConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(NewRateLimiter(config).RateLimit())
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return engine
}

func doPing(engine *gin.Engine, remoteAddr string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	engine.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitThrottlesBurstyClient(t *testing.T) {
	engine := newRateLimitedEngine(RateLimiterConfig{Rate: rate.Limit(1), Burst: 2})

	assert.Equal(t, http.StatusOK, doPing(engine, "10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, doPing(engine, "10.0.0.1:5000"))
	assert.Equal(t, http.StatusTooManyRequests, doPing(engine, "10.0.0.1:5000"))
}

func TestRateLimitIsScopedPerClient(t *testing.T) {
	engine := newRateLimitedEngine(RateLimiterConfig{Rate: rate.Limit(1), Burst: 1})

	assert.Equal(t, http.StatusOK, doPing(engine, "10.0.0.1:5000"))
	assert.Equal(t, http.StatusTooManyRequests, doPing(engine, "10.0.0.1:5000"))

	// a different caller holds its own bucket
	assert.Equal(t, http.StatusOK, doPing(engine, "10.0.0.2:5000"))
}
