package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Logger())
	r.GET("/x", append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})...)
	return r
}

func get(r http.Handler, remoteAddr string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = remoteAddr
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequestID(t *testing.T) {
	r := newRouter()

	rec := get(r, "192.0.2.1:1234", nil)
	id := rec.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.Body.String())

	supplied := uuid.NewString()
	rec = get(r, "192.0.2.1:1234", http.Header{RequestIDHeader: {supplied}})
	assert.Equal(t, supplied, rec.Header().Get(RequestIDHeader))

	rec = get(r, "192.0.2.1:1234", http.Header{RequestIDHeader: {"<script>"}})
	assert.NotEqual(t, "<script>", rec.Header().Get(RequestIDHeader))
}

func TestRateLimitPerClient(t *testing.T) {
	rl := NewClientRateLimiter(0.001, 2, time.Hour)
	defer rl.Stop()

	limited := 0
	r := newRouter(rl.RateLimit(func(c *gin.Context) {
		limited++
		c.String(http.StatusTooManyRequests, "slow down")
	}))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, get(r, "192.0.2.1:1000", nil).Code, "request %d", i)
	}
	rec := get(r, "192.0.2.1:1001", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "slow down", rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, limited)

	// other clients have their own bucket
	assert.Equal(t, http.StatusOK, get(r, "192.0.2.2:1000", nil).Code)
	assert.Equal(t, 2, rl.Clients())
}

func TestRateLimitDefaultResponse(t *testing.T) {
	rl := NewClientRateLimiter(0.001, 1, time.Hour)
	defer rl.Stop()
	r := newRouter(rl.RateLimit(nil))

	assert.Equal(t, http.StatusOK, get(r, "192.0.2.1:1000", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "192.0.2.1:1000", nil).Code)
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewClientRateLimiter(1, 1, time.Hour)
	defer rl.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(30 * time.Minute)
	rl.Allow("b")
	now = now.Add(40 * time.Minute)

	rl.cleanup()
	assert.Equal(t, 1, rl.Clients(), "only the idle client should be dropped")
}
