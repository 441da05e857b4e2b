package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmitchellscott/kindling/internal/metrics"
	"github.com/rmitchellscott/kindling/internal/middleware"
	"github.com/rmitchellscott/kindling/internal/render"
)

const testBuildTime = "2024-01-02 03:04:05 UTC"

func init() {
	gin.SetMode(gin.TestMode)
}

type failingLoad struct{}

func (failingLoad) Name() string { return "failing" }

func (failingLoad) Load(context.Context) (struct{}, error) {
	return struct{}{}, errors.New("database is down")
}

func (failingLoad) Draw(*render.Surface, render.ImageParams, struct{}) error { return nil }

func testPipeline(t *testing.T) *render.Pipeline {
	t.Helper()
	fonts, err := render.DefaultFonts()
	require.NoError(t, err)
	return render.NewPipeline(render.Options{
		BuildTime:    testBuildTime,
		Fonts:        fonts,
		MaxDimension: 2000,
		LoadTimeout:  time.Second,
	})
}

func hello() render.Bound {
	return render.Bind[struct{}](render.HandlerFunc(func(s *render.Surface, _ render.ImageParams) error {
		s.FillRect(0, 0, 10, 10, render.Black)
		return nil
	}))
}

func newTestApp(t *testing.T, baseURL string, opts ...Option) http.Handler {
	t.Helper()
	app := NewApplication(gin.New(), baseURL, testPipeline(t), opts...).
		AddHandler("/hello.png", hello()).
		AddHandler("/broken.png", render.Bind[struct{}](failingLoad{})).
		AddHandler("/panics.png", render.Bind[struct{}](render.HandlerFunc(func(*render.Surface, render.ImageParams) error {
			panic("boom")
		})))
	router, err := app.Attach()
	require.NoError(t, err)
	return router
}

func get(h http.Handler, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodePNG(t *testing.T, rec *httptest.ResponseRecorder) image.Image {
	t.Helper()
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	return img
}

func TestImageRoute(t *testing.T) {
	r := newTestApp(t, "")

	rec := get(r, "/hello.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	img := decodePNG(t, rec)
	assert.Equal(t, image.Rect(0, 0, render.DefaultWidth, render.DefaultHeight), img.Bounds())

	rec = get(r, "/hello.png?target=browser&width=300&height=200", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, image.Rect(0, 0, 300, 200), decodePNG(t, rec).Bounds())

	rec = get(r, "/hello.png?target=kindle&width=300&height=200", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, image.Rect(0, 0, 200, 300), decodePNG(t, rec).Bounds(), "landscape pages are rotated for kindles")
}

func TestImageRouteRejectsBadQuery(t *testing.T) {
	r := newTestApp(t, "")

	tests := []struct {
		query string
		want  image.Rectangle
	}{
		{"width=0", image.Rect(0, 0, render.DefaultWidth, render.DefaultHeight)},
		{"width=-3&height=200", image.Rect(0, 0, render.DefaultWidth, 200)},
		{"target=tablet&width=300&height=200", image.Rect(0, 0, 300, 200)},
		{"target=KINDLE&width=300&height=200", image.Rect(0, 0, 300, 200)},
		{"width=abc", image.Rect(0, 0, render.DefaultWidth, render.DefaultHeight)},
		{"width=5000", image.Rect(0, 0, render.DefaultWidth, render.DefaultHeight)},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := get(r, "/hello.png?"+tt.query, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
			assert.Equal(t, tt.want, decodePNG(t, rec).Bounds())
		})
	}
}

func TestQueryErrorChain(t *testing.T) {
	zero, negative, tablet := 0, -3, "tablet"

	err := binding.Validator.ValidateStruct(imageQuery{Width: &zero})
	require.Error(t, err)
	assert.Equal(t,
		[]string{"/x.png", "invalid width", "must be greater than 0"},
		render.Chain(fmt.Errorf("/x.png: %w", queryError(err))),
	)
	assert.Equal(t, []string{"invalid width", "must be greater than 0"}, render.Chain(queryError(err)))
	assert.True(t, render.IsConfigError(queryError(err)))

	err = binding.Validator.ValidateStruct(imageQuery{Height: &negative, Target: &tablet})
	require.Error(t, err)
	causes := render.Chain(queryError(err))
	assert.Contains(t, causes, "invalid target")
	assert.Contains(t, causes, "must be one of kindle, browser")
	assert.Contains(t, causes, "invalid height")

	assert.NoError(t, binding.Validator.ValidateStruct(imageQuery{}))
}

func TestImageRouteFailures(t *testing.T) {
	r := newTestApp(t, "")

	rec := get(r, "/broken.png?width=400&height=300", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, image.Rect(0, 0, 400, 300), decodePNG(t, rec).Bounds())

	rec = get(r, "/panics.png?target=kindle&width=400&height=300", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, image.Rect(0, 0, 300, 400), decodePNG(t, rec).Bounds(), "error images follow the kindle rotation")
}

func TestBlackoutRoute(t *testing.T) {
	r := newTestApp(t, "")

	rec := get(r, "/kindling/v0.1/black.png?width=20&height=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	img := decodePNG(t, rec)
	require.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r != 0 || g != 0 || b != 0 {
				t.Fatalf("Expected black at (%d,%d)", x, y)
			}
		}
	}
}

func TestRateLimitedImageIsPNG(t *testing.T) {
	limiter := middleware.NewClientRateLimiter(0.001, 1, time.Minute)
	t.Cleanup(limiter.Stop)

	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)
	require.NoError(t, rec.Register())

	r := newTestApp(t, "", WithRateLimiter(limiter), WithMetrics(rec))

	first := get(r, "/hello.png?width=100&height=50", nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := get(r, "/hello.png?width=100&height=50", nil)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.Equal(t, image.Rect(0, 0, 100, 50), decodePNG(t, second).Bounds())

	body := get(r, "/metrics", nil).Body.String()
	assert.Contains(t, body, `kindling_rate_limited_total{route="/hello.png"} 1`)
	assert.Contains(t, body, `kindling_renders_total{route="/hello.png",status="200",target="browser"} 1`)
	assert.Contains(t, body, `kindling_renders_total{route="/hello.png",status="429",target="browser"} 1`)

	// scripts are not limited
	assert.Equal(t, http.StatusOK, get(r, "/kindling/v0.1/install?route=/hello.png", nil).Code)
}

func TestRefreshScript(t *testing.T) {
	fetched := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	r := newTestApp(t, "http://kindle.example:8000/", WithClock(func() time.Time { return fetched }))

	rec := get(r, "/kindling/v0.1/refresh-image.sh?route=/hello.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "#!/bin/sh\n"))
	assert.Contains(t, body, "URL='http://kindle.example:8000/hello.png?target=kindle'")
	assert.Contains(t, body, "built:   "+testBuildTime)
	assert.Contains(t, body, "fetched: 2024-05-06 07:08:09 UTC")

	rec = get(r, "/kindling/v0.1/refresh-image.sh?route=/hello.png&width=600&height=800", nil)
	assert.Contains(t, rec.Body.String(), "URL='http://kindle.example:8000/hello.png?height=800&target=kindle&width=600'")
}

func TestInstallScriptUsesRequestBaseURL(t *testing.T) {
	r := newTestApp(t, "")

	rec := get(r, "/kindling/v0.1/install?route=/hello.png", http.Header{
		"X-Forwarded-Proto": {"https"},
		"X-Forwarded-Host":  {"dash.example"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "BASE_URL='https://dash.example'")
	assert.Contains(t, body, "https://dash.example/kindling/v0.1/refresh-image.sh?route=%2Fhello.png")
	assert.Contains(t, body, "built: "+testBuildTime)
	assert.Contains(t, body, "*/15 * * * *")

	rec = get(r, "/kindling/v0.1/install?route=/hello.png&interval=5", nil)
	assert.Contains(t, rec.Body.String(), "*/5 * * * *")
}

func TestScriptRejectsBadRoute(t *testing.T) {
	r := newTestApp(t, "http://kindle.example")

	for _, target := range []string{
		"/kindling/v0.1/install",
		"/kindling/v0.1/install?route=hello.png",
		"/kindling/v0.1/refresh-image.sh?route=/a'b.png",
		"/kindling/v0.1/refresh-image.sh?route=/../etc/passwd",
		"/kindling/v0.1/refresh-image.sh?route=/x.png&interval=60",
	} {
		rec := get(r, target, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestIndex(t *testing.T) {
	r := newTestApp(t, "")

	rec := get(r, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "<code>/hello.png</code>")
	assert.Contains(t, body, "<code>/broken.png</code>")
	assert.NotContains(t, body, "<code>/kindling/v0.1/black.png</code>")
	assert.Contains(t, body, testBuildTime)

	r = newTestApp(t, "", WithIndex(false))
	assert.Equal(t, http.StatusNotFound, get(r, "/", nil).Code)
}

func TestHealthAndVersion(t *testing.T) {
	r := newTestApp(t, "")

	rec := get(r, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, testBuildTime, health["build_time"])
	assert.NotEmpty(t, health["version"])

	rec = get(r, "/kindling/v0.1/version", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version"`)

	assert.Equal(t, http.StatusNotFound, get(r, "/metrics", nil).Code, "metrics are off without a recorder")

	r = newTestApp(t, "", WithBuildTime("stamped"))
	require.NoError(t, json.Unmarshal(get(r, "/healthz", nil).Body.Bytes(), &health))
	assert.Equal(t, "stamped", health["build_time"])
}

func TestCORS(t *testing.T) {
	r := newTestApp(t, "")

	rec := get(r, "/hello.png?width=10&height=10", http.Header{"Origin": {"http://elsewhere.example"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAttachRejectsBadRoutes(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
	}{
		{"relative", []string{"hello.png"}},
		{"duplicate", []string{"/a.png", "/a.png"}},
		{"reserved prefix", []string{"/kindling/v0.1/black.png"}},
		{"health", []string{"/healthz"}},
		{"spaces", []string{"/a b.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := NewApplication(gin.New(), "", testPipeline(t))
			for _, p := range tt.paths {
				app.AddHandler(p, hello())
			}
			_, err := app.Attach()
			assert.Error(t, err)
		})
	}

	app := NewApplication(gin.New(), "", testPipeline(t)).AddHandler("/a.png", nil)
	_, err := app.Attach()
	assert.Error(t, err)
}
