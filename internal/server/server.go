package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rmitchellscott/kindling/internal/metrics"
	"github.com/rmitchellscott/kindling/internal/middleware"
	"github.com/rmitchellscott/kindling/internal/pages"
	"github.com/rmitchellscott/kindling/internal/render"
	"github.com/rmitchellscott/kindling/internal/scripts"
	"github.com/rmitchellscott/kindling/internal/version"
)

// Option configures an Application.
type Option func(*Application)

// WithIndex toggles the HTML index page at "/".
func WithIndex(enabled bool) Option {
	return func(a *Application) { a.indexEnabled = enabled }
}

// WithMetrics records renders and serves /metrics from r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(a *Application) { a.metrics = r }
}

// WithRateLimiter limits image routes per client.
func WithRateLimiter(rl *middleware.ClientRateLimiter) Option {
	return func(a *Application) { a.limiter = rl }
}

// WithBuildTime overrides the build timestamp shown in scripts and
// health checks.
func WithBuildTime(buildTime string) Option {
	return func(a *Application) { a.buildTime = buildTime }
}

// WithClock replaces time.Now for script fetch times.
func WithClock(now func() time.Time) Option {
	return func(a *Application) { a.now = now }
}

type route struct {
	path    string
	handler render.Bound
}

// Application collects page handlers and attaches them, together with
// the built-in routes, to a gin router.
type Application struct {
	router   *gin.Engine
	baseURL  string
	pipeline *render.Pipeline

	routes []route

	indexEnabled bool
	metrics      *metrics.Recorder
	limiter      *middleware.ClientRateLimiter
	buildTime    string
	now          func() time.Time
}

// NewApplication starts a builder for router. An empty baseURL means
// scripts derive it from each request.
func NewApplication(router *gin.Engine, baseURL string, pipeline *render.Pipeline, opts ...Option) *Application {
	a := &Application{
		router:       router,
		baseURL:      strings.TrimRight(baseURL, "/"),
		pipeline:     pipeline,
		indexEnabled: true,
		buildTime:    pipeline.ErrorRenderer().BuildTime(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddHandler serves h at path. Paths are checked by Attach.
func (a *Application) AddHandler(path string, h render.Bound) *Application {
	a.routes = append(a.routes, route{path: path, handler: h})
	return a
}

// Paths returns the registered page paths in registration order.
func (a *Application) Paths() []string {
	paths := make([]string, 0, len(a.routes))
	for _, r := range a.routes {
		paths = append(paths, r.path)
	}
	return paths
}

// Attach installs middleware, every registered page and the built-in
// routes, and returns the router.
func (a *Application) Attach() (*gin.Engine, error) {
	seen := make(map[string]bool, len(a.routes))
	for _, r := range a.routes {
		if err := scripts.ValidateRoute(r.path); err != nil {
			return nil, err
		}
		if strings.HasPrefix(r.path, pages.ReservedPrefix) {
			return nil, fmt.Errorf("route %s: %s is reserved for built-in routes", r.path, pages.ReservedPrefix)
		}
		if r.path == "/" || r.path == "/healthz" || r.path == "/metrics" {
			return nil, fmt.Errorf("route %s is reserved", r.path)
		}
		if seen[r.path] {
			return nil, fmt.Errorf("route %s registered twice", r.path)
		}
		if r.handler == nil {
			return nil, fmt.Errorf("route %s has no handler", r.path)
		}
		seen[r.path] = true
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodHead, http.MethodOptions}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}

	a.router.Use(
		middleware.RequestID(),
		middleware.Logger(),
		gin.Recovery(),
		cors.New(corsConfig),
	)

	for _, r := range a.routes {
		a.addImageRoute(r.path, r.handler)
	}
	a.addImageRoute(scripts.BlackPath, render.Bind[struct{}](pages.Blackout{}))

	a.router.GET(scripts.RefreshPath, a.refreshScript)
	a.router.GET(scripts.InstallPath, a.installScript)
	a.router.GET(scripts.VersionPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get())
	})
	a.router.GET("/healthz", a.health)
	if a.indexEnabled {
		a.router.GET("/", a.index)
	}
	if a.metrics != nil {
		a.router.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	}
	return a.router, nil
}

func (a *Application) addImageRoute(path string, h render.Bound) {
	handlers := []gin.HandlerFunc{}
	if a.limiter != nil {
		handlers = append(handlers, a.limiter.RateLimit(a.rateLimited(path)))
	}
	handlers = append(handlers, a.imageHandler(path, h))
	a.router.GET(path, handlers...)
}

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
}

func (a *Application) health(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.JSON(http.StatusOK, healthResponse{
		Status:    "ok",
		Version:   version.Version,
		BuildTime: a.buildTime,
	})
}
