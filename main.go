package main

import (
	// standard library
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// third-party
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	// internal
	"github.com/rmitchellscott/kindling/internal/config"
	"github.com/rmitchellscott/kindling/internal/logging"
	"github.com/rmitchellscott/kindling/internal/metrics"
	"github.com/rmitchellscott/kindling/internal/middleware"
	"github.com/rmitchellscott/kindling/internal/pages"
	"github.com/rmitchellscott/kindling/internal/render"
	"github.com/rmitchellscott/kindling/internal/server"
	"github.com/rmitchellscott/kindling/internal/utils"
	"github.com/rmitchellscott/kindling/internal/version"
)

func main() {
	_ = godotenv.Load()
	logging.SetLogger(logging.New(os.Stderr, config.Get("LOG_LEVEL", ""), config.Get("LOG_FORMAT", "")))

	app := &cli.App{
		Name:    "kindling",
		Usage:   "serve PNG dashboards to e-readers",
		Version: version.String(),
		Action:  serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the HTTP server",
				Action: serve,
			},
			{
				Name:  "render",
				Usage: "render one page to a PNG file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "route", Required: true, Usage: "page path from the pages file, e.g. /clock.png"},
					&cli.StringFlag{Name: "target", Value: string(render.TargetBrowser), Usage: "kindle or browser"},
					&cli.IntFlag{Name: "width", Usage: "logical width (default from settings)"},
					&cli.IntFlag{Name: "height", Usage: "logical height (default from settings)"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "out.png", Usage: "output file, - for stdout"},
				},
				Action: renderOnce,
			},
			{
				Name:  "version",
				Usage: "print version and build time",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprintf(c.App.Writer, "kindling %s (%s) built %s\n",
						version.String(), version.GitCommit, version.BuildTimestamp())
					return err
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logging.ErrorWithComponent(logging.ComponentCLI, "Command failed", "error", err)
		os.Exit(1)
	}
}

// appState holds everything built from Settings that both serve and render
// need.
type appState struct {
	settings config.Settings
	pipeline *render.Pipeline
	recorder *metrics.Recorder
	pages    []pages.Page
}

func setup(withMetrics bool) (*appState, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, err
	}

	rt := &appState{settings: settings}
	opts := render.Options{
		BuildTime:      version.BuildTimestamp(),
		KindleBitDepth: settings.KindleBitDepth,
		LoadTimeout:    settings.LoadTimeout,
		MaxDimension:   settings.MaxDimension,
		Defaults: render.ImageParams{
			Target: render.TargetBrowser,
			Width:  settings.DefaultWidth,
			Height: settings.DefaultHeight,
		},
	}
	if withMetrics && settings.MetricsEnabled {
		rt.recorder = metrics.NewRecorder(prometheus.DefaultRegisterer)
		if err := rt.recorder.Register(); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		opts.Observer = rt.recorder
	}
	rt.pipeline = render.NewPipeline(opts)

	defs, err := pages.LoadDefinitions(settings.PagesFile)
	if err != nil {
		return nil, err
	}
	deps := pages.Deps{
		HTTPClient: &http.Client{Timeout: settings.LoadTimeout},
		URLConfig:  utils.GetURLValidationConfig(),
	}
	if settings.BrowserlessURL != "" {
		capturer, err := pages.NewBrowserlessCapturer(settings.BrowserlessURL, &http.Client{Timeout: settings.LoadTimeout})
		if err != nil {
			return nil, err
		}
		deps.Capturer = capturer
	} else {
		deps.Capturer = &pages.ChromeCapturer{ExecPath: settings.ChromePath}
	}

	rt.pages, err = pages.BuildAll(defs, deps)
	if err != nil {
		return nil, err
	}
	logging.InfoWithComponent(logging.ComponentStartup, "Loaded pages",
		"file", settings.PagesFile, "count", len(rt.pages), "kinds", pages.Kinds())
	return rt, nil
}

func serve(c *cli.Context) error {
	logging.InfoWithComponent(logging.ComponentStartup, "Starting Kindling",
		"version", version.String(), "build_time", version.BuildTimestamp())

	rt, err := setup(true)
	if err != nil {
		return err
	}
	settings := rt.settings

	if settings.GinMode != "" {
		gin.SetMode(settings.GinMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := []server.Option{server.WithIndex(settings.IndexEnabled)}
	if rt.recorder != nil {
		opts = append(opts, server.WithMetrics(rt.recorder))
	}
	if settings.RateLimit > 0 {
		limiter := middleware.NewClientRateLimiter(settings.RateLimit, settings.RateBurst, 10*time.Minute)
		defer limiter.Stop()
		opts = append(opts, server.WithRateLimiter(limiter))
	}

	app := server.NewApplication(gin.New(), settings.BaseURL, rt.pipeline, opts...)
	for _, p := range rt.pages {
		app.AddHandler(p.Path, p.Handler)
	}
	router, err := app.Attach()
	if err != nil {
		return err
	}

	addr := ":" + settings.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.InfoWithComponent(logging.ComponentStartup, "Listening", "address", addr, "routes", app.Paths())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.InfoWithComponent(logging.ComponentStartup, "Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logging.InfoWithComponent(logging.ComponentStartup, "Server stopped")
	return nil
}

func renderOnce(c *cli.Context) error {
	rt, err := setup(false)
	if err != nil {
		return err
	}

	route := c.String("route")
	var handler render.Bound
	for _, p := range rt.pages {
		if p.Path == route {
			handler = p.Handler
			break
		}
	}
	if handler == nil {
		return fmt.Errorf("no page at %s in %s", route, rt.settings.PagesFile)
	}

	target, err := render.ParseTarget(c.String("target"))
	if err != nil {
		return err
	}
	params := rt.pipeline.Defaults()
	params.Target = target
	if c.IsSet("width") {
		params.Width = c.Int("width")
	}
	if c.IsSet("height") {
		params.Height = c.Int("height")
	}

	data, renderErr := rt.pipeline.Render(c.Context, params, handler)
	if renderErr != nil {
		if render.IsEncodeError(renderErr) {
			return renderErr
		}
		logging.WarnWithComponent(logging.ComponentCLI, "Page failed, writing error image",
			"route", route, "error", renderErr)
		data = rt.pipeline.RenderError(params, fmt.Errorf("%s: %w", route, renderErr))
	}

	out := c.String("output")
	if out == "-" {
		_, err = c.App.Writer.Write(data)
	} else {
		err = os.WriteFile(out, data, 0o644)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logging.InfoWithComponent(logging.ComponentCLI, "Rendered page",
		"route", route, "target", params.Target, "width", params.Width, "height", params.Height, "bytes", len(data), "output", out)
	return renderErr
}
