package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/rmitchellscott/kindling/internal/logging"
	"github.com/rmitchellscott/kindling/internal/middleware"
	"github.com/rmitchellscott/kindling/internal/render"
)

var errRateLimited = errors.New("too many requests, slow down")

// imageQuery is the query string accepted by every image route. Absent
// fields fall back to the pipeline defaults.
type imageQuery struct {
	Target *string `form:"target" binding:"omitempty,oneof=kindle browser"`
	Width  *int    `form:"width" binding:"omitempty,gt=0"`
	Height *int    `form:"height" binding:"omitempty,gt=0"`
}

func (q imageQuery) params(defaults render.ImageParams) render.ImageParams {
	p := defaults
	if q.Target != nil {
		p.Target = render.Target(*q.Target)
	}
	if q.Width != nil {
		p.Width = *q.Width
	}
	if q.Height != nil {
		p.Height = *q.Height
	}
	return p
}

// bindParams reads the image parameters of c. Every failure is a
// *render.ConfigError, or several joined.
func (a *Application) bindParams(c *gin.Context) (render.ImageParams, error) {
	var q imageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return render.ImageParams{}, queryError(err)
	}
	return q.params(a.pipeline.Defaults()), nil
}

func queryError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &render.ConfigError{Field: "query", Err: err}
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		var cause error
		switch fe.Tag() {
		case "gt":
			cause = fmt.Errorf("must be greater than %s", fe.Param())
		case "oneof":
			cause = fmt.Errorf("must be one of %s", strings.ReplaceAll(fe.Param(), " ", ", "))
		default:
			cause = fmt.Errorf("failed %s validation", fe.Tag())
		}
		errs = append(errs, &render.ConfigError{Field: strings.ToLower(fe.Field()), Err: cause})
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

// lenientParams keeps whatever part of the query is usable, for drawing
// an error image when binding failed.
func (a *Application) lenientParams(c *gin.Context) render.ImageParams {
	p := a.pipeline.Defaults()
	// same exact-match rule as the binding tag
	switch t := render.Target(c.Query("target")); t {
	case render.TargetKindle, render.TargetBrowser:
		p.Target = t
	}
	if w, err := strconv.Atoi(c.Query("width")); err == nil && w > 0 {
		p.Width = w
	}
	if h, err := strconv.Atoi(c.Query("height")); err == nil && h > 0 {
		p.Height = h
	}
	return a.pipeline.Sanitize(p)
}

func (a *Application) imageHandler(path string, h render.Bound) gin.HandlerFunc {
	return func(c *gin.Context) {
		params, err := a.bindParams(c)
		if err != nil {
			a.sendErrorImage(c, path, http.StatusBadRequest, a.lenientParams(c), err)
			return
		}

		data, err := a.pipeline.Render(c.Request.Context(), params, h)
		switch {
		case err == nil:
			a.sendPNG(c, path, params, http.StatusOK, data)
		case render.IsEncodeError(err):
			logging.ErrorWithComponent(logging.ComponentHTTP, "Failed to encode image",
				"path", path, "error", err, "request_id", middleware.GetRequestID(c))
			a.observe(path, params, http.StatusInternalServerError, 0)
			c.Header("Cache-Control", "no-cache")
			c.String(http.StatusInternalServerError, "%s: %v\n", path, err)
		case render.IsConfigError(err):
			a.sendErrorImage(c, path, http.StatusBadRequest, params, err)
		default:
			a.sendErrorImage(c, path, http.StatusInternalServerError, params, err)
		}
	}
}

func (a *Application) rateLimited(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.metrics != nil {
			a.metrics.ObserveRateLimited(path)
		}
		a.sendErrorImage(c, path, http.StatusTooManyRequests, a.lenientParams(c), errRateLimited)
	}
}

// sendErrorImage replies with err drawn as a PNG, prefixed with path.
func (a *Application) sendErrorImage(c *gin.Context, path string, status int, params render.ImageParams, err error) {
	err = fmt.Errorf("%s: %w", path, err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithComponent(logging.ComponentHTTP, "Render failed",
			"path", path, "error", err, "request_id", middleware.GetRequestID(c))
	} else {
		logging.DebugWithComponent(logging.ComponentHTTP, "Rejected image request",
			"path", path, "status", status, "error", err, "request_id", middleware.GetRequestID(c))
	}

	params = a.pipeline.Sanitize(params)
	a.sendPNG(c, path, params, status, a.pipeline.RenderError(params, err))
}

func (a *Application) sendPNG(c *gin.Context, path string, params render.ImageParams, status int, data []byte) {
	a.observe(path, params, status, len(data))
	c.Header("Cache-Control", "no-cache")
	c.Data(status, "image/png", data)
}

func (a *Application) observe(path string, params render.ImageParams, status, size int) {
	if a.metrics != nil {
		a.metrics.ObserveRender(path, string(params.Target), status, size)
	}
}
