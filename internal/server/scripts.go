package server

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rmitchellscott/kindling/internal/logging"
	"github.com/rmitchellscott/kindling/internal/scripts"
	"github.com/rmitchellscott/kindling/internal/utils"
	"github.com/rmitchellscott/kindling/internal/version"
)

// scriptQuery selects the route a device script fetches.
type scriptQuery struct {
	Route    string `form:"route" binding:"required"`
	Width    int    `form:"width" binding:"omitempty,gt=0"`
	Height   int    `form:"height" binding:"omitempty,gt=0"`
	Interval int    `form:"interval" binding:"omitempty,gt=0,lt=60"`
}

func (a *Application) script(c *gin.Context) (scripts.Script, bool) {
	var q scriptQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.String(http.StatusBadRequest, "invalid query: %v\n", err)
		return scripts.Script{}, false
	}
	if err := scripts.ValidateRoute(q.Route); err != nil {
		c.String(http.StatusBadRequest, "%v\n", err)
		return scripts.Script{}, false
	}
	return scripts.Script{
		BaseURL:         utils.ResolveBaseURL(a.baseURL, c.Request),
		Route:           q.Route,
		BuildTime:       a.buildTime,
		FetchTime:       version.FormatTimestamp(a.now()),
		Width:           q.Width,
		Height:          q.Height,
		IntervalMinutes: q.Interval,
	}, true
}

func (a *Application) refreshScript(c *gin.Context) {
	a.writeScript(c, scripts.WriteRefreshScript)
}

func (a *Application) installScript(c *gin.Context) {
	a.writeScript(c, scripts.WriteInstallScript)
}

func (a *Application) writeScript(c *gin.Context, write func(io.Writer, scripts.Script) error) {
	c.Header("Cache-Control", "no-cache")
	s, ok := a.script(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, s); err != nil {
		logging.ErrorWithComponent(logging.ComponentScripts, "Failed to render script",
			"path", c.Request.URL.Path, "route", s.Route, "error", err)
		c.String(http.StatusInternalServerError, "failed to render script\n")
		return
	}
	c.Data(http.StatusOK, "text/x-shellscript; charset=utf-8", buf.Bytes())
}

func (a *Application) index(c *gin.Context) {
	var buf bytes.Buffer
	idx := scripts.NewIndex(a.Paths(), version.String(), a.buildTime)
	if err := scripts.WriteIndex(&buf, idx); err != nil {
		logging.ErrorWithComponent(logging.ComponentScripts, "Failed to render index", "error", err)
		c.String(http.StatusInternalServerError, "failed to render index\n")
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
