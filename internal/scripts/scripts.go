package scripts

import (
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io"
	"net/url"
	"regexp"
	"strings"
	"text/template"
)

const (
	RefreshPath = "/kindling/v0.1/refresh-image.sh"
	InstallPath = "/kindling/v0.1/install"
	BlackPath   = "/kindling/v0.1/black.png"
	VersionPath = "/kindling/v0.1/version"

	// DefaultIntervalMinutes is how often installed devices refresh.
	DefaultIntervalMinutes = 15
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

var shellTemplates = template.Must(
	template.New("scripts").
		Funcs(template.FuncMap{"shellQuote": ShellQuote}).
		ParseFS(templateFiles, "templates/refresh-image.sh.tmpl", "templates/install.tmpl"),
)

var indexTemplate = htmltemplate.Must(htmltemplate.ParseFS(templateFiles, "templates/index.html.tmpl"))

var routePattern = regexp.MustCompile(`^/[A-Za-z0-9._~/-]*$`)

// ValidateRoute accepts absolute URL paths made of unreserved characters,
// so that a route can be embedded in a script without escaping concerns.
func ValidateRoute(route string) error {
	if !routePattern.MatchString(route) {
		return fmt.Errorf("invalid route %q", route)
	}
	if strings.Contains(route, "..") {
		return fmt.Errorf("invalid route %q", route)
	}
	return nil
}

// Script describes one generated device script.
type Script struct {
	BaseURL   string
	Route     string
	BuildTime string
	FetchTime string

	// Width and Height are passed on to the image route when positive.
	Width, Height   int
	IntervalMinutes int
}

// ImageURL is the Kindle-targeted URL of the route.
func (s Script) ImageURL() string {
	q := url.Values{}
	q.Set("target", "kindle")
	if s.Width > 0 {
		q.Set("width", fmt.Sprint(s.Width))
	}
	if s.Height > 0 {
		q.Set("height", fmt.Sprint(s.Height))
	}
	return s.BaseURL + s.Route + "?" + q.Encode()
}

// ScriptURL is where the installer downloads the refresh script from.
func (s Script) ScriptURL() string {
	q := url.Values{}
	q.Set("route", s.Route)
	if s.Width > 0 {
		q.Set("width", fmt.Sprint(s.Width))
	}
	if s.Height > 0 {
		q.Set("height", fmt.Sprint(s.Height))
	}
	return s.BaseURL + RefreshPath + "?" + q.Encode()
}

func (s Script) validate() (Script, error) {
	if err := ValidateRoute(s.Route); err != nil {
		return s, err
	}
	if s.IntervalMinutes <= 0 || s.IntervalMinutes > 59 {
		s.IntervalMinutes = DefaultIntervalMinutes
	}
	s.BaseURL = strings.TrimSuffix(s.BaseURL, "/")
	return s, nil
}

// WriteRefreshScript renders refresh-image.sh.
func WriteRefreshScript(w io.Writer, s Script) error {
	s, err := s.validate()
	if err != nil {
		return err
	}
	return shellTemplates.ExecuteTemplate(w, "refresh-image.sh.tmpl", s)
}

// WriteInstallScript renders the installer.
func WriteInstallScript(w io.Writer, s Script) error {
	s, err := s.validate()
	if err != nil {
		return err
	}
	return shellTemplates.ExecuteTemplate(w, "install.tmpl", s)
}

// IndexRoute is one row of the index page.
type IndexRoute struct {
	Path       string
	RefreshURL string
	InstallURL string
}

// Index is the data behind the HTML index page.
type Index struct {
	Routes    []IndexRoute
	Version   string
	BuildTime string
}

// NewIndex lists paths with links to their device scripts.
func NewIndex(paths []string, version, buildTime string) Index {
	idx := Index{Version: version, BuildTime: buildTime}
	for _, p := range paths {
		q := url.Values{"route": {p}}.Encode()
		idx.Routes = append(idx.Routes, IndexRoute{
			Path:       p,
			RefreshURL: RefreshPath + "?" + q,
			InstallURL: InstallPath + "?" + q,
		})
	}
	return idx
}

// WriteIndex renders the HTML index page.
func WriteIndex(w io.Writer, idx Index) error {
	return indexTemplate.ExecuteTemplate(w, "index.html.tmpl", idx)
}

// ShellQuote wraps s in single quotes for POSIX shells.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
