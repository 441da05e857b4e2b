package pages

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rmitchellscott/kindling/internal/config"
	"github.com/rmitchellscott/kindling/internal/render"
)

// Definition describes one configured page. Fields not used by a kind
// are ignored by it.
type Definition struct {
	Path        string `yaml:"path"`
	Kind        string `yaml:"kind"`
	Orientation string `yaml:"orientation,omitempty"`

	Text     string  `yaml:"text,omitempty"`
	FontSize float64 `yaml:"font_size,omitempty"`

	Timezone string `yaml:"timezone,omitempty"`
	Format   string `yaml:"format,omitempty"`

	URL  string `yaml:"url,omitempty"`
	Fit  string `yaml:"fit,omitempty"`
	Wait string `yaml:"wait,omitempty"`

	ViewportWidth  int `yaml:"viewport_width,omitempty"`
	ViewportHeight int `yaml:"viewport_height,omitempty"`
}

type definitionsFile struct {
	Pages []Definition `yaml:"pages"`
}

// orientation parses the definition's orientation, defaulting to landscape.
func (d Definition) orientation() (render.Orientation, error) {
	return render.ParseOrientation(d.Orientation)
}

func (d Definition) wait(def time.Duration) (time.Duration, error) {
	if d.Wait == "" {
		return def, nil
	}
	w, err := config.ParseDuration(d.Wait)
	if err != nil {
		return 0, fmt.Errorf("invalid wait %q: %w", d.Wait, err)
	}
	return w, nil
}

// ParseDefinitions decodes a YAML page list. Unknown keys are rejected.
func ParseDefinitions(r io.Reader) ([]Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file definitionsFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse page definitions: %w", err)
	}
	if err := ValidateDefinitions(file.Pages); err != nil {
		return nil, err
	}
	return file.Pages, nil
}

// LoadDefinitions reads path. A missing file yields no pages.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read page definitions: %w", err)
	}
	return ParseDefinitions(bytes.NewReader(data))
}

// ValidateDefinitions checks paths, kinds and orientations.
func ValidateDefinitions(defs []Definition) error {
	seen := make(map[string]bool, len(defs))
	for i, def := range defs {
		if !strings.HasPrefix(def.Path, "/") {
			return fmt.Errorf("page %d: path %q must start with /", i, def.Path)
		}
		if strings.HasPrefix(def.Path, ReservedPrefix) {
			return fmt.Errorf("page %s: paths under %s are reserved", def.Path, ReservedPrefix)
		}
		if seen[def.Path] {
			return fmt.Errorf("page %s: duplicate path", def.Path)
		}
		seen[def.Path] = true

		if _, ok := Get(def.Kind); !ok {
			return fmt.Errorf("page %s: unknown kind %q (known: %v)", def.Path, def.Kind, Kinds())
		}
		if _, err := def.orientation(); err != nil {
			return fmt.Errorf("page %s: %w", def.Path, err)
		}
	}
	return nil
}

// ReservedPrefix holds the built-in routes.
const ReservedPrefix = "/kindling/"
