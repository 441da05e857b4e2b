package pages

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rmitchellscott/kindling/internal/render"
	"github.com/rmitchellscott/kindling/internal/utils"
)

// Deps are the shared collaborators handed to page factories.
type Deps struct {
	HTTPClient *http.Client
	URLConfig  utils.URLValidationConfig
	Capturer   Capturer
	Now        func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Factory builds a handler from a page definition.
type Factory func(def Definition, deps Deps) (render.Bound, error)

// registry holds all registered page kinds
var (
	registry = make(map[string]Factory)
	mutex    sync.RWMutex
)

// Register adds a page kind to the registry
func Register(kind string, factory Factory) error {
	mutex.Lock()
	defer mutex.Unlock()

	if kind == "" {
		return fmt.Errorf("page kind cannot be empty")
	}
	if _, exists := registry[kind]; exists {
		return fmt.Errorf("page kind '%s' already registered", kind)
	}

	registry[kind] = factory
	return nil
}

func mustRegister(kind string, factory Factory) {
	if err := Register(kind, factory); err != nil {
		panic(err)
	}
}

// Get retrieves a factory by kind
func Get(kind string) (Factory, bool) {
	mutex.RLock()
	defer mutex.RUnlock()

	factory, exists := registry[kind]
	return factory, exists
}

// Kinds returns a sorted list of all page kinds
func Kinds() []string {
	mutex.RLock()
	defer mutex.RUnlock()

	kinds := make([]string, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}

	sort.Strings(kinds)
	return kinds
}

// Build instantiates the handler described by def.
func Build(def Definition, deps Deps) (render.Bound, error) {
	factory, ok := Get(def.Kind)
	if !ok {
		return nil, fmt.Errorf("page %s: unknown kind %q (known: %v)", def.Path, def.Kind, Kinds())
	}
	h, err := factory(def, deps)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", def.Path, err)
	}
	return h, nil
}

// Page is a built handler and the route it is served on.
type Page struct {
	Path    string
	Handler render.Bound
}

// BuildAll instantiates every definition in order.
func BuildAll(defs []Definition, deps Deps) ([]Page, error) {
	out := make([]Page, 0, len(defs))
	for _, def := range defs {
		h, err := Build(def, deps)
		if err != nil {
			return nil, err
		}
		out = append(out, Page{Path: def.Path, Handler: h})
	}
	return out, nil
}
