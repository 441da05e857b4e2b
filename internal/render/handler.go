package render

import (
	"context"
	"fmt"
	"strings"
)

// Handler produces one page. Load may block on I/O and runs once per
// request; Draw is synchronous and only runs after a successful Load.
// Implementations are shared by concurrent requests and must not keep
// per-request state.
type Handler[D any] interface {
	Load(ctx context.Context) (D, error)
	Draw(s *Surface, params ImageParams, data D) error
}

// Oriented is implemented by handlers whose drawing code assumes portrait
// content. Handlers that don't implement it are Landscape.
type Oriented interface {
	Orientation() Orientation
}

// Drawer is the draw phase of a handler with its loaded data bound.
type Drawer func(s *Surface, params ImageParams) error

// Bound is a handler with its data type erased, ready for registration.
type Bound interface {
	Name() string
	Orientation() Orientation
	Load(ctx context.Context) (Drawer, error)
}

type bound[D any] struct {
	handler     Handler[D]
	name        string
	orientation Orientation
}

// Bind erases the data type of h. The orientation is read once here.
func Bind[D any](h Handler[D]) Bound {
	return &bound[D]{
		handler:     h,
		name:        handlerName(h),
		orientation: OrientationOf(h),
	}
}

func (b *bound[D]) Name() string             { return b.name }
func (b *bound[D]) Orientation() Orientation { return b.orientation }

func (b *bound[D]) Load(ctx context.Context) (Drawer, error) {
	data, err := b.handler.Load(ctx)
	if err != nil {
		return nil, err
	}
	return func(s *Surface, params ImageParams) error {
		return b.handler.Draw(s, params, data)
	}, nil
}

// OrientationOf returns the declared orientation of h, Landscape if none.
func OrientationOf(h any) Orientation {
	if o, ok := h.(Oriented); ok && o.Orientation() == Portrait {
		return Portrait
	}
	return Landscape
}

func handlerName(h any) string {
	if n, ok := h.(interface{ Name() string }); ok && n.Name() != "" {
		return n.Name()
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", h), "*")
}

// HandlerFunc adapts a plain function into a handler without a load phase.
type HandlerFunc func(s *Surface, params ImageParams) error

func (f HandlerFunc) Load(context.Context) (struct{}, error) { return struct{}{}, nil }

func (f HandlerFunc) Draw(s *Surface, params ImageParams, _ struct{}) error {
	return f(s, params)
}
