package render

import (
	"errors"
	"fmt"
	"strings"
)

// LoadError reports a failed Load phase. Draw is never run after one.
type LoadError struct {
	Handler string
	Err     error
}

func (e *LoadError) Error() string { return fmt.Sprintf("%s.Load: %v", e.Handler, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// DrawError reports a failed (or panicking) Draw phase.
type DrawError struct {
	Handler string
	Err     error
}

func (e *DrawError) Error() string { return fmt.Sprintf("%s.Draw: %v", e.Handler, e.Err) }
func (e *DrawError) Unwrap() error { return e.Err }

// EncodeError means no PNG could be produced at all. It is never turned
// into an error image.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return fmt.Sprintf("encode png: %v", e.Err) }
func (e *EncodeError) Unwrap() error { return e.Err }

// ConfigError is an invalid request parameter.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("invalid %s: %v", e.Field, e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// Chain flattens err into display lines, outermost first. Each wrapping
// layer contributes only the part of its message that precedes its
// cause, so fmt.Errorf("fetch: %w", io.EOF) yields ["fetch", "EOF"].
// Joined errors contribute each of their members in order.
func Chain(err error) []string {
	return appendChain(nil, err)
}

func appendChain(out []string, err error) []string {
	if err == nil {
		return out
	}
	msg := err.Error()

	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		causes := u.Unwrap()
		msgs := make([]string, 0, len(causes))
		for _, c := range causes {
			if c != nil {
				msgs = append(msgs, c.Error())
			}
		}
		if msg != strings.Join(msgs, "\n") {
			// fmt.Errorf with several %w verbs; the message already
			// interleaves every cause.
			return append(out, msg)
		}
		for _, c := range causes {
			out = appendChain(out, c)
		}
		return out

	case interface{ Unwrap() error }:
		inner := u.Unwrap()
		if inner == nil {
			return append(out, msg)
		}
		innerMsg := inner.Error()
		if own, ok := strings.CutSuffix(msg, ": "+innerMsg); ok {
			if own != "" {
				out = append(out, own)
			}
			return appendChain(out, inner)
		}
		if msg == innerMsg {
			return appendChain(out, inner)
		}
		if strings.Contains(msg, innerMsg) {
			return append(out, msg)
		}
		return appendChain(append(out, msg), inner)
	}

	return append(out, msg)
}

// IsConfigError reports whether err carries a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsEncodeError reports whether err carries an *EncodeError.
func IsEncodeError(err error) bool {
	var ee *EncodeError
	return errors.As(err, &ee)
}
