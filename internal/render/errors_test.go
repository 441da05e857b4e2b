package render

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

type opaqueError struct{ err error }

func (e opaqueError) Error() string { return "request failed" }
func (e opaqueError) Unwrap() error { return e.err }

func TestChain(t *testing.T) {
	refused := errors.New("connection refused")

	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"nil", nil, nil},
		{"single", io.EOF, []string{"EOF"}},
		{
			"wrapped layers",
			fmt.Errorf("/weather.png: %w", &LoadError{Handler: "weather", Err: fmt.Errorf("fetch forecast: %w", refused)}),
			[]string{"/weather.png", "weather.Load", "fetch forecast", "connection refused"},
		},
		{"transparent wrap", fmt.Errorf("%w", io.EOF), []string{"EOF"}},
		{
			"joined",
			fmt.Errorf("outer: %w", errors.Join(errors.New("a"), errors.New("b"))),
			[]string{"outer", "a", "b"},
		},
		{"message without cause suffix", opaqueError{err: io.EOF}, []string{"request failed", "EOF"}},
		{
			"message embedding cause",
			fmt.Errorf("read (%w) twice", io.EOF),
			[]string{"read (EOF) twice"},
		},
		{
			"multiple %w",
			fmt.Errorf("both: %w and %w", io.EOF, refused),
			[]string{"both: EOF and connection refused"},
		},
		{"draw error", &DrawError{Handler: "label", Err: errors.New("boom")}, []string{"label.Draw", "boom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Chain(tt.err))
		})
	}
}

func TestErrorTypes(t *testing.T) {
	err := fmt.Errorf("/x.png: %w", &ConfigError{Field: "width", Err: errors.New("must be positive, got 0")})
	assert.True(t, IsConfigError(err))
	assert.False(t, IsEncodeError(err))
	assert.Equal(t, "/x.png: invalid width: must be positive, got 0", err.Error())

	enc := &EncodeError{Err: io.ErrShortWrite}
	assert.True(t, IsEncodeError(enc))
	assert.ErrorIs(t, enc, io.ErrShortWrite)
	assert.Equal(t, "encode png: short write", enc.Error())

	load := &LoadError{Handler: "clock", Err: io.EOF}
	assert.ErrorIs(t, load, io.EOF)
}
