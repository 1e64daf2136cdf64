package hostfuncs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// panickingFonts fails the way a corrupt font source would.
type panickingFonts struct{ fakeFonts }

func (panickingFonts) LookupStyle(family, _ string) ([]byte, error) {
	panic("font table for " + family + " is corrupt")
}

func TestPanicRecoveryMiddleware(t *testing.T) {
	reg, err := NewRegistry(
		WithMiddleware(PanicRecoveryMiddleware()),
		WithBundle(FontBundle(panickingFonts{goFonts})),
	)
	require.NoError(t, err)

	resp, err := reg.Invoke(context.Background(), FuncFontLookup, []byte(`{"family":"Go"}`))
	require.NoError(t, err)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(resp, &errResp))
	assert.Equal(t, "INTERNAL_ERROR", errResp.Error)
	assert.Equal(t, 500, errResp.Code)
	assert.Equal(t, "panic: font table for Go is corrupt", errResp.Message)

	// Handlers that do not panic are unaffected.
	resp, err = reg.Invoke(context.Background(), FuncFontFamilies, nil)
	require.NoError(t, err)
	assert.Contains(t, string(resp), `"families":["Go"]`)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	reg, err := NewRegistry(
		WithMiddleware(LoggingMiddleware(logger)),
		WithBundle(FontBundle(goFonts)),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), FuncFontLookup, []byte(`{"family":"Go","style":"Bold"}`))
	require.NoError(t, err)
	_, err = reg.Invoke(context.Background(), FuncFontLookup, []byte(`{"family":"Comic Sans"}`))
	require.NoError(t, err)
	_, err = reg.Invoke(context.Background(), FuncFontFamilies, []byte(`{"prefix":"g"}`))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `msg="host function completed" function=font_lookup family=Go style=Bold result=found font_bytes=7`)
	assert.Contains(t, out, `family="Comic Sans" style="" result=NOT_FOUND`)
	assert.Contains(t, out, "function=font_families prefix=g faces=2")
	assert.Contains(t, out, "request_bytes=")
}

func TestLoggingMiddleware_HandlerError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	failing := bundle{FuncFontLookup: func(context.Context, []byte) ([]byte, error) {
		return nil, errors.New("font cache unavailable")
	}}

	reg, err := NewRegistry(WithMiddleware(LoggingMiddleware(logger)), WithBundle(failing))
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), FuncFontLookup, nil)
	require.Error(t, err)
	assert.Contains(t, buf.String(), `level=ERROR msg="host function failed" function=font_lookup`)
	assert.Contains(t, buf.String(), `error="font cache unavailable"`)
}

func TestLoggingMiddleware_OutsideRegistry(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := LoggingMiddleware(logger)(func(context.Context, []byte) ([]byte, error) { return []byte("{}"), nil })

	_, err := h(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "function=unknown")
}
