package hostfuncs

import (
	"context"
	"log/slog"
)

// Call describes one host function invocation by the module. Handlers attach
// what they resolved with Note so that LoggingMiddleware can report it next
// to the timing of the call.
type Call struct {
	Function string

	notes []slog.Attr
}

type callKey struct{}

func withCall(ctx context.Context, c *Call) context.Context {
	return context.WithValue(ctx, callKey{}, c)
}

// CallFrom returns the invocation ctx belongs to, or nil outside a host
// function call.
func CallFrom(ctx context.Context) *Call {
	c, _ := ctx.Value(callKey{}).(*Call)
	return c
}

// Note records attributes of the call. It is a no-op on a nil Call, so
// handlers can be run directly in tests.
func (c *Call) Note(attrs ...slog.Attr) {
	if c == nil {
		return
	}
	c.notes = append(c.notes, attrs...)
}

// Notes returns the recorded attributes in order.
func (c *Call) Notes() []slog.Attr {
	if c == nil {
		return nil
	}
	return append([]slog.Attr(nil), c.notes...)
}
