package hostfuncs

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// Registry maps host function names to byte handlers, each already wrapped
// in the configured middleware. It does not change after NewRegistry.
type Registry struct {
	handlers map[string]ByteHandler
}

type registryBuilder struct {
	handlers   map[string]ByteHandler
	middleware []Middleware
	err        error
}

// RegistryOption configures NewRegistry.
type RegistryOption func(*registryBuilder)

// NewRegistry collects the handlers of every bundle and wraps them in the
// middleware, first listed outermost. Two handlers with one name are an
// error.
//
//	reg, err := hostfuncs.NewRegistry(
//	    hostfuncs.WithMiddleware(hostfuncs.PanicRecoveryMiddleware()),
//	    hostfuncs.WithBundle(hostfuncs.FontBundle(fonts.Default())),
//	)
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	b := &registryBuilder{handlers: make(map[string]ByteHandler)}
	for _, opt := range opts {
		opt(b)
	}
	if b.err != nil {
		return nil, b.err
	}

	r := &Registry{handlers: make(map[string]ByteHandler, len(b.handlers))}
	for name, h := range b.handlers {
		for _, mw := range slices.Backward(b.middleware) {
			h = mw(h)
		}
		r.handlers[name] = h
	}
	return r, nil
}

// Invoke runs the handler registered as name. The handler sees a Call for
// name on its context. Unknown names get a NOT_FOUND response.
func (r *Registry) Invoke(ctx context.Context, name string, payload []byte) ([]byte, error) {
	h, ok := r.handlers[name]
	if !ok {
		return NewNotFoundError("host function " + name).ToJSON(), nil
	}
	return h(withCall(ctx, &Call{Function: name}), payload)
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.handlers))
}

// WithBundle registers every handler of bundle.
func WithBundle(bundle HostFuncBundle) RegistryOption {
	return func(b *registryBuilder) {
		for name, h := range bundle.Handlers() {
			b.add(name, h)
		}
	}
}

// WithMiddleware appends middleware.
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}

func (b *registryBuilder) add(name string, h ByteHandler) {
	if b.err != nil {
		return
	}
	switch {
	case name == "":
		b.err = fmt.Errorf("hostfuncs: handler name cannot be empty")
	case b.handlers[name] != nil:
		b.err = fmt.Errorf("hostfuncs: duplicate handler name: %q", name)
	default:
		b.handlers[name] = h
	}
}
