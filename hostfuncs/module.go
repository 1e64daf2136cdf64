package hostfuncs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wordsdk/wordsdk-go/engine"
	"github.com/wordsdk/wordsdk-go/internal/abi"
)

type moduleConfig struct {
	maxRequest uint32
	logger     *slog.Logger
	functions  []engine.HostFunction
}

// ModuleOption configures NewHostModule.
type ModuleOption func(*moduleConfig)

// WithModuleLogger sets the logger used for transport failures.
func WithModuleLogger(logger *slog.Logger) ModuleOption {
	return func(c *moduleConfig) {
		c.logger = logger
	}
}

// WithFunction adds a host function that does not follow the packed
// request and response shape, such as log_message.
func WithFunction(fn engine.HostFunction) ModuleOption {
	return func(c *moduleConfig) {
		c.functions = append(c.functions, fn)
	}
}

// NewHostModule exports every handler of registry as a function of shape
// (i64) -> i64. The argument is the packed pointer and length of the request
// in guest memory; the result is the packed location of the response, which
// is allocated through the guest's "allocate" export and owned by the guest
// from then on. A zero result means the response could not be delivered.
func NewHostModule(registry *Registry, opts ...ModuleOption) engine.HostModule {
	cfg := moduleConfig{maxRequest: DefaultMaxRequestSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return buildModule(registry, cfg)
}

func buildModule(registry *Registry, cfg moduleConfig) engine.HostModule {
	mod := engine.HostModule{Name: abi.HostModuleName}
	if registry != nil {
		for _, name := range registry.Names() {
			mod.Functions = append(mod.Functions, engine.HostFunction{
				Name:    name,
				Params:  []engine.ValueType{engine.ValueTypeI64},
				Results: []engine.ValueType{engine.ValueTypeI64},
				Func: func(ctx context.Context, caller engine.Caller, params []uint64) []uint64 {
					return []uint64{handleRegistryCall(ctx, caller, params[0], registry, name, cfg)}
				},
			})
		}
	}
	mod.Functions = append(mod.Functions, cfg.functions...)
	return mod
}

func handleRegistryCall(ctx context.Context, caller engine.Caller, packed uint64, registry *Registry, name string, cfg moduleConfig) uint64 {
	ptr, length := abi.UnpackPtrLen(packed)

	if length > cfg.maxRequest {
		errMsg := fmt.Sprintf("request size %d exceeds maximum %d bytes", length, cfg.maxRequest)
		cfg.logger.ErrorContext(ctx, "hostfuncs: "+errMsg, "function", name)
		return writeResponse(ctx, caller, NewValidationError(errMsg).ToJSON(), cfg.logger)
	}

	var request []byte
	if ptr != 0 {
		var err error
		if request, err = abi.ReadBytes(caller, ptr, length); err != nil {
			cfg.logger.ErrorContext(ctx, "hostfuncs: failed to read request from guest memory", "function", name, "error", err)
			return writeResponse(ctx, caller, NewInternalError("failed to read request from guest memory").ToJSON(), cfg.logger)
		}
	}

	response, err := registry.Invoke(ctx, name, request)
	if err != nil {
		cfg.logger.ErrorContext(ctx, "hostfuncs: handler invocation failed", "function", name, "error", err)
		return writeResponse(ctx, caller, NewInternalError(err.Error()).ToJSON(), cfg.logger)
	}
	return writeResponse(ctx, caller, response, cfg.logger)
}

func writeResponse(ctx context.Context, caller engine.Caller, data []byte, logger *slog.Logger) uint64 {
	ptr, err := abi.WriteBytes(ctx, caller, data)
	if err != nil {
		logger.ErrorContext(ctx, "hostfuncs: failed to write response to guest memory", "error", err)
		return 0
	}
	return abi.PackPtrLen(ptr, uint32(len(data))) //nolint:gosec // G115: bounded by guest allocation
}
