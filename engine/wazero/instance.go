package wazero

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wordsdk/wordsdk-go/engine"
)

type instance struct {
	runtime wazero.Runtime
	module  api.Module
}

func (i *instance) Memory() engine.Memory {
	return memoryOf(i.module)
}

func (i *instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	return callExport(ctx, i.module, name, params)
}

func (i *instance) HasExport(name string) bool {
	return i.module.ExportedFunction(name) != nil
}

func (i *instance) Close(ctx context.Context) error {
	return i.runtime.Close(ctx)
}

// moduleCaller exposes the calling guest to host functions.
type moduleCaller struct {
	mod api.Module
}

func (c moduleCaller) Memory() engine.Memory {
	return memoryOf(c.mod)
}

func (c moduleCaller) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	return callExport(ctx, c.mod, name, params)
}

func memoryOf(mod api.Module) engine.Memory {
	// api.Memory already satisfies engine.Memory; avoid wrapping a nil interface.
	if mem := mod.Memory(); mem != nil {
		return mem
	}
	return nil
}

func callExport(ctx context.Context, mod api.Module, name string, params []uint64) ([]uint64, error) {
	fn := mod.ExportedFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("export %q not found", name)
	}
	return fn.Call(ctx, params...)
}

// registerHostModule instantiates host as a wazero host module.
func registerHostModule(ctx context.Context, rt wazero.Runtime, host engine.HostModule) error {
	if host.Name == "" || len(host.Functions) == 0 {
		return nil
	}

	builder := rt.NewHostModuleBuilder(host.Name)
	for _, hf := range host.Functions {
		fn := hf // capture for closure
		nparams := len(fn.Params)
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				params := make([]uint64, nparams)
				copy(params, stack[:nparams])
				results := fn.Func(ctx, moduleCaller{mod: mod}, params)
				copy(stack, results)
			}), valueTypes(fn.Params), valueTypes(fn.Results)).
			Export(fn.Name)
	}

	_, err := builder.Instantiate(ctx)
	return err
}

func valueTypes(types []engine.ValueType) []api.ValueType {
	out := make([]api.ValueType, len(types))
	for i, t := range types {
		switch t {
		case engine.ValueTypeI32:
			out[i] = api.ValueTypeI32
		case engine.ValueTypeI64:
			out[i] = api.ValueTypeI64
		case engine.ValueTypeF32:
			out[i] = api.ValueTypeF32
		case engine.ValueTypeF64:
			out[i] = api.ValueTypeF64
		}
	}
	return out
}
