//go:build cgo && wasmer

package wasmer

import (
	"context"
	"fmt"
	"sync"

	"github.com/wasmerio/wasmer-go/wasmer"

	sdkerrors "github.com/wordsdk/wordsdk-go/domain/errors"
	"github.com/wordsdk/wordsdk-go/engine"
)

const available = true

const initializeExport = "_initialize"

// Provider implements engine.Provider on the native Wasmer runtime.
//
// Wasmer stores are not safe for concurrent use, so the provider serialises
// every guest call made through its instances.
type Provider struct {
	mu     sync.Mutex
	store  *wasmer.Store
	module *wasmer.Module
	wasi   bool
}

var _ engine.Provider = (*Provider)(nil)

// NewProvider compiles module with Wasmer and returns a provider for it.
func NewProvider(module []byte, opts ...Option) (*Provider, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	wcfg := wasmer.NewConfig()
	switch cfg.Compiler {
	case LLVM:
		if !wasmer.IsCompilerAvailable(wasmer.LLVM) {
			return nil, &sdkerrors.EngineUnavailableError{Engine: providerName, Err: fmt.Errorf("compiler %s not available", cfg.Compiler)}
		}
		wcfg.UseLLVMCompiler()
	case Singlepass:
		if !wasmer.IsCompilerAvailable(wasmer.SINGLEPASS) {
			return nil, &sdkerrors.EngineUnavailableError{Engine: providerName, Err: fmt.Errorf("compiler %s not available", cfg.Compiler)}
		}
		wcfg.UseSinglepassCompiler()
	default:
		if !wasmer.IsCompilerAvailable(wasmer.CRANELIFT) {
			return nil, &sdkerrors.EngineUnavailableError{Engine: providerName, Err: fmt.Errorf("compiler %s not available", Cranelift)}
		}
		wcfg.UseCraneliftCompiler()
	}

	store := wasmer.NewStore(wasmer.NewEngineWithConfig(wcfg))
	mod, err := wasmer.NewModule(store, module)
	if err != nil {
		return nil, &sdkerrors.ModuleLoadError{Engine: providerName, Err: err}
	}

	return &Provider{
		store:  store,
		module: mod,
		wasi:   wasmer.GetWasiVersion(mod) != wasmer.WASI_VERSION_INVALID,
	}, nil
}

// Name implements engine.Provider.
func (p *Provider) Name() string {
	return providerName
}

// Close implements engine.Provider.
func (p *Provider) Close(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.module.Close()
	p.store.Close()
	return nil
}

// NewInstance implements engine.Provider.
func (p *Provider) NewInstance(ctx context.Context, host engine.HostModule, cfg engine.InstanceConfig) (engine.Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	inst := &instance{provider: p, stdout: cfg.Stdout, stderr: cfg.Stderr}

	imports := wasmer.NewImportObject()
	if p.wasi {
		env, err := wasmer.NewWasiStateBuilder("wordsdk").
			CaptureStdout().
			CaptureStderr().
			Finalize()
		if err != nil {
			return nil, &sdkerrors.ModuleLoadError{Engine: providerName, Err: fmt.Errorf("building WASI state: %w", err)}
		}
		imports, err = env.GenerateImportObject(p.store, p.module)
		if err != nil {
			return nil, &sdkerrors.ModuleLoadError{Engine: providerName, Err: fmt.Errorf("generating WASI imports: %w", err)}
		}
		inst.wasi = env
	}

	if host.Name != "" && len(host.Functions) > 0 {
		externs := make(map[string]wasmer.IntoExtern, len(host.Functions))
		for _, hf := range host.Functions {
			externs[hf.Name] = p.hostFunction(inst, hf)
		}
		imports.Register(host.Name, externs)
	}

	raw, err := wasmer.NewInstance(p.module, imports)
	if err != nil {
		return nil, &sdkerrors.ModuleLoadError{Engine: providerName, Err: fmt.Errorf("instantiating module: %w", err)}
	}
	inst.raw = raw
	inst.ctx = ctx

	if inst.hasExport(initializeExport) {
		inst.inCall = true
		_, err := inst.call(initializeExport, nil)
		inst.inCall = false
		inst.flush()
		if err != nil {
			raw.Close()
			return nil, &sdkerrors.ModuleLoadError{Engine: providerName, Err: fmt.Errorf("calling %s: %w", initializeExport, err)}
		}
	}
	return inst, nil
}

func (p *Provider) hostFunction(inst *instance, hf engine.HostFunction) *wasmer.Function {
	fnType := wasmer.NewFunctionType(valueTypes(hf.Params), valueTypes(hf.Results))
	return wasmer.NewFunction(p.store, fnType, func(args []wasmer.Value) ([]wasmer.Value, error) {
		params := make([]uint64, len(args))
		for i, a := range args {
			params[i] = fromValue(a)
		}
		// Host functions run inside a guest call, so the provider lock is
		// already held and inst.ctx is the context of that call.
		results := hf.Func(inst.ctx, inst, params)
		out := make([]wasmer.Value, len(hf.Results))
		for i, kind := range hf.Results {
			var v uint64
			if i < len(results) {
				v = results[i]
			}
			out[i] = toValue(kind, v)
		}
		return out, nil
	})
}

func valueTypes(types []engine.ValueType) []*wasmer.ValueType {
	kinds := make([]wasmer.ValueKind, len(types))
	for i, t := range types {
		kinds[i] = valueKind(t)
	}
	return wasmer.NewValueTypes(kinds...)
}

func valueKind(t engine.ValueType) wasmer.ValueKind {
	switch t {
	case engine.ValueTypeI64:
		return wasmer.I64
	case engine.ValueTypeF32:
		return wasmer.F32
	case engine.ValueTypeF64:
		return wasmer.F64
	default:
		return wasmer.I32
	}
}
