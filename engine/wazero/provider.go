// Package wazero runs the conversion module on the pure-Go wazero runtime.
//
// The provider compiles the module once and shares the compiled code between
// instances through a wazero compilation cache. Every instance gets its own
// runtime so host functions, WASI state and linear memory are never shared
// between workers.
package wazero

import (
	"context"
	"fmt"
	"io"
	goruntime "runtime"
	"slices"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	sdkerrors "github.com/wordsdk/wordsdk-go/domain/errors"
	"github.com/wordsdk/wordsdk-go/engine"
)

const (
	interpreterName = "wazero"
	compilerName    = "wazero-compiler"

	instanceModuleName = "wordsdk"
	initializeExport   = "_initialize"
)

// Config holds configuration for the wazero provider.
type Config struct {
	// Compiler selects wazero's optimizing compiler instead of the interpreter.
	Compiler bool

	// MemoryLimitPages caps guest memory in 64KiB pages. 0 keeps wazero's default.
	MemoryLimitPages uint32
}

// Option configures a Provider.
type Option func(*Config)

// WithCompiler selects the compiler backend. Construction fails with
// EngineUnavailable on platforms wazero cannot compile for.
func WithCompiler() Option {
	return func(c *Config) {
		c.Compiler = true
	}
}

// WithMemoryLimitPages caps guest memory (64KiB pages).
func WithMemoryLimitPages(pages uint32) Option {
	return func(c *Config) {
		c.MemoryLimitPages = pages
	}
}

// Provider implements engine.Provider on wazero.
type Provider struct {
	cfg    Config
	name   string
	module []byte
	cache  wazero.CompilationCache
}

var _ engine.Provider = (*Provider)(nil)

// NewProvider compiles module and returns a provider for it.
func NewProvider(ctx context.Context, module []byte, opts ...Option) (*Provider, error) {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	name := interpreterName
	if cfg.Compiler {
		name = compilerName
		if !compilerSupported(goruntime.GOOS, goruntime.GOARCH) {
			return nil, &sdkerrors.EngineUnavailableError{
				Engine: name,
				Err:    fmt.Errorf("compiler not supported on %s/%s", goruntime.GOOS, goruntime.GOARCH),
			}
		}
	}

	p := &Provider{
		cfg:    cfg,
		name:   name,
		module: slices.Clone(module),
		cache:  wazero.NewCompilationCache(),
	}

	// Compile eagerly so malformed modules surface at construction time.
	rt := p.newRuntime(ctx)
	defer rt.Close(ctx)
	if _, err := rt.CompileModule(ctx, p.module); err != nil {
		_ = p.cache.Close(ctx)
		return nil, &sdkerrors.ModuleLoadError{Engine: name, Err: err}
	}
	return p, nil
}

// Name implements engine.Provider.
func (p *Provider) Name() string {
	return p.name
}

// Close implements engine.Provider.
func (p *Provider) Close(ctx context.Context) error {
	return p.cache.Close(ctx)
}

// NewInstance implements engine.Provider.
func (p *Provider) NewInstance(ctx context.Context, host engine.HostModule, cfg engine.InstanceConfig) (engine.Instance, error) {
	rt := p.newRuntime(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, &sdkerrors.ModuleLoadError{Engine: p.name, Err: fmt.Errorf("instantiating WASI: %w", err)}
	}
	if err := registerHostModule(ctx, rt, host); err != nil {
		rt.Close(ctx)
		return nil, &sdkerrors.ModuleLoadError{Engine: p.name, Err: fmt.Errorf("registering host module %q: %w", host.Name, err)}
	}

	compiled, err := rt.CompileModule(ctx, p.module)
	if err != nil {
		rt.Close(ctx)
		return nil, &sdkerrors.ModuleLoadError{Engine: p.name, Err: err}
	}

	modCfg := wazero.NewModuleConfig().
		WithName(instanceModuleName).
		WithStartFunctions().
		WithStdout(orDiscard(cfg.Stdout)).
		WithStderr(orDiscard(cfg.Stderr))

	mod, err := rt.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		rt.Close(ctx)
		return nil, &sdkerrors.ModuleLoadError{Engine: p.name, Err: fmt.Errorf("instantiating module: %w", err)}
	}

	if init := mod.ExportedFunction(initializeExport); init != nil {
		if _, err := init.Call(ctx); err != nil {
			rt.Close(ctx)
			return nil, &sdkerrors.ModuleLoadError{Engine: p.name, Err: fmt.Errorf("calling %s: %w", initializeExport, err)}
		}
	}

	return &instance{runtime: rt, module: mod}, nil
}

func (p *Provider) newRuntime(ctx context.Context) wazero.Runtime {
	var rc wazero.RuntimeConfig
	if p.cfg.Compiler {
		rc = wazero.NewRuntimeConfigCompiler()
	} else {
		rc = wazero.NewRuntimeConfigInterpreter()
	}
	rc = rc.WithCompilationCache(p.cache)
	if p.cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(p.cfg.MemoryLimitPages)
	}
	return wazero.NewRuntimeWithConfig(ctx, rc)
}

// compilerSupported mirrors the platforms wazero's compiler targets.
func compilerSupported(goos, goarch string) bool {
	if goarch != "amd64" && goarch != "arm64" {
		return false
	}
	switch goos {
	case "linux", "darwin", "windows", "freebsd", "netbsd", "dragonfly", "solaris", "illumos":
		return true
	default:
		return false
	}
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
