// Package wasmer runs the conversion module on the native Wasmer runtime.
//
// The runtime is linked through cgo and is only compiled in when the build
// has cgo enabled and the "wasmer" build tag set:
//
//	go build -tags wasmer ./...
//
// Other builds get a provider constructor that always fails with
// EngineUnavailable, so callers can check for the native engine and fall
// back to engine/wazero.
package wasmer

const providerName = "wasmer"

// Compiler selects Wasmer's code generator.
type Compiler string

const (
	Cranelift  Compiler = "cranelift"
	LLVM       Compiler = "llvm"
	Singlepass Compiler = "singlepass"
)

// Config holds configuration for the wasmer provider.
type Config struct {
	// Compiler defaults to Cranelift.
	Compiler Compiler
}

// Option configures a Provider.
type Option func(*Config)

// WithCompiler selects the Wasmer compiler.
func WithCompiler(c Compiler) Option {
	return func(cfg *Config) {
		cfg.Compiler = c
	}
}

func defaultConfig() Config {
	return Config{Compiler: Cranelift}
}

// Available reports whether this build links the native runtime.
func Available() bool {
	return available
}
