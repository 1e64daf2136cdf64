// Package engine defines the execution-backend abstraction for the conversion module.
//
// A Provider owns one compiled copy of the module and hands out isolated
// Instances, one per worker. Host functions are described without reference
// to any particular WebAssembly runtime so that the same host module can be
// registered with wazero and with wasmer. Values cross the boundary as
// uint64, using the same encoding as wazero's stack: i32 values occupy the
// low 32 bits, i64 values the full word.
//
// Two providers exist:
//
//	engine/wazero  - pure Go (interpreter by default, optional compiler)
//	engine/wasmer  - native Wasmer runtime via cgo (build tag "wasmer")
package engine

import (
	"context"
	"io"
)

// ValueType is a WebAssembly numeric value type.
type ValueType byte

const (
	ValueTypeI32 ValueType = iota + 1
	ValueTypeI64
	ValueTypeF32
	ValueTypeF64
)

func (v ValueType) String() string {
	switch v {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	default:
		return "unknown"
	}
}

// Memory is a view over a guest's linear memory.
type Memory interface {
	// Read returns a view of length bytes at offset. The view aliases guest
	// memory and is only valid until the next guest call.
	Read(offset, length uint32) ([]byte, bool)

	// Write copies data into guest memory at offset.
	Write(offset uint32, data []byte) bool

	// Size returns the current memory size in bytes.
	Size() uint32
}

// Caller is what a host function sees of the guest that invoked it, and what
// the worker uses to drive the guest.
type Caller interface {
	// Memory returns the guest's exported memory, or nil if it has none.
	Memory() Memory

	// Call invokes an exported guest function.
	Call(ctx context.Context, name string, params ...uint64) ([]uint64, error)
}

// HostFunc implements a host function. params and the returned slice follow
// the uint64 encoding described in the package documentation.
type HostFunc func(ctx context.Context, caller Caller, params []uint64) []uint64

// HostFunction describes one function exported to the guest.
type HostFunction struct {
	Name    string
	Params  []ValueType
	Results []ValueType
	Func    HostFunc
}

// HostModule is a named set of host functions the guest imports.
type HostModule struct {
	Name      string
	Functions []HostFunction
}

// InstanceConfig carries per-instance settings.
type InstanceConfig struct {
	// Stdout and Stderr receive the guest's WASI output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Instance is one isolated, running copy of the module.
type Instance interface {
	Caller

	// HasExport reports whether the guest exports a function called name.
	HasExport(name string) bool

	// Close releases the instance and everything it allocated.
	Close(ctx context.Context) error
}

// Provider runs the conversion module on a specific WebAssembly runtime.
// Implementations are safe for concurrent use.
type Provider interface {
	// Name identifies the backend, e.g. "wazero" or "wasmer".
	Name() string

	// NewInstance instantiates the module with the given host imports.
	NewInstance(ctx context.Context, host HostModule, cfg InstanceConfig) (Instance, error)

	// Close releases compiled code and caches held by the provider.
	Close(ctx context.Context) error
}
