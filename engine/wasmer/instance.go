//go:build cgo && wasmer

package wasmer

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/wordsdk/wordsdk-go/engine"
)

type instance struct {
	provider *Provider
	raw      *wasmer.Instance
	wasi     *wasmer.WasiEnvironment
	stdout   io.Writer
	stderr   io.Writer

	// ctx is the context of the guest call in flight; inCall is set while
	// the provider lock is held on this instance's behalf.
	ctx    context.Context
	inCall bool
}

func (i *instance) Memory() engine.Memory {
	mem, err := i.raw.Exports.GetMemory("memory")
	if err != nil {
		return nil
	}
	return memory{mem: mem}
}

// Call implements engine.Caller. Calls made from host functions arrive with
// the provider lock already held and are dispatched directly.
func (i *instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	if i.inCall {
		return i.call(name, params)
	}

	i.provider.mu.Lock()
	defer i.provider.mu.Unlock()

	i.ctx = ctx
	i.inCall = true
	defer func() {
		i.inCall = false
		i.flush()
	}()
	return i.call(name, params)
}

func (i *instance) HasExport(name string) bool {
	return i.hasExport(name)
}

func (i *instance) Close(context.Context) error {
	i.provider.mu.Lock()
	defer i.provider.mu.Unlock()
	i.raw.Close()
	return nil
}

func (i *instance) hasExport(name string) bool {
	_, err := i.raw.Exports.GetRawFunction(name)
	return err == nil
}

func (i *instance) call(name string, params []uint64) ([]uint64, error) {
	fn, err := i.raw.Exports.GetRawFunction(name)
	if err != nil {
		return nil, fmt.Errorf("export %q not found", name)
	}

	paramTypes := fn.Type().Params()
	if len(paramTypes) != len(params) {
		return nil, fmt.Errorf("export %q takes %d params, got %d", name, len(paramTypes), len(params))
	}
	args := make([]any, len(params))
	for idx, vt := range paramTypes {
		args[idx] = toArg(vt.Kind(), params[idx])
	}

	result, err := fn.Call(args...)
	if err != nil {
		return nil, err
	}
	return fromResult(result), nil
}

// flush forwards captured WASI output.
func (i *instance) flush() {
	if i.wasi == nil {
		return
	}
	if out := i.wasi.ReadStdout(); len(out) > 0 && i.stdout != nil {
		_, _ = i.stdout.Write(out)
	}
	if out := i.wasi.ReadStderr(); len(out) > 0 && i.stderr != nil {
		_, _ = i.stderr.Write(out)
	}
}

type memory struct {
	mem *wasmer.Memory
}

func (m memory) Read(offset, length uint32) ([]byte, bool) {
	data := m.mem.Data()
	end := uint64(offset) + uint64(length)
	if end > uint64(len(data)) {
		return nil, false
	}
	return data[offset:end], true
}

func (m memory) Write(offset uint32, b []byte) bool {
	data := m.mem.Data()
	end := uint64(offset) + uint64(len(b))
	if end > uint64(len(data)) {
		return false
	}
	copy(data[offset:end], b)
	return true
}

func (m memory) Size() uint32 {
	return uint32(m.mem.DataSize()) //nolint:gosec // G115: wasm32 memory fits in 32 bits
}

func toArg(kind wasmer.ValueKind, v uint64) any {
	switch kind {
	case wasmer.I64:
		return int64(v) //nolint:gosec // G115: bit pattern reinterpretation
	case wasmer.F32:
		return math.Float32frombits(uint32(v)) //nolint:gosec // G115: low 32 bits carry the value
	case wasmer.F64:
		return math.Float64frombits(v)
	default:
		return int32(uint32(v)) //nolint:gosec // G115: low 32 bits carry the value
	}
}

func toValue(t engine.ValueType, v uint64) wasmer.Value {
	switch t {
	case engine.ValueTypeI64:
		return wasmer.NewI64(int64(v)) //nolint:gosec // G115: bit pattern reinterpretation
	case engine.ValueTypeF32:
		return wasmer.NewF32(math.Float32frombits(uint32(v))) //nolint:gosec // G115: low 32 bits carry the value
	case engine.ValueTypeF64:
		return wasmer.NewF64(math.Float64frombits(v))
	default:
		return wasmer.NewI32(int32(uint32(v))) //nolint:gosec // G115: low 32 bits carry the value
	}
}

func fromValue(v wasmer.Value) uint64 {
	switch v.Kind() {
	case wasmer.I64:
		return uint64(v.I64()) //nolint:gosec // G115: bit pattern reinterpretation
	case wasmer.F32:
		return uint64(math.Float32bits(v.F32()))
	case wasmer.F64:
		return math.Float64bits(v.F64())
	default:
		return uint64(uint32(v.I32())) //nolint:gosec // G115: bit pattern reinterpretation
	}
}

func fromResult(result any) []uint64 {
	switch r := result.(type) {
	case nil:
		return nil
	case []any:
		out := make([]uint64, 0, len(r))
		for _, v := range r {
			out = append(out, fromScalar(v))
		}
		return out
	default:
		return []uint64{fromScalar(r)}
	}
}

func fromScalar(v any) uint64 {
	switch x := v.(type) {
	case int32:
		return uint64(uint32(x)) //nolint:gosec // G115: bit pattern reinterpretation
	case int64:
		return uint64(x) //nolint:gosec // G115: bit pattern reinterpretation
	case float32:
		return uint64(math.Float32bits(x))
	case float64:
		return math.Float64bits(x)
	default:
		return 0
	}
}
