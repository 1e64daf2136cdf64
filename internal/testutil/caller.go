package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/wordsdk/wordsdk-go/engine"
)

// ExportFunc implements a fake guest export.
type ExportFunc func(ctx context.Context, params []uint64) ([]uint64, error)

// FakeMemory is a flat byte slice standing in for guest linear memory.
type FakeMemory struct {
	Data []byte
}

// Read implements engine.Memory.
func (m *FakeMemory) Read(offset, length uint32) ([]byte, bool) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.Data)) {
		return nil, false
	}
	return m.Data[offset:end], true
}

// Write implements engine.Memory.
func (m *FakeMemory) Write(offset uint32, data []byte) bool {
	end := uint64(offset) + uint64(len(data))
	if end > uint64(len(m.Data)) {
		return false
	}
	copy(m.Data[offset:], data)
	return true
}

// Size implements engine.Memory.
func (m *FakeMemory) Size() uint32 {
	return uint32(len(m.Data)) //nolint:gosec // G115: test memory is small
}

// FakeCaller is an in-process engine.Caller with a bump allocator, used to
// exercise ABI and host function code without a WebAssembly runtime.
type FakeCaller struct {
	Mem *FakeMemory

	mu      sync.Mutex
	exports map[string]ExportFunc
	calls   []string
	freed   []uint32
	heap    uint32
}

var _ engine.Caller = (*FakeCaller)(nil)

// NewFakeCaller returns a caller with size bytes of memory and working
// "allocate"/"deallocate" exports.
func NewFakeCaller(size uint32) *FakeCaller {
	c := &FakeCaller{
		Mem:     &FakeMemory{Data: make([]byte, size)},
		exports: make(map[string]ExportFunc),
		heap:    8,
	}
	c.Handle("allocate", func(_ context.Context, params []uint64) ([]uint64, error) {
		n := uint32(params[0]) //nolint:gosec // G115: i32 param
		c.mu.Lock()
		defer c.mu.Unlock()
		if uint64(c.heap)+uint64(n) > uint64(len(c.Mem.Data)) {
			return []uint64{0}, nil
		}
		ptr := c.heap
		c.heap += (n + 7) &^ 7
		return []uint64{uint64(ptr)}, nil
	})
	c.Handle("deallocate", func(_ context.Context, params []uint64) ([]uint64, error) {
		c.mu.Lock()
		c.freed = append(c.freed, uint32(params[0])) //nolint:gosec // G115: i32 param
		c.mu.Unlock()
		return nil, nil
	})
	return c
}

// Handle registers or replaces a fake export.
func (c *FakeCaller) Handle(name string, fn ExportFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exports[name] = fn
}

// Remove deletes a fake export.
func (c *FakeCaller) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.exports, name)
}

// HasExport reports whether name is registered.
func (c *FakeCaller) HasExport(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.exports[name]
	return ok
}

// Memory implements engine.Caller.
func (c *FakeCaller) Memory() engine.Memory {
	if c.Mem == nil {
		return nil
	}
	return c.Mem
}

// Call implements engine.Caller.
func (c *FakeCaller) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	c.mu.Lock()
	fn, ok := c.exports[name]
	c.calls = append(c.calls, name)
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("export %q not found", name)
	}
	return fn(ctx, params)
}

// Calls returns the export names invoked so far, in order.
func (c *FakeCaller) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// Freed returns the pointers passed to "deallocate".
func (c *FakeCaller) Freed() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint32(nil), c.freed...)
}
