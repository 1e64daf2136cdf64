// Package abi implements the host side of the conversion module's calling convention.
//
// Byte payloads cross the boundary as guest pointers. The host asks the
// guest to reserve memory through its "allocate" export, copies data in, and
// passes (ptr, len) as two i32 values. Results that carry bytes come back as
// a single i64 with the pointer in the high 32 bits and the length in the low
// 32 bits; a zero result means "no data".
package abi

import (
	"context"
	"fmt"

	"github.com/wordsdk/wordsdk-go/engine"
)

// PtrHighBits is the shift applied to the pointer half of a packed value.
const PtrHighBits = 32

// Guest exports.
const (
	ExportMemory      = "memory"
	ExportAllocate    = "allocate"
	ExportDeallocate  = "deallocate"
	ExportInit        = "wordsdk_init"
	ExportImport      = "wordsdk_import"
	ExportImportBegin = "wordsdk_import_begin"
	ExportImportWrite = "wordsdk_import_write"
	ExportImportEnd   = "wordsdk_import_end"
	ExportPDF         = "wordsdk_export_pdf"
	ExportLastError   = "wordsdk_last_error"
)

// HostModuleName is the import module name the guest expects host functions under.
const HostModuleName = "wordsdk_host"

// Status is a result code returned by the module's import and init exports.
type Status uint32

const (
	StatusOK Status = iota
	StatusMalformed
	StatusUnsupported
	StatusNoDocument
	StatusInternal
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusMalformed:
		return "malformed document"
	case StatusUnsupported:
		return "unsupported document"
	case StatusNoDocument:
		return "no document"
	case StatusInternal:
		return "internal error"
	default:
		return fmt.Sprintf("status %d", uint32(s))
	}
}

// PackPtrLen packs a pointer and length into a single uint64.
func PackPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << PtrHighBits) | uint64(length)
}

// UnpackPtrLen unpacks a uint64 into its pointer and length.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> PtrHighBits) //nolint:gosec // G115: packed format stores 32-bit values
	length = uint32(packed)             //nolint:gosec // G115: packed format stores 32-bit values
	return ptr, length
}

// Allocate reserves size bytes in guest memory.
func Allocate(ctx context.Context, c engine.Caller, size uint32) (uint32, error) {
	results, err := c.Call(ctx, ExportAllocate, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("calling guest %s: %w", ExportAllocate, err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("guest %s returned no results", ExportAllocate)
	}
	ptr := uint32(results[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit
	if ptr == 0 && size > 0 {
		return 0, fmt.Errorf("guest %s(%d) returned null", ExportAllocate, size)
	}
	return ptr, nil
}

// Deallocate returns memory obtained from Allocate or from a packed result.
func Deallocate(ctx context.Context, c engine.Caller, ptr, size uint32) error {
	if ptr == 0 {
		return nil
	}
	if _, err := c.Call(ctx, ExportDeallocate, uint64(ptr), uint64(size)); err != nil {
		return fmt.Errorf("calling guest %s: %w", ExportDeallocate, err)
	}
	return nil
}

// WriteBytes allocates guest memory for data and copies it in.
func WriteBytes(ctx context.Context, c engine.Caller, data []byte) (uint32, error) {
	if len(data) == 0 {
		return 0, nil
	}
	mem := c.Memory()
	if mem == nil {
		return 0, fmt.Errorf("guest does not export %q", ExportMemory)
	}
	ptr, err := Allocate(ctx, c, uint32(len(data))) //nolint:gosec // G115: documents are bounded by the 4GiB WASM32 address space
	if err != nil {
		return 0, err
	}
	if !mem.Write(ptr, data) {
		return 0, fmt.Errorf("writing %d bytes at 0x%x: out of range", len(data), ptr)
	}
	return ptr, nil
}

// ReadBytes copies length bytes at ptr out of guest memory.
func ReadBytes(c engine.Caller, ptr, length uint32) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	mem := c.Memory()
	if mem == nil {
		return nil, fmt.Errorf("guest does not export %q", ExportMemory)
	}
	view, ok := mem.Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("reading %d bytes at 0x%x: out of range", length, ptr)
	}
	out := make([]byte, length)
	copy(out, view)
	return out, nil
}

// ReadPacked copies the bytes described by a packed result.
func ReadPacked(c engine.Caller, packed uint64) ([]byte, error) {
	ptr, length := UnpackPtrLen(packed)
	if ptr == 0 {
		return nil, nil
	}
	return ReadBytes(c, ptr, length)
}

// CallWithBytes copies input into the guest, calls name(ptr, len) and frees
// the input afterwards. It returns the raw results of the call.
func CallWithBytes(ctx context.Context, c engine.Caller, name string, input []byte) ([]uint64, error) {
	ptr, err := WriteBytes(ctx, c, input)
	if err != nil {
		return nil, err
	}
	size := uint32(len(input)) //nolint:gosec // G115: bounded by WriteBytes
	results, callErr := c.Call(ctx, name, uint64(ptr), uint64(size))
	if err := Deallocate(ctx, c, ptr, size); err != nil && callErr == nil {
		callErr = err
	}
	if callErr != nil {
		return nil, callErr
	}
	return results, nil
}

// StatusOf interprets the first result of a call as a Status.
func StatusOf(results []uint64) Status {
	if len(results) == 0 {
		return StatusOK
	}
	return Status(uint32(results[0])) //nolint:gosec // G115: i32 result
}

// LastError fetches the module's last error message, if it exports one.
// Any failure to fetch the message yields "".
func LastError(ctx context.Context, c engine.Caller, hasExport func(string) bool) string {
	if hasExport != nil && !hasExport(ExportLastError) {
		return ""
	}
	results, err := c.Call(ctx, ExportLastError)
	if err != nil || len(results) == 0 {
		return ""
	}
	msg, err := ReadPacked(c, results[0])
	if err != nil {
		return ""
	}
	return string(msg)
}
