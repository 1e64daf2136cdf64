package hostfuncs

import (
	"bytes"
	"sync"
)

// DefaultMaxRequestSize caps a font_lookup or font_families request read
// from guest memory (1 MiB).
const DefaultMaxRequestSize = 1 << 20

// DefaultMaxOutputSize caps the module's stdout and stderr kept between two
// guest calls (64 KiB each).
const DefaultMaxOutputSize = 64 << 10

// BoundedBuffer collects guest output up to a fixed size. Writes past the
// limit are dropped and remembered until the next Drain. It is safe for
// concurrent use.
type BoundedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

// NewBoundedBuffer returns a buffer holding at most limit bytes.
func NewBoundedBuffer(limit int) *BoundedBuffer {
	return &BoundedBuffer{limit: limit}
}

// Write implements io.Writer. It never fails, so the guest's WASI write
// always succeeds.
func (b *BoundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	keep := min(len(p), max(b.limit-b.buf.Len(), 0))
	b.buf.Write(p[:keep])
	if keep < len(p) {
		b.truncated = true
	}
	return len(p), nil
}

// Drain empties the buffer. It returns what was kept and whether anything
// was dropped since the previous Drain.
func (b *BoundedBuffer) Drain() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out, truncated := b.buf.String(), b.truncated
	b.buf.Reset()
	b.truncated = false
	return out, truncated
}
