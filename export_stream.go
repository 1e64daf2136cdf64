package wordsdk

import (
	"context"
	"io"

	sdkerrors "github.com/wordsdk/wordsdk-go/domain/errors"
)

// exportStream serves a rendered PDF straight out of guest memory.
type exportStream struct {
	w   *Worker
	ctx context.Context

	rendered bool
	ptr      uint32
	size     uint32
	off      uint32
	closed   bool
}

// CreateExportPDFStream returns a reader over the PDF of the loaded
// document. Rendering happens on the first Read. Until the reader is closed
// the Worker refuses imports with ErrExportPending, so the PDF always
// belongs to the document loaded when the stream was created. The caller
// must Close the reader to release the module's buffer.
//
// ctx governs the rendering done by the first Read, so cancelling it before
// then fails the Read. Close releases the buffer even after ctx is done.
func (w *Worker) CreateExportPDFStream(ctx context.Context) (io.ReadCloser, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkExportable(); err != nil {
		return nil, err
	}
	if w.exporting != nil {
		return nil, ErrStreamInUse
	}

	s := &exportStream{w: w, ctx: ctx}
	w.exporting = s
	return s, nil
}

// Read implements io.Reader.
func (s *exportStream) Read(p []byte) (int, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if s.closed {
		return 0, ErrStreamClosed
	}

	if !s.rendered {
		ptr, size, err := s.w.renderLocked(s.ctx)
		if err != nil {
			return 0, err
		}
		s.ptr, s.size, s.rendered = ptr, size, true
	}

	if s.off >= s.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	n := min(uint32(len(p)), s.size-s.off) //nolint:gosec // G115: clamped to the buffer size
	view, ok := s.w.instance.Memory().Read(s.ptr+s.off, n)
	if !ok {
		return 0, &sdkerrors.RenderError{Message: "pdf buffer out of guest memory range"}
	}
	copy(p, view)
	s.off += n
	return int(n), nil
}

// Close implements io.Closer.
func (s *exportStream) Close() error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.w.exporting == s {
		s.w.exporting = nil
	}
	if s.rendered && !s.w.closed {
		s.w.release(context.WithoutCancel(s.ctx), s.ptr, s.size)
	}
	return nil
}
