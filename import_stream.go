package wordsdk

import (
	"bufio"
	"bytes"
	"context"
	"io"

	sdkerrors "github.com/wordsdk/wordsdk-go/domain/errors"
	"github.com/wordsdk/wordsdk-go/internal/abi"
)

// importChunkSize is the buffer used to coalesce writes before they are
// handed to the module.
const importChunkSize = 64 * 1024

const streamSource = "stream"

// importStream feeds a document to the module. Closing it commits the
// import.
type importStream struct {
	w   *Worker
	ctx context.Context

	incremental bool
	chunks      *bufio.Writer // incremental modules
	pending     bytes.Buffer  // everything else

	size     int
	err      error // first guest failure, reported by Close
	closed   bool
	closeErr error
}

// CreateImportStream returns a writer for a new document. The document is
// loaded when the writer is closed; Close reports whether the module
// accepted it. Until then the Worker refuses other imports and exports with
// ErrImportPending. While an export stream is open no import stream can be
// created and ErrExportPending is returned.
//
// Modules that support incremental import receive the bytes in 64 KiB
// chunks while they are written; for other modules the stream buffers the
// document and hands it over on Close. Guest failures during writes are kept
// and returned by Close.
//
// ctx is kept for the lifetime of the stream: it governs every chunk handed
// to the module and the commit done by Close. A ctx cancelled before Close
// makes the import fail and leaves the previously loaded document in place.
func (w *Worker) CreateImportStream(ctx context.Context) (io.WriteCloser, error) {
	return w.createImportStream(ctx)
}

func (w *Worker) createImportStream(ctx context.Context) (*importStream, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrWorkerClosed
	}
	if w.importing != nil {
		return nil, ErrStreamInUse
	}
	if w.exporting != nil {
		return nil, ErrExportPending
	}

	s := &importStream{
		w:   w,
		ctx: ctx,
		incremental: w.instance.HasExport(abi.ExportImportBegin) &&
			w.instance.HasExport(abi.ExportImportWrite) &&
			w.instance.HasExport(abi.ExportImportEnd),
	}

	if s.incremental {
		results, err := w.instance.Call(ctx, abi.ExportImportBegin)
		w.flushGuestOutput(ctx)
		if err != nil {
			return nil, &sdkerrors.ImportError{Source: streamSource, Err: err}
		}
		if err := w.importStatus(ctx, streamSource, results); err != nil {
			return nil, err
		}
		s.chunks = bufio.NewWriterSize(guestWriter{s}, importChunkSize)
	}

	w.importing = s
	w.logger.DebugContext(ctx, "import stream opened", "incremental", s.incremental)
	return s, nil
}

// Write implements io.Writer.
func (s *importStream) Write(p []byte) (int, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if s.closed {
		return 0, ErrStreamClosed
	}

	s.size += len(p)
	if s.err != nil {
		return len(p), nil
	}
	if !s.incremental {
		return s.pending.Write(p)
	}
	if _, err := s.chunks.Write(p); err != nil {
		s.err = err
	}
	return len(p), nil
}

// Close implements io.Closer. It flushes pending bytes and loads the
// document. Further calls return the first result.
func (s *importStream) Close() error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if s.closed {
		return s.closeErr
	}
	s.closed = true
	s.w.importing = nil
	s.closeErr = s.commit()
	return s.closeErr
}

func (s *importStream) commit() error {
	w := s.w
	if !s.incremental {
		return w.importLocked(s.ctx, streamSource, s.pending.Bytes())
	}

	defer w.flushGuestOutput(s.ctx)
	if s.err == nil {
		if err := s.chunks.Flush(); err != nil {
			s.err = err
		}
	}
	if s.err != nil {
		return s.err
	}

	results, err := w.instance.Call(s.ctx, abi.ExportImportEnd)
	if err != nil {
		return &sdkerrors.ImportError{Source: streamSource, Err: err}
	}
	if err := w.importStatus(s.ctx, streamSource, results); err != nil {
		return err
	}
	w.documentLoaded(s.ctx, streamSource, s.size)
	return nil
}

// abort discards the stream without loading anything.
func (s *importStream) abort() error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.closeErr = ErrStreamClosed
	s.w.importing = nil
	return nil
}

// guestWriter forwards flushed chunks to the module. It runs with the worker
// lock held by importStream.
type guestWriter struct {
	s *importStream
}

func (g guestWriter) Write(p []byte) (int, error) {
	w := g.s.w
	results, err := abi.CallWithBytes(g.s.ctx, w.instance, abi.ExportImportWrite, p)
	if err != nil {
		return 0, &sdkerrors.ImportError{Source: streamSource, Err: err}
	}
	if err := w.importStatus(g.s.ctx, streamSource, results); err != nil {
		return 0, err
	}
	return len(p), nil
}
