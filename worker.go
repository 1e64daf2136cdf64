package wordsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	sdkerrors "github.com/wordsdk/wordsdk-go/domain/errors"
	"github.com/wordsdk/wordsdk-go/engine"
	"github.com/wordsdk/wordsdk-go/hostfuncs"
	"github.com/wordsdk/wordsdk-go/internal/abi"
)

const pdfMagic = "%PDF-"

// requiredExports are the module exports a Worker cannot run without.
var requiredExports = []string{
	abi.ExportAllocate,
	abi.ExportDeallocate,
	abi.ExportImport,
	abi.ExportPDF,
}

// Worker is a conversion session bound to one module instance. It holds at
// most one loaded document; a successful import replaces it.
type Worker struct {
	mu sync.Mutex

	opts     Options
	logger   *slog.Logger
	engine   string
	instance engine.Instance

	stdout *hostfuncs.BoundedBuffer
	stderr *hostfuncs.BoundedBuffer

	loaded    bool
	closed    bool
	importing *importStream
	exporting *exportStream
}

// CreateWorker instantiates the module on provider and initialises it with
// opts and the registered fonts and license.
func CreateWorker(ctx context.Context, provider engine.Provider, opts Options) (*Worker, error) {
	if provider == nil {
		return nil, &sdkerrors.EngineUnavailableError{Err: errors.New("no engine provider")}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	w := &Worker{
		opts:   opts,
		logger: opts.Logger.With("engine", provider.Name()),
		engine: provider.Name(),
		stdout: hostfuncs.NewBoundedBuffer(hostfuncs.DefaultMaxOutputSize),
		stderr: hostfuncs.NewBoundedBuffer(hostfuncs.DefaultMaxOutputSize),
	}

	host, err := w.hostModule()
	if err != nil {
		return nil, err
	}

	inst, err := provider.NewInstance(ctx, host, engine.InstanceConfig{Stdout: w.stdout, Stderr: w.stderr})
	if err != nil {
		if errors.Is(err, sdkerrors.ErrModuleLoad) || errors.Is(err, sdkerrors.ErrEngineUnavailable) {
			return nil, err
		}
		return nil, &sdkerrors.ModuleLoadError{Engine: w.engine, Err: err}
	}
	w.instance = inst

	if err := w.initialise(ctx); err != nil {
		w.flushGuestOutput(ctx)
		_ = inst.Close(ctx)
		return nil, err
	}
	w.flushGuestOutput(ctx)

	w.logger.DebugContext(ctx, "worker created",
		"verbose", opts.Verbose,
		"production_mode", opts.ProductionMode)
	return w, nil
}

func (w *Worker) hostModule() (engine.HostModule, error) {
	reg, err := hostfuncs.NewRegistry(
		hostfuncs.WithMiddleware(
			hostfuncs.PanicRecoveryMiddleware(),
			hostfuncs.LoggingMiddleware(w.logger),
		),
		hostfuncs.WithBundle(hostfuncs.FontBundle(w.opts.Fonts)),
	)
	if err != nil {
		return engine.HostModule{}, fmt.Errorf("wordsdk: building host functions: %w", err)
	}
	return hostfuncs.NewHostModule(reg,
		hostfuncs.WithModuleLogger(w.logger),
		hostfuncs.WithFunction(hostfuncs.LogMessageFunction(w.logger, w.opts.Verbose)),
	), nil
}

type initDocument struct {
	Verbose        int          `json:"verbose"`
	ProductionMode bool         `json:"production_mode"`
	Fonts          []string     `json:"fonts"`
	License        *initLicense `json:"license,omitempty"`
}

type initLicense struct {
	Data   []byte `json:"data"`
	Secret string `json:"secret,omitempty"`
}

func (w *Worker) initialise(ctx context.Context) error {
	if w.instance.Memory() == nil {
		return &sdkerrors.ModuleLoadError{Engine: w.engine, Err: fmt.Errorf("module does not export %q", abi.ExportMemory)}
	}
	for _, name := range requiredExports {
		if !w.instance.HasExport(name) {
			return &sdkerrors.ModuleLoadError{Engine: w.engine, Err: fmt.Errorf("module does not export %q", name)}
		}
	}

	if !w.instance.HasExport(abi.ExportInit) {
		return nil
	}

	doc := initDocument{
		Verbose:        w.opts.Verbose,
		ProductionMode: w.opts.ProductionMode,
		Fonts:          w.opts.Fonts.Families(),
	}
	if lic, ok := w.opts.License.Current(); ok {
		doc.License = &initLicense{Data: lic.Data, Secret: lic.Secret}
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return &sdkerrors.ModuleLoadError{Engine: w.engine, Err: fmt.Errorf("encoding init options: %w", err)}
	}

	results, err := abi.CallWithBytes(ctx, w.instance, abi.ExportInit, payload)
	if err != nil {
		return &sdkerrors.ModuleLoadError{Engine: w.engine, Err: fmt.Errorf("calling %s: %w", abi.ExportInit, err)}
	}
	if status := abi.StatusOf(results); status != abi.StatusOK {
		msg := w.lastError(ctx)
		if msg == "" {
			msg = status.String()
		}
		return &sdkerrors.ModuleLoadError{Engine: w.engine, Err: fmt.Errorf("%s: %s", abi.ExportInit, msg)}
	}
	return nil
}

// Engine returns the name of the engine running this Worker.
func (w *Worker) Engine() string {
	return w.engine
}

// Loaded reports whether a document has been imported.
func (w *Worker) Loaded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loaded
}

// ImportFile loads the document at path, replacing any loaded document.
// It fails with an IOError when path cannot be read and with an
// ImportError when the module rejects its contents.
func (w *Worker) ImportFile(ctx context.Context, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkImportable(); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return &sdkerrors.IOError{Op: "read", Path: path, Err: err}
	}
	return w.importLocked(ctx, path, data)
}

// ImportBytes loads the document held in data.
func (w *Worker) ImportBytes(ctx context.Context, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkImportable(); err != nil {
		return err
	}
	return w.importLocked(ctx, "bytes", data)
}

// ImportReader loads a document read from r through an import stream.
func (w *Worker) ImportReader(ctx context.Context, r io.Reader) error {
	s, err := w.createImportStream(ctx)
	if err != nil {
		return err
	}
	if _, err := io.Copy(s, r); err != nil {
		_ = s.abort()
		if errors.Is(err, ErrStreamClosed) || errors.Is(err, ErrWorkerClosed) {
			return err
		}
		return &sdkerrors.IOError{Op: "read", Path: "stream", Err: err}
	}
	return s.Close()
}

func (w *Worker) importLocked(ctx context.Context, source string, data []byte) error {
	defer w.flushGuestOutput(ctx)

	results, err := abi.CallWithBytes(ctx, w.instance, abi.ExportImport, data)
	if err != nil {
		return &sdkerrors.ImportError{Source: source, Err: err}
	}
	if err := w.importStatus(ctx, source, results); err != nil {
		return err
	}
	w.documentLoaded(ctx, source, len(data))
	return nil
}

func (w *Worker) importStatus(ctx context.Context, source string, results []uint64) error {
	status := abi.StatusOf(results)
	if status == abi.StatusOK {
		return nil
	}
	err := &sdkerrors.ImportError{Source: source, Status: uint32(status), Message: w.lastError(ctx)}
	w.logger.DebugContext(ctx, "import rejected", "source", source, "status", status.String(), "error", err)
	return err
}

func (w *Worker) documentLoaded(ctx context.Context, source string, size int) {
	w.loaded = true
	w.logger.DebugContext(ctx, "document imported", "source", source, "bytes", size)
}

// ExportPDF renders the loaded document and returns the PDF bytes.
func (w *Worker) ExportPDF(ctx context.Context) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkExportable(); err != nil {
		return nil, err
	}

	ptr, size, err := w.renderLocked(ctx)
	if err != nil {
		return nil, err
	}
	defer w.release(ctx, ptr, size)

	data, err := abi.ReadBytes(w.instance, ptr, size)
	if err != nil {
		return nil, &sdkerrors.RenderError{Err: err}
	}
	return data, nil
}

// ExportPDFToFile renders the loaded document into path (mode 0644). No file
// is created when nothing is loaded or rendering fails.
func (w *Worker) ExportPDFToFile(ctx context.Context, path string) error {
	data, err := w.ExportPDF(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: output documents are meant to be shared
		return &sdkerrors.IOError{Op: "write", Path: path, Err: err}
	}
	w.logger.DebugContext(ctx, "pdf written", "path", path, "bytes", len(data))
	return nil
}

// renderLocked asks the module for a PDF and returns its location in guest
// memory. The caller owns the buffer and must release it.
func (w *Worker) renderLocked(ctx context.Context) (ptr, size uint32, err error) {
	defer w.flushGuestOutput(ctx)

	results, err := w.instance.Call(ctx, abi.ExportPDF)
	if err != nil {
		return 0, 0, &sdkerrors.RenderError{Err: err}
	}
	if len(results) == 0 || results[0] == 0 {
		return 0, 0, &sdkerrors.RenderError{Status: uint32(abi.StatusInternal), Message: w.lastError(ctx)}
	}

	ptr, size = abi.UnpackPtrLen(results[0])
	head, ok := w.instance.Memory().Read(ptr, min(size, uint32(len(pdfMagic))))
	if !ok || !bytes.Equal(head, []byte(pdfMagic)) {
		w.release(ctx, ptr, size)
		return 0, 0, &sdkerrors.RenderError{Message: "module returned data without a PDF header"}
	}

	w.logger.DebugContext(ctx, "pdf rendered", "bytes", size)
	return ptr, size, nil
}

func (w *Worker) release(ctx context.Context, ptr, size uint32) {
	if err := abi.Deallocate(ctx, w.instance, ptr, size); err != nil {
		w.logger.WarnContext(ctx, "releasing pdf buffer failed", "error", err)
	}
}

// Close releases the module instance. Open streams become unusable.
func (w *Worker) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.loaded = false
	if w.importing != nil {
		w.importing.closed = true
		w.importing.closeErr = ErrWorkerClosed
		w.importing = nil
	}
	if w.exporting != nil {
		w.exporting.closed = true
		w.exporting = nil
	}
	w.logger.DebugContext(ctx, "worker closed")
	return w.instance.Close(ctx)
}

// checkIdle reports whether the Worker is open with no import stream.
func (w *Worker) checkIdle() error {
	if w.closed {
		return ErrWorkerClosed
	}
	if w.importing != nil {
		return ErrImportPending
	}
	return nil
}

// checkImportable guards imports. An open export stream pins the loaded
// document until it is closed.
func (w *Worker) checkImportable() error {
	if err := w.checkIdle(); err != nil {
		return err
	}
	if w.exporting != nil {
		return ErrExportPending
	}
	return nil
}

// checkExportable guards exports. The document check runs before any file
// or guest work so failed exports have no side effects.
func (w *Worker) checkExportable() error {
	if err := w.checkIdle(); err != nil {
		return err
	}
	if !w.loaded {
		return ErrNoDocumentLoaded
	}
	return nil
}

func (w *Worker) lastError(ctx context.Context) string {
	return abi.LastError(ctx, w.instance, w.instance.HasExport)
}

// flushGuestOutput forwards anything the module printed to the logger.
func (w *Worker) flushGuestOutput(ctx context.Context) {
	w.forwardOutput(ctx, "stdout", w.stdout)
	w.forwardOutput(ctx, "stderr", w.stderr)
}

func (w *Worker) forwardOutput(ctx context.Context, stream string, buf *hostfuncs.BoundedBuffer) {
	out, truncated := buf.Drain()
	if out != "" {
		w.logger.DebugContext(ctx, "module "+stream, "output", out)
	}
	if truncated {
		w.logger.WarnContext(ctx, "module output truncated", "stream", stream, "limit", hostfuncs.DefaultMaxOutputSize)
	}
}
