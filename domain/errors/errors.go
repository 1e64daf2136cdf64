// Package errors provides the failure taxonomy surfaced by workers and engines.
// All error types support error unwrapping via errors.As() and errors.Is(), and
// every typed error also matches its kind sentinel (for example
// errors.Is(err, ErrImport) holds for any *ImportError).
package errors

import (
	stdErrors "errors"
	"fmt"
)

// Kind sentinels. Match them with errors.Is.
var (
	// ErrEngineUnavailable reports that the selected engine cannot run on this build or host.
	ErrEngineUnavailable = stdErrors.New("wordsdk: engine unavailable")

	// ErrModuleLoad reports that the conversion module could not be compiled or initialised.
	ErrModuleLoad = stdErrors.New("wordsdk: module load failed")

	// ErrImport reports that the module rejected the imported document.
	ErrImport = stdErrors.New("wordsdk: import failed")

	// ErrIO reports a filesystem failure while reading or writing a document.
	ErrIO = stdErrors.New("wordsdk: i/o failure")

	// ErrNoDocumentLoaded is returned by exports attempted before a successful import.
	ErrNoDocumentLoaded = stdErrors.New("wordsdk: no document loaded")

	// ErrRender reports an internal failure while producing the PDF.
	ErrRender = stdErrors.New("wordsdk: render failed")
)

// EngineUnavailableError represents an engine whose runtime dependency is missing.
type EngineUnavailableError struct {
	Err    error
	Engine string
}

func (e *EngineUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wordsdk: engine %q unavailable: %v", e.Engine, e.Err)
	}
	return fmt.Sprintf("wordsdk: engine %q unavailable", e.Engine)
}

func (e *EngineUnavailableError) Unwrap() error {
	return e.Err
}

// Is reports kind equality.
func (e *EngineUnavailableError) Is(target error) bool {
	return target == ErrEngineUnavailable
}

// ModuleLoadError represents module bytes that an engine could not compile,
// instantiate or initialise.
type ModuleLoadError struct {
	Err    error
	Engine string
}

func (e *ModuleLoadError) Error() string {
	if e.Engine != "" {
		return fmt.Sprintf("wordsdk: loading module on %s: %v", e.Engine, e.Err)
	}
	return fmt.Sprintf("wordsdk: loading module: %v", e.Err)
}

func (e *ModuleLoadError) Unwrap() error {
	return e.Err
}

// Is reports kind equality.
func (e *ModuleLoadError) Is(target error) bool {
	return target == ErrModuleLoad
}

// ImportError represents a document the module refused to load.
type ImportError struct {
	Err     error
	Source  string // file path or "stream"/"bytes"
	Message string // detail reported by the module, if any
	Status  uint32 // module status code, 0 when the failure was a trap
}

func (e *ImportError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = fmt.Sprintf("status %d", e.Status)
	}
	if e.Source != "" {
		return fmt.Sprintf("wordsdk: importing %s: %s", e.Source, msg)
	}
	return fmt.Sprintf("wordsdk: importing document: %s", msg)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// Is reports kind equality.
func (e *ImportError) Is(target error) bool {
	return target == ErrImport
}

// IOError represents a filesystem failure.
type IOError struct {
	Err  error
	Op   string
	Path string
}

func (e *IOError) Error() string {
	return fmt.Sprintf("wordsdk: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Is reports kind equality.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// RenderError represents a failure inside PDF generation.
type RenderError struct {
	Err     error
	Message string
	Status  uint32
}

func (e *RenderError) Error() string {
	switch {
	case e.Message != "":
		return "wordsdk: rendering pdf: " + e.Message
	case e.Err != nil:
		return fmt.Sprintf("wordsdk: rendering pdf: %v", e.Err)
	default:
		return fmt.Sprintf("wordsdk: rendering pdf: status %d", e.Status)
	}
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Is reports kind equality.
func (e *RenderError) Is(target error) bool {
	return target == ErrRender
}

// Kind returns a short machine-readable name for err's kind, or "internal"
// when err belongs to none of the kinds above.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case stdErrors.Is(err, ErrEngineUnavailable):
		return "engine_unavailable"
	case stdErrors.Is(err, ErrModuleLoad):
		return "module_load"
	case stdErrors.Is(err, ErrImport):
		return "import"
	case stdErrors.Is(err, ErrIO):
		return "io"
	case stdErrors.Is(err, ErrNoDocumentLoaded):
		return "no_document"
	case stdErrors.Is(err, ErrRender):
		return "render"
	default:
		return "internal"
	}
}
