package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineUnavailableError(t *testing.T) {
	baseErr := fmt.Errorf("built without cgo")
	err := &EngineUnavailableError{Engine: "wasmer", Err: baseErr}

	assert.Equal(t, `wordsdk: engine "wasmer" unavailable: built without cgo`, err.Error())
	assert.True(t, errors.Is(err, ErrEngineUnavailable))
	assert.True(t, errors.Is(err, baseErr))
	assert.False(t, errors.Is(err, ErrModuleLoad))
}

func TestEngineUnavailableError_NoCause(t *testing.T) {
	err := &EngineUnavailableError{Engine: "wazero-compiler"}
	assert.Equal(t, `wordsdk: engine "wazero-compiler" unavailable`, err.Error())
}

func TestModuleLoadError(t *testing.T) {
	baseErr := fmt.Errorf("invalid magic number")
	err := fmt.Errorf("creating provider: %w", &ModuleLoadError{Engine: "wazero", Err: baseErr})

	assert.True(t, errors.Is(err, ErrModuleLoad))
	assert.True(t, errors.Is(err, baseErr))

	var loadErr *ModuleLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "wazero", loadErr.Engine)
	assert.Equal(t, "wordsdk: loading module on wazero: invalid magic number", loadErr.Error())
}

func TestImportError(t *testing.T) {
	tests := []struct {
		name string
		err  *ImportError
		want string
	}{
		{
			name: "module message",
			err:  &ImportError{Source: "HelloWorld.docx", Status: 1, Message: "not a docx package"},
			want: "wordsdk: importing HelloWorld.docx: not a docx package",
		},
		{
			name: "trap",
			err:  &ImportError{Source: "stream", Err: fmt.Errorf("wasm trap: unreachable")},
			want: "wordsdk: importing stream: wasm trap: unreachable",
		},
		{
			name: "status only",
			err:  &ImportError{Status: 2},
			want: "wordsdk: importing document: status 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.True(t, errors.Is(tt.err, ErrImport))
		})
	}
}

func TestIOError(t *testing.T) {
	err := &IOError{Op: "read", Path: "/missing.docx", Err: fs.ErrNotExist}

	assert.Equal(t, "wordsdk: read /missing.docx: file does not exist", err.Error())
	assert.True(t, errors.Is(err, ErrIO))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestRenderError(t *testing.T) {
	assert.Equal(t, "wordsdk: rendering pdf: layout overflow", (&RenderError{Message: "layout overflow"}).Error())
	assert.Equal(t, "wordsdk: rendering pdf: boom", (&RenderError{Err: fmt.Errorf("boom")}).Error())
	assert.Equal(t, "wordsdk: rendering pdf: status 4", (&RenderError{Status: 4}).Error())
	assert.True(t, errors.Is(&RenderError{}, ErrRender))
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&EngineUnavailableError{Engine: "wasmer"}, "engine_unavailable"},
		{&ModuleLoadError{Err: fmt.Errorf("x")}, "module_load"},
		{fmt.Errorf("wrapped: %w", &ImportError{Status: 1}), "import"},
		{&IOError{Op: "write", Path: "out.pdf", Err: fs.ErrPermission}, "io"},
		{ErrNoDocumentLoaded, "no_document"},
		{&RenderError{Status: 4}, "render"},
		{fmt.Errorf("something else"), "internal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err))
	}
}
